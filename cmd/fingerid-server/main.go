package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/quillback/fingerid/internal/config"
	"github.com/quillback/fingerid/internal/db"
	"github.com/quillback/fingerid/internal/device"
	"github.com/quillback/fingerid/internal/fingerid/service"
	"github.com/quillback/fingerid/internal/fingerid/store"
	sqlitekv "github.com/quillback/fingerid/internal/fingerid/store/sqlite"
	"github.com/quillback/fingerid/internal/httpapi"
	"github.com/quillback/fingerid/internal/metrics"
)

func main() {
	_ = godotenv.Load() // optional .env for dev setups

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "fingerid-server ", log.LstdFlags|log.LUTC)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Durable blob store
	sqldb, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open db: %v", err)
	}
	defer sqldb.Close()

	writer := db.NewWorker(sqldb)
	defer writer.Close()

	kv := sqlitekv.NewKV(sqldb, writer)

	// State: reload failures degrade to empty state with a logged warning,
	// never a refusal to start.
	gallery := store.NewGallery(kv)
	if err := gallery.Reload(ctx); err != nil {
		logger.Printf("gallery reload: %v (starting empty)", err)
	}
	auditLog := store.NewAuditLog(kv)
	if err := auditLog.Reload(ctx); err != nil {
		logger.Printf("audit reload: %v (starting empty)", err)
	}
	lastCapture := store.NewLastCapture(kv)
	if err := lastCapture.Reload(ctx); err != nil {
		logger.Printf("last-capture reload: %v (starting empty)", err)
	}

	// Capture device client. The HTTP timeout must outlast the device-side
	// capture timeout, or we would abort requests the reader is still serving.
	dev := device.NewClient(device.ClientConfig{
		BaseURL:        cfg.DeviceURL,
		License:        cfg.DeviceLicense,
		TemplateFormat: cfg.TemplateFormat,
		Timeout:        time.Duration(cfg.CaptureTimeoutMs)*time.Millisecond + 10*time.Second,
	})

	m := metrics.New()
	m.SetGallerySize(gallery.Len())

	ctrl := service.NewController(service.Dependencies{
		Logger:  logger,
		Device:  dev,
		Gallery: gallery,
		Audit:   auditLog,
		Last:    lastCapture,
		Capture: device.CaptureConfig{
			TimeoutMs:          cfg.CaptureTimeoutMs,
			QualityThreshold:   cfg.CaptureQuality,
			TemplateFormat:     cfg.TemplateFormat,
			WSQCompressionRate: cfg.WSQRate,
		},
		Metrics: m,
	})

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:     logger,
		Addr:       cfg.HTTPAddr,
		Controller: ctrl,
	})

	go func() {
		logger.Printf("listening on %s (device %s, gallery %d)", cfg.HTTPAddr, cfg.DeviceURL, gallery.Len())
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
