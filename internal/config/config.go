package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr string

	// DB
	Env    string // "dev" | "prod"
	DBPath string // e.g. "./data/fingerid.db"

	// Capture device service (SecuGen-style WebAPI)
	DeviceURL     string
	DeviceLicense string

	// Capture defaults, forwarded to the device on every acquisition.
	CaptureTimeoutMs int     // device-side timeout in ms
	CaptureQuality   int     // minimum acceptable quality 0-100
	TemplateFormat   string  // e.g. "ISO"
	WSQRate          float64 // WSQ compression rate for the preview image
}

func FromEnv() Config {
	addr := getenvDefault("FINGERID_HTTP_ADDR", ":8080")

	env := strings.ToLower(getenvDefault("FINGERID_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	return Config{
		HTTPAddr: addr,
		Env:      env,
		DBPath:   getenvDefault("FINGERID_DB_PATH", "./data/fingerid.db"),

		DeviceURL:     getenvDefault("FINGERID_DEVICE_URL", "https://localhost:8443"),
		DeviceLicense: os.Getenv("FINGERID_DEVICE_LICENSE"),

		CaptureTimeoutMs: getenvInt("FINGERID_CAPTURE_TIMEOUT_MS", 10000),
		CaptureQuality:   getenvInt("FINGERID_CAPTURE_QUALITY", 80),
		TemplateFormat:   getenvDefault("FINGERID_TEMPLATE_FORMAT", "ISO"),
		WSQRate:          getenvFloat("FINGERID_WSQ_RATE", 0.75),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}
