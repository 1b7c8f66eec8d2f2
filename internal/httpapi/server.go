package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quillback/fingerid/internal/device"
	"github.com/quillback/fingerid/internal/fingerid/service"
	"github.com/quillback/fingerid/internal/fingerid/types"
)

// maxImportBody caps import payloads. Exchange documents carry base64
// templates and preview images, so this is sized in megabytes, not KiB.
const maxImportBody = 16 << 20

type Dependencies struct {
	Logger     *log.Logger
	Addr       string
	Controller *service.Controller
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	mux        *http.ServeMux
	controller *service.Controller

	// gate serializes capture-triggering operations: the device service is
	// single-threaded and stateful, so enroll and verify never overlap.
	gate captureGate
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:     d.Logger,
		mux:        mux,
		controller: d.Controller,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/identities", s.handleEnroll)
	mux.HandleFunc("GET /v1/identities", s.handleListIdentities)
	mux.HandleFunc("DELETE /v1/identities/{id}", s.handleRemoveIdentity)
	mux.HandleFunc("DELETE /v1/identities", s.handleClearIdentities)

	mux.HandleFunc("POST /v1/verify", s.handleVerify)
	mux.HandleFunc("GET /v1/audit", s.handleAudit)

	mux.HandleFunc("GET /v1/export", s.handleExport)
	mux.HandleFunc("POST /v1/import", s.handleImport)

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type enrollRequest struct {
	DisplayName string `json:"display_name"`
}

type enrollResponse struct {
	Identity types.Identity      `json:"identity"`
	Capture  types.CaptureResult `json:"capture"`
	Warning  string              `json:"warning,omitempty"`
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	if !s.gate.tryAcquire() {
		writeError(w, http.StatusConflict, "capture_in_flight", "a capture or scan is already running")
		return
	}
	defer s.gate.release()

	res, err := s.controller.Enroll(r.Context(), req.DisplayName)
	if err != nil {
		s.writeFlowError(w, "enroll", err)
		return
	}

	writeJSON(w, http.StatusOK, enrollResponse{
		Identity: res.Identity,
		Capture:  res.Capture,
		Warning:  res.StorageWarning,
	})
}

type verifyResponse struct {
	Accepted bool                `json:"accepted"`
	Score    int                 `json:"score"`
	Matched  *types.Identity     `json:"matched,omitempty"`
	Capture  types.CaptureResult `json:"capture"`
	Warning  string              `json:"warning,omitempty"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if !s.gate.tryAcquire() {
		writeError(w, http.StatusConflict, "capture_in_flight", "a capture or scan is already running")
		return
	}
	defer s.gate.release()

	res, err := s.controller.Verify(r.Context())
	if err != nil {
		s.writeFlowError(w, "verify", err)
		return
	}

	writeJSON(w, http.StatusOK, verifyResponse{
		Accepted: res.Outcome.Accepted,
		Score:    res.Outcome.Score,
		Matched:  res.Outcome.Matched,
		Capture:  res.Capture,
		Warning:  res.StorageWarning,
	})
}

type identitiesResponse struct {
	Identities []types.Identity `json:"identities"`
}

func (s *Server) handleListIdentities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, identitiesResponse{Identities: s.controller.Identities()})
}

type mutationResponse struct {
	OK      bool   `json:"ok"`
	Warning string `json:"warning,omitempty"`
}

func (s *Server) handleRemoveIdentity(w http.ResponseWriter, r *http.Request) {
	warn := s.controller.Remove(r.Context(), r.PathValue("id"))
	writeJSON(w, http.StatusOK, mutationResponse{OK: true, Warning: warn})
}

func (s *Server) handleClearIdentities(w http.ResponseWriter, r *http.Request) {
	warn := s.controller.Clear(r.Context())
	writeJSON(w, http.StatusOK, mutationResponse{OK: true, Warning: warn})
}

type auditResponse struct {
	Entries []types.AuditEntry `json:"entries"`
}

func (s *Server) handleAudit(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, auditResponse{Entries: s.controller.AuditEntries()})
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Export())
}

type importResponse struct {
	Imported int    `json:"imported"`
	Warning  string `json:"warning,omitempty"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_body", "could not read request body")
		return
	}

	count, warn, err := s.controller.Import(r.Context(), raw)
	if err != nil {
		if errors.Is(err, service.ErrInvalidFormat) {
			writeError(w, http.StatusBadRequest, "invalid_format", err.Error())
			return
		}
		s.logger.Printf("import error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
		return
	}

	writeJSON(w, http.StatusOK, importResponse{Imported: count, Warning: warn})
}

// writeFlowError maps the error taxonomy of the capture/verification flows
// onto HTTP statuses. Device and transport failures surface as 502 — the
// controller is fine, its upstream is not.
func (s *Server) writeFlowError(w http.ResponseWriter, op string, err error) {
	var devErr *device.DeviceError
	var transErr *device.TransportError

	switch {
	case errors.Is(err, service.ErrEmptyName):
		writeError(w, http.StatusBadRequest, "invalid_display_name", err.Error())
	case errors.Is(err, service.ErrEmptyGallery):
		writeError(w, http.StatusConflict, "no_enrolled_identities", err.Error())
	case errors.As(err, &devErr):
		writeError(w, http.StatusBadGateway, "device_error", devErr.Error())
	case errors.As(err, &transErr):
		writeError(w, http.StatusBadGateway, "device_unreachable", transErr.Error())
	default:
		s.logger.Printf("%s error: %v", op, err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}
