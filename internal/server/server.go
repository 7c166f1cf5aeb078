package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/iwvelando/course-emi/internal/export"
	"github.com/iwvelando/course-emi/internal/metrics"
	"github.com/iwvelando/course-emi/internal/plan"
	"github.com/iwvelando/course-emi/internal/presentation"
	"github.com/iwvelando/course-emi/pkg/constants"
	"github.com/iwvelando/course-emi/pkg/validation"
	"go.uber.org/zap"
)

// Dependencies are the services the HTTP handler exposes.
type Dependencies struct {
	Engine  *plan.Engine
	Exports *export.Service
	Files   *export.LocalStorage // serves /files when set
	Metrics *metrics.Recorder

	// ExportFormat is used when a request names no format. Defaults to xlsx.
	ExportFormat string
}

type handler struct {
	logger         *zap.Logger
	engine         *plan.Engine
	exports        *export.Service
	files          *export.LocalStorage
	metrics        *metrics.Recorder
	maxRequestSize int64
	allowedOrigins []string
	exportFormat   string
	version        string
}

// NewHandler constructs the HTTP handler that serves the plan API.
func NewHandler(logger *zap.Logger, cfg *Config, deps Dependencies, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if deps.Engine == nil {
		deps.Engine = plan.NewEngine(logger, plan.WithMetrics(deps.Metrics))
	}
	if deps.Exports == nil {
		deps.Exports = export.NewService(logger, nil, export.WithRecorder(deps.Metrics))
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:         logger,
		engine:         deps.Engine,
		exports:        deps.Exports,
		files:          deps.Files,
		metrics:        deps.Metrics,
		maxRequestSize: cfg.RequestSizeBytes(),
		allowedOrigins: cfg.AllowedOrigins,
		exportFormat:   deps.ExportFormat,
		version:        trimmedVersion,
	}
	if h.maxRequestSize <= 0 {
		h.maxRequestSize = constants.DefaultMaxRequestSizeBytes
	}
	if h.exportFormat == "" {
		h.exportFormat = constants.ExportFormatXLSX
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		h.requestLogger,
		middleware.Recoverer,
		h.cors,
	)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Post("/api/plan", h.handlePlan)
		r.Post("/api/export", h.handleExport)
		r.Post("/api/exports", h.handlePublish)
		r.Get("/api/tenures", h.handleTenures)
		r.Get("/api/version", h.handleVersion)
		r.Get("/files/{file}", h.handleFile)
		r.Get("/healthz", h.handleHealth)
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	})

	// The live session outlives any per-request timeout.
	r.Get("/api/live", h.handleLive)

	return r
}

type planResponse struct {
	Validation validation.Result        `json:"validation"`
	Summary    presentation.SummaryView `json:"summary"`
	Detail     presentation.DetailView  `json:"detail"`
	Plan       plan.LoanPlan            `json:"plan"`
}

func newPlanResponse(result plan.Result) planResponse {
	return planResponse{
		Validation: result.Validation,
		Summary:    presentation.Summary(result),
		Detail:     presentation.Detail(result),
		Plan:       result.Plan,
	}
}

// compute decodes a form body and runs the engine. A returned status is the
// HTTP code to report the error with.
func (h *handler) compute(ctx context.Context, body io.Reader) (plan.Result, int, error) {
	var raw plan.RawInputs
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return plan.Result{}, http.StatusRequestEntityTooLarge,
				fmt.Errorf("request exceeds limit of %d bytes", h.maxRequestSize)
		}
		return plan.Result{}, http.StatusBadRequest, fmt.Errorf("failed to decode inputs: %v", err)
	}

	in, err := plan.FromRaw(raw)
	if err != nil {
		return plan.Result{}, http.StatusBadRequest, err
	}

	result, err := h.engine.Compute(ctx, in)
	if err != nil {
		if errors.Is(err, validation.ErrInvalidTenure) {
			return plan.Result{}, http.StatusBadRequest, err
		}
		return plan.Result{}, http.StatusInternalServerError, fmt.Errorf("failed to compute plan: %v", err)
	}
	return result, http.StatusOK, nil
}

func (h *handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestSize)

	result, status, err := h.compute(r.Context(), r.Body)
	if err != nil {
		h.respondErrorWithOp(w, status, err.Error(), "server.handlePlan")
		return
	}
	h.writeJSON(w, http.StatusOK, newPlanResponse(result))
}

func (h *handler) exportFormatFrom(r *http.Request) (string, error) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = h.exportFormat
	}
	if _, err := h.exports.Registry().Lookup(format); err != nil {
		return "", err
	}
	return format, nil
}

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := h.exportFormatFrom(r)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), "server.handleExport")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestSize)
	result, status, err := h.compute(r.Context(), r.Body)
	if err != nil {
		h.respondErrorWithOp(w, status, err.Error(), "server.handleExport")
		return
	}

	artifact, err := h.exports.Export(r.Context(), result, format)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), "server.handleExport")
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(artifact.Data); err != nil {
		h.logger.Warn("failed to write export",
			zap.String("op", "server.handleExport"),
			zap.Error(err),
		)
	}
}

func (h *handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	if !h.exports.HasSink() {
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, export.ErrNoSink.Error(), "server.handlePublish")
		return
	}

	format, err := h.exportFormatFrom(r)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), "server.handlePublish")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestSize)
	result, status, err := h.compute(r.Context(), r.Body)
	if err != nil {
		h.respondErrorWithOp(w, status, err.Error(), "server.handlePublish")
		return
	}

	published, err := h.exports.Publish(r.Context(), result, format)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadGateway, err.Error(), "server.handlePublish")
		return
	}
	h.writeJSON(w, http.StatusCreated, published)
}

func (h *handler) handleFile(w http.ResponseWriter, r *http.Request) {
	if h.files == nil {
		http.NotFound(w, r)
		return
	}

	file := chi.URLParam(r, "file")
	path, err := h.files.Path(file)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		h.respondErrorWithOp(w, http.StatusInternalServerError, "failed to access file", "server.handleFile")
		return
	}

	_, name, _ := export.SplitStoredName(file)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

func (h *handler) handleTenures(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"options": constants.TenureOptions,
		"default": constants.DefaultTenureMonths,
	})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	} else {
		h.logger.Debug("request rejected",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("handled request",
			zap.String("op", "server.requestLogger"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("requestID", middleware.GetReqID(r.Context())),
		)
	})
}

func (h *handler) originAllowed(origin string) bool {
	if len(h.allowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (h *handler) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && h.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
