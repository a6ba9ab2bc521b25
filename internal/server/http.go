package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/keyword-estimator/constants"
	"github.com/joseph-ayodele/keyword-estimator/internal/common"
	"github.com/joseph-ayodele/keyword-estimator/internal/export"
	"github.com/joseph-ayodele/keyword-estimator/internal/keywords"
	"github.com/joseph-ayodele/keyword-estimator/internal/valuation"
)

const maxBodyBytes = 8 << 20

type countRequest struct {
	Text     string         `json:"text"`
	Keywords map[string]any `json:"keywords"`
	Filename string         `json:"filename,omitempty"`
}

type valuationRequest struct {
	DocumentPath string         `json:"document_path"`
	Keywords     map[string]any `json:"keywords"`
}

type resultsResponse struct {
	RunID      string                  `json:"run_id,omitempty"`
	Outcome    string                  `json:"outcome,omitempty"`
	Records    []valuation.CountRecord `json:"records"`
	GrandTotal int64                   `json:"grand_total"`
	Warnings   []string                `json:"warnings"`
	Error      string                  `json:"error,omitempty"`
	ErrorCode  string                  `json:"error_code,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewRouter builds the HTTP API:
//
//	GET  /healthz
//	POST /v1/counts      {text, keywords}
//	POST /v1/valuations  {document_path, keywords}
//	POST /v1/exports     {text, keywords, filename} -> xlsx
func NewRouter(svc *Service, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &httpHandler{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1", func(r chi.Router) {
		r.Post("/counts", h.count)
		r.Post("/valuations", h.valuate)
		r.Post("/exports", h.export)
	})
	return r
}

type httpHandler struct {
	svc    *Service
	logger *slog.Logger
}

func (h *httpHandler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := chimiddleware.GetReqID(r.Context())
		r = r.WithContext(common.WithRequestID(r.Context(), reqID))
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", reqID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *httpHandler) count(w http.ResponseWriter, r *http.Request) {
	var req countRequest
	if !h.decode(w, r, &req) {
		return
	}
	spec, warnings, ok := h.keywords(w, r, req.Keywords)
	if !ok {
		return
	}
	rs := h.svc.Count(r.Context(), req.Text, spec)
	writeJSON(w, http.StatusOK, resultsResponse{
		Records:    nonNil(rs.Records),
		GrandTotal: rs.GrandTotal,
		Warnings:   warnings,
	})
}

func (h *httpHandler) valuate(w http.ResponseWriter, r *http.Request) {
	var req valuationRequest
	if !h.decode(w, r, &req) {
		return
	}
	spec, warnings, ok := h.keywords(w, r, req.Keywords)
	if !ok {
		return
	}

	v, err := h.svc.Valuate(r.Context(), req.DocumentPath, spec, nil)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := resultsResponse{
		RunID:      v.RunID,
		Outcome:    string(v.Outcome),
		Records:    nonNil(v.Results.Records),
		GrandTotal: v.Results.GrandTotal,
		Warnings:   append(warnings, v.Warnings...),
	}
	status := http.StatusOK
	if v.Err != nil {
		resp.Error = v.Err.Error()
		resp.ErrorCode = common.CodeOf(v.Err)
		status = http.StatusUnprocessableEntity
	}
	if v.Outcome == constants.OutcomeCancelled {
		status = http.StatusConflict
	}
	writeJSON(w, status, resp)
}

func (h *httpHandler) export(w http.ResponseWriter, r *http.Request) {
	var req countRequest
	if !h.decode(w, r, &req) {
		return
	}
	spec, _, ok := h.keywords(w, r, req.Keywords)
	if !ok {
		return
	}
	xlsx, err := h.svc.Export(r.Context(), req.Text, spec)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	name := req.Filename
	if name == "" {
		name = export.DefaultFilename("", time.Now())
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(name, `"`, "")+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(xlsx)
}

func (h *httpHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (h *httpHandler) keywords(w http.ResponseWriter, r *http.Request, raw map[string]any) (keywords.Spec, []string, bool) {
	if len(raw) == 0 {
		h.writeError(w, r, http.StatusBadRequest, "keywords is required")
		return nil, nil, false
	}
	spec, warnings := ParseKeywords(raw)
	return spec, warningStrings(warnings), true
}

func (h *httpHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		h.writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("http.request.failed", "path", r.URL.Path, "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func (h *httpHandler) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: common.RequestIDFromContext(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil(rs []valuation.CountRecord) []valuation.CountRecord {
	if rs == nil {
		return []valuation.CountRecord{}
	}
	return rs
}
