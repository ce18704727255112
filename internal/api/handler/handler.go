package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"soql-workbench/internal/metrics"
	"soql-workbench/internal/model"
	"soql-workbench/internal/pipeline"
	"soql-workbench/internal/session"
	"soql-workbench/internal/upstream"
)

// maxBodyBytes bounds request bodies; posted result sets can be large.
const maxBodyBytes = 64 << 20

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Sessions           *session.Manager
	Upstream           upstream.Client
	Fetcher            *pipeline.Fetcher
	Metrics            *metrics.Metrics
	Logger             *zap.Logger
	DefaultRecordLimit int
}

// Handler serves the workbench HTTP API.
type Handler struct {
	sessions           *session.Manager
	upstream           upstream.Client
	fetcher            *pipeline.Fetcher
	metrics            *metrics.Metrics
	logger             *zap.Logger
	defaultRecordLimit int
}

func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Fetcher == nil {
		d.Fetcher = pipeline.NewFetcher(d.Upstream, d.Logger, 0)
	}
	return &Handler{
		sessions:           d.Sessions,
		upstream:           d.Upstream,
		fetcher:            d.Fetcher,
		metrics:            d.Metrics,
		logger:             d.Logger,
		defaultRecordLimit: d.DefaultRecordLimit,
	}
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// authenticated resolves the caller's session, answering 401 when there is none.
func (h *Handler) authenticated(w http.ResponseWriter, r *http.Request) (*model.Session, bool) {
	sess, err := h.sessions.Lookup(r.Context(), h.sessions.SessionID(r))
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			h.logger.Error("session lookup failed", zap.Error(err))
		}
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return nil, false
	}
	return sess, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: msg})
}
