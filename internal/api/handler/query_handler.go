package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"soql-workbench/internal/model"
)

// QueryRequest runs a query. A missing MaxRecords selects the server
// default; 0 fetches everything up to the iteration cap.
type QueryRequest struct {
	Query      string `json:"query"`
	MaxRecords *int   `json:"maxRecords,omitempty"`
}

// QueryResponse is a complete result set.
type QueryResponse struct {
	Success bool `json:"success"`
	*model.ResultSet
}

// Query runs a query and accumulates its pages
// @Summary Run query
// @Description Run a query, following continuation pages until done, the record limit or the iteration cap
// @Tags query
// @Accept json
// @Produce json
// @Param request body QueryRequest true "Query text and record limit"
// @Success 200 {object} QueryResponse
// @Failure 400 {object} ErrorResponse "Query failed"
// @Failure 401 {object} ErrorResponse "Not authenticated"
// @Router /query [post]
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.authenticated(w, r)
	if !ok {
		return
	}

	var req QueryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Query is required")
		return
	}
	limit := h.defaultRecordLimit
	if req.MaxRecords != nil {
		limit = *req.MaxRecords
	}
	if limit < 0 {
		writeError(w, http.StatusBadRequest, "maxRecords must be 0 (unlimited) or positive")
		return
	}

	start := time.Now()
	rs, err := h.fetcher.Fetch(r.Context(), &sess.Connection, req.Query, limit)
	if err != nil {
		h.metrics.Queries.WithLabelValues("error").Inc()
		h.logger.Warn("query failed", zap.String("session", sess.ID), zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.metrics.Queries.WithLabelValues("success").Inc()
	h.metrics.QueryDuration.Observe(time.Since(start).Seconds())
	h.metrics.RecordsFetched.Add(float64(rs.FetchedCount))
	h.metrics.PageFetches.Add(float64(rs.Iterations + 1))

	body, err := json.Marshal(QueryResponse{Success: true, ResultSet: rs})
	if err != nil {
		h.logger.Error("failed to encode result set", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to encode result set")
		return
	}
	h.logger.Info("query response",
		zap.Int("records", rs.FetchedCount),
		zap.String("payload", humanize.Bytes(uint64(len(body)))))

	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// DescribeObject returns the metadata of one object
// @Summary Describe object
// @Tags metadata
// @Produce json
// @Param object path string true "Object API name"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse "Describe failed"
// @Failure 401 {object} ErrorResponse "Not authenticated"
// @Router /describe/{object} [get]
func (h *Handler) DescribeObject(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.authenticated(w, r)
	if !ok {
		return
	}

	object := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/describe/"), "/")
	if object == "" {
		writeError(w, http.StatusBadRequest, "Object name is required")
		return
	}

	describe, err := h.upstream.Describe(r.Context(), &sess.Connection, object)
	if err != nil {
		h.logger.Warn("describe failed", zap.String("object", object), zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": describe})
}

// ListObjects returns the queryable objects of the org
// @Summary List objects
// @Tags metadata
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse "Listing failed"
// @Failure 401 {object} ErrorResponse "Not authenticated"
// @Router /objects [get]
func (h *Handler) ListObjects(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.authenticated(w, r)
	if !ok {
		return
	}

	objects, err := h.upstream.DescribeGlobal(r.Context(), &sess.Connection)
	if err != nil {
		h.logger.Warn("describe global failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	queryable := make([]model.ObjectSummary, 0, len(objects))
	for _, o := range objects {
		if o.Queryable {
			queryable = append(queryable, o)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": queryable})
}
