package handler

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"soql-workbench/internal/model"
	"soql-workbench/internal/pipeline"
)

// StatisticsRequest carries the records to profile.
type StatisticsRequest struct {
	Data []model.Record `json:"data"`
}

// StatisticsResponse maps field names to their statistics.
type StatisticsResponse struct {
	Success    bool                             `json:"success"`
	Statistics map[string]*model.FieldStatistic `json:"statistics"`
}

// ExportRequest carries the records and column order to export.
type ExportRequest struct {
	Data    []model.Record `json:"data"`
	Columns []string       `json:"columns"`
}

// Statistics profiles a posted record set
// @Summary Field statistics
// @Description Per-field type, null, numeric and frequency statistics of the posted records
// @Tags data
// @Accept json
// @Produce json
// @Param request body StatisticsRequest true "Records"
// @Success 200 {object} StatisticsResponse
// @Failure 400 {object} ErrorResponse "Invalid request payload"
// @Router /statistics [post]
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	var req StatisticsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, StatisticsResponse{
		Success:    true,
		Statistics: pipeline.ComputeStatistics(req.Data),
	})
}

// ExportCSV renders a posted record set as a CSV download
// @Summary Export CSV
// @Description Render records as CSV. Commas inside values become semicolons; nothing is quoted.
// @Tags data
// @Accept json
// @Produce text/csv
// @Param request body ExportRequest true "Records and columns"
// @Success 200 {string} string "CSV document"
// @Failure 400 {object} ErrorResponse "Invalid request payload"
// @Router /export/csv [post]
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	columns := req.Columns
	if len(columns) == 0 {
		columns = pipeline.Columns(req.Data)
	}

	name := fmt.Sprintf("query_results_%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := pipeline.WriteCSV(w, req.Data, columns); err != nil {
		h.logger.Warn("csv export write failed", zap.Error(err))
	}
}

// Healthz reports liveness
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
