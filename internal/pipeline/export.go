package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"soql-workbench/internal/model"
	"soql-workbench/pkg/utils"
)

// ------------------- CSV -------------------

// FormatCSV renders records as CSV text for the given column order.
//
// This is not RFC 4180 CSV: nothing is quoted. Commas inside plain values
// are replaced by semicolons, nested objects are written as JSON and
// header names are written as is. Downstream consumers rely on this exact
// shape.
func FormatCSV(records []model.Record, columns []string) string {
	lines := make([]string, 0, len(records)+1)
	lines = append(lines, strings.Join(columns, ","))

	cells := make([]string, len(columns))
	for _, rec := range records {
		for i, col := range columns {
			cells[i] = csvCell(rec[col])
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	return strings.Join(lines, "\n")
}

// WriteCSV writes FormatCSV output to w
func WriteCSV(w io.Writer, records []model.Record, columns []string) (int64, error) {
	n, err := io.WriteString(w, FormatCSV(records, columns))
	return int64(n), err
}

func csvCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case map[string]interface{}, model.Record, []interface{}:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	case string:
		return strings.ReplaceAll(val, ",", ";")
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return strings.ReplaceAll(fmt.Sprintf("%v", val), ",", ";")
	}
}

// ------------------- File export -------------------

// ExportRequest describes one export of a result set to disk.
type ExportRequest struct {
	Query    string
	Records  []model.Record
	Columns  []string
	Dir      string // relative to the output manager's base dir unless absolute
	FileName string // extension picks the format; empty uses a dated default
}

// ExportManager handles data export operations
type ExportManager struct {
	outputs *utils.OutputManager
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportManager creates an export manager writing below baseDir
func NewExportManager(baseDir string, logger *zap.Logger) *ExportManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportManager{
		outputs: utils.NewOutputManager(baseDir),
		logger:  logger,
		now:     time.Now,
	}
}

// Export writes the records as CSV or JSON depending on the file extension.
// Unknown extensions fall back to CSV. Failures are reported in the result.
func (em *ExportManager) Export(req ExportRequest) model.ExportResult {
	fileName := req.FileName
	if fileName == "" {
		fileName = em.outputs.DefaultFileName("query_results", "csv", em.now())
	}
	columns := req.Columns
	if len(columns) == 0 {
		columns = Columns(req.Records)
	}

	result := model.ExportResult{
		Type:       em.outputs.GetFileType(fileName),
		ExportedAt: em.now(),
	}
	if result.Type == "unknown" {
		result.Type = "csv"
	}

	path, err := em.outputs.ResolvePath(req.Dir, fileName)
	if err == nil {
		result.Path = path
		switch result.Type {
		case "json":
			err = em.exportToJSON(path, req, columns)
		default:
			err = em.exportToCSV(path, req.Records, columns)
		}
	}

	if err != nil {
		result.Error = err.Error()
		em.logger.Error("export failed", zap.String("file", fileName), zap.Error(err))
		return result
	}

	result.Success = true
	result.RecordCount = len(req.Records)
	if size, err := em.outputs.GetFileSize(path); err == nil {
		result.Bytes = size
	}
	em.logger.Info("export successful",
		zap.String("path", path),
		zap.String("type", result.Type),
		zap.Int("records", result.RecordCount))
	return result
}

// exportToCSV exports records in the workbench CSV format
func (em *ExportManager) exportToCSV(path string, records []model.Record, columns []string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := WriteCSV(file, records, columns); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return file.Close()
}

// exportToJSON exports records with an export_info header
func (em *ExportManager) exportToJSON(path string, req ExportRequest, columns []string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := map[string]interface{}{
		"export_info": map[string]interface{}{
			"query":        req.Query,
			"exported_at":  em.now().UTC(),
			"record_count": len(req.Records),
			"columns":      columns,
		},
		"data": req.Records,
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return file.Close()
}
