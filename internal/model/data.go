package model

import "time"

// ExportConfig is the per saved query export setup
type ExportConfig struct {
	Filename   string `json:"filename,omitempty"`
	Path       string `json:"path,omitempty"`
	AutoExport bool   `json:"autoExport"`
}

// SavedQuery is a named query kept in the client-local store
type SavedQuery struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Query       string        `json:"query"`
	Description string        `json:"description,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   *time.Time    `json:"updatedAt,omitempty"`
	Export      *ExportConfig `json:"exportConfig,omitempty"`
}

// ExportResult represents the result of an export operation
type ExportResult struct {
	Type        string    `json:"type"` // "csv", "json"
	Path        string    `json:"path"`
	RecordCount int       `json:"record_count"`
	Bytes       int64     `json:"bytes"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	ExportedAt  time.Time `json:"exported_at"`
}
