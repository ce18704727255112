package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// OutputManager handles export file organization and path management
type OutputManager struct {
	BaseOutputDir string
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string) *OutputManager {
	if baseOutputDir == "" {
		baseOutputDir = "."
	}
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// ResolvePath builds the full path for an export file.
// A relative dir is placed under BaseOutputDir; an absolute dir is used as is.
// The directory is created when missing.
func (om *OutputManager) ResolvePath(dir, fileName string) (string, error) {
	target := om.BaseOutputDir
	if dir != "" {
		if filepath.IsAbs(dir) {
			target = dir
		} else {
			target = filepath.Join(om.BaseOutputDir, dir)
		}
	}

	if err := os.MkdirAll(target, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	// Clean the filename to remove any path separators
	cleanFileName := filepath.Base(fileName)
	if cleanFileName == "." || cleanFileName == string(filepath.Separator) {
		return "", fmt.Errorf("invalid export file name %q", fileName)
	}

	return filepath.Join(target, cleanFileName), nil
}

// DefaultFileName returns "<prefix>_<YYYY-MM-DD>.<ext>".
func (om *OutputManager) DefaultFileName(prefix, ext string, now time.Time) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "csv"
	}
	return fmt.Sprintf("%s_%s.%s", prefix, now.Format("2006-01-02"), ext)
}

// GetFileType determines the file type based on extension
func (om *OutputManager) GetFileType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return "csv"
	case ".json":
		return "json"
	default:
		return "unknown"
	}
}

// GetFileSize returns the size of a file in bytes
func (om *OutputManager) GetFileSize(filePath string) (int64, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return 0, err
	}
	return fileInfo.Size(), nil
}
