package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-mega645/config"
	"github.com/aluiziolira/go-scrape-mega645/models"
)

// NewWriter returns the writer for format. For "dual" the JSON file sits next
// to filename with a .json extension.
func NewWriter(format, filename string) (OutputWriter, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONWriter(filename)
	case "csv", "":
		return NewCSVWriter(filename)
	case "dual":
		return NewDualWriter(filename, config.JSONSiblingPath(filename))
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// WriteDataset writes records to path in one pass. The destination directory
// is created when missing. Any I/O failure is returned and records are left
// untouched, so the call can be repeated.
func WriteDataset(records models.ResultSet, path, format string) (err error) {
	writer, err := NewWriter(format, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := writer.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close dataset: %w", cerr))
		}
	}()

	if err := writer.Write(records); err != nil {
		return fmt.Errorf("write dataset: %w", err)
	}
	if len(records) == 0 {
		return nil
	}
	if err := writer.Validate(); err != nil {
		return fmt.Errorf("validate dataset: %w", err)
	}
	return nil
}
