package pipeline

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-mega645/models"
)

// MultiWriter fans every call out to a fixed set of writers.
type MultiWriter struct {
	writers []OutputWriter
}

// NewMultiWriter combines writers. They are driven in the given order.
func NewMultiWriter(writers ...OutputWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// NewDualWriter opens a CSV file and its JSONL sibling behind one writer.
func NewDualWriter(csvFilename, jsonFilename string) (*MultiWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, err
	}
	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		_ = csvWriter.Close()
		return nil, err
	}
	return NewMultiWriter(csvWriter, jsonWriter), nil
}

// Write stops at the first writer that fails.
func (mw *MultiWriter) Write(records []models.DrawRecord) error {
	for i, w := range mw.writers {
		if err := w.Write(records); err != nil {
			return fmt.Errorf("writer %d: %w", i, err)
		}
	}
	return nil
}

// Close closes every writer, even after a failure.
func (mw *MultiWriter) Close() error {
	var errs []error
	for i, w := range mw.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close writer %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks every writer and joins the failures.
func (mw *MultiWriter) Validate() error {
	var errs []error
	for i, w := range mw.writers {
		if err := w.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("validate writer %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
