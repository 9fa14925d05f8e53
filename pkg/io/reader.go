// Package io provides input/output utilities for data ingestion.
package io

import (
	"errors"

	"github.com/hed1ad/gosmbml/pkg/detectors"
	"github.com/hed1ad/gosmbml/pkg/timeseries"
)

var (
	// ErrInputNotFound is returned when the input file does not exist.
	ErrInputNotFound = errors.New("input not found")
	// ErrMalformedRow marks a row with an unparsable date or number.
	// Readers skip such rows; the error never reaches callers of Read.
	ErrMalformedRow = errors.New("malformed row")
)

// Reader is the interface for reading observations from various sources.
type Reader interface {
	// Read returns every valid observation. Malformed rows are skipped.
	Read() ([]timeseries.Observation, error)

	// Close releases resources.
	Close() error
}

// Writer is the interface for writing detection results.
type Writer interface {
	// Write outputs a single result.
	Write(record detectors.Record) error

	// WriteAll outputs multiple results.
	WriteAll(records []detectors.Record) error

	// Close flushes and releases resources.
	Close() error
}
