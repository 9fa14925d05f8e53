package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hed1ad/gosmbml/pkg/detectors"
	smbio "github.com/hed1ad/gosmbml/pkg/io"
)

var _ smbio.Writer = (*Writer)(nil)

// anomalyHeader is the column layout of the anomaly report.
var anomalyHeader = []string{"date", "is_anomaly", "raw_score", "magnitude"}

// Writer writes anomaly records as CSV.
type Writer struct {
	closer      io.Closer
	writer      *csv.Writer
	wroteHeader bool
}

// NewWriter creates filename, and its parent directory when missing.
func NewWriter(filename string) (*Writer, error) {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	w := NewWriterTo(file)
	w.closer = file
	return w, nil
}

// NewWriterTo writes CSV to dst. Close flushes but does not close dst.
func NewWriterTo(dst io.Writer) *Writer {
	return &Writer{writer: csv.NewWriter(dst)}
}

// Write outputs a single record, preceded by the header on first use.
func (w *Writer) Write(record detectors.Record) error {
	if !w.wroteHeader {
		if err := w.writer.Write(anomalyHeader); err != nil {
			return err
		}
		w.wroteHeader = true
	}

	return w.writer.Write([]string{
		FormatDate(record.Timestamp),
		strconv.FormatBool(record.IsAnomaly),
		strconv.FormatFloat(record.RawScore, 'f', 6, 64),
		strconv.FormatFloat(record.Magnitude, 'f', 6, 64),
	})
}

// WriteAll outputs multiple records.
func (w *Writer) WriteAll(records []detectors.Record) error {
	for _, r := range records {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close writes the header if nothing was written, flushes, and closes the
// underlying file.
func (w *Writer) Close() error {
	if !w.wroteHeader {
		if err := w.writer.Write(anomalyHeader); err != nil {
			return err
		}
		w.wroteHeader = true
	}

	w.writer.Flush()
	err := w.writer.Error()

	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
		w.closer = nil
	}
	return err
}

// FormatDate renders midnight timestamps as a plain date and anything else
// as RFC 3339.
func FormatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}
