// Package csv provides CSV file reading and writing for tabular series data.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	smbio "github.com/hed1ad/gosmbml/pkg/io"
	"github.com/hed1ad/gosmbml/pkg/timeseries"
)

// Layout selects the column layout of the input.
type Layout int

const (
	// LayoutSales is date,sku,units.
	LayoutSales Layout = iota
	// LayoutAmounts is date,amount.
	LayoutAmounts
)

// dateLayouts are tried in order when parsing the date column.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02-Jan-2006",
}

var _ smbio.Reader = (*Reader)(nil)

// Reader reads observations from CSV files.
type Reader struct {
	closer    io.Closer
	reader    *csv.Reader
	hasHeader bool
	headers   []string
	layout    Layout
	skipped   int
	logger    zerolog.Logger
}

// Option configures a CSV reader.
type Option func(*Reader)

// WithHeader indicates the CSV has a header row.
func WithHeader(has bool) Option {
	return func(r *Reader) {
		r.hasHeader = has
	}
}

// WithLayout sets the column layout.
func WithLayout(layout Layout) Option {
	return func(r *Reader) {
		r.layout = layout
	}
}

// WithLogger sets the logger used to trace skipped rows.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reader) {
		r.logger = logger
	}
}

// NewReader opens filename for reading. A missing file yields
// io.ErrInputNotFound.
func NewReader(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", smbio.ErrInputNotFound, filename)
		}
		return nil, err
	}

	r, err := newReader(file, opts...)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// NewReaderFrom reads CSV data from src. Close is a no-op.
func NewReaderFrom(src io.Reader, opts ...Option) (*Reader, error) {
	return newReader(src, opts...)
}

func newReader(src io.Reader, opts ...Option) (*Reader, error) {
	cr := csv.NewReader(src)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	r := &Reader{
		reader:    cr,
		hasHeader: true,
		layout:    LayoutSales,
		logger:    zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	// Read header if present
	if r.hasHeader {
		headers, err := r.reader.Read()
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("read header: %w", err)
		}
		r.headers = headers
	}

	return r, nil
}

// Headers returns the column headers.
func (r *Reader) Headers() []string {
	return r.headers
}

// Skipped returns how many rows Read has dropped as malformed.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Read returns all valid rows as observations in file order.
func (r *Reader) Read() ([]timeseries.Observation, error) {
	var data []timeseries.Observation

	for {
		record, err := r.reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				r.skip(perr.Line, err)
				continue
			}
			return nil, err
		}

		if isBlankOrComment(record) {
			continue
		}

		obs, err := r.parseRow(record)
		if err != nil {
			line, _ := r.reader.FieldPos(0)
			r.skip(line, err)
			continue
		}
		data = append(data, obs)
	}

	return data, nil
}

// isBlankOrComment catches whitespace-only lines and comments indented past
// the first column, which encoding/csv hands back as records.
func isBlankOrComment(record []string) bool {
	if len(record) == 0 {
		return true
	}
	first := strings.TrimSpace(record[0])
	if len(record) == 1 && first == "" {
		return true
	}
	return strings.HasPrefix(first, "#")
}

func (r *Reader) skip(line int, err error) {
	r.skipped++
	r.logger.Debug().Int("line", line).Err(err).Msg("skipping row")
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// parseRow converts a record to an observation according to the layout.
func (r *Reader) parseRow(record []string) (timeseries.Observation, error) {
	var obs timeseries.Observation

	var dateField, keyField, valueField string
	switch r.layout {
	case LayoutAmounts:
		if len(record) < 2 {
			return obs, fmt.Errorf("%w: want 2 fields, got %d", smbio.ErrMalformedRow, len(record))
		}
		dateField, valueField = record[0], record[1]
	default:
		if len(record) < 3 {
			return obs, fmt.Errorf("%w: want 3 fields, got %d", smbio.ErrMalformedRow, len(record))
		}
		dateField, keyField, valueField = record[0], record[1], record[2]
	}

	ts, err := ParseDate(dateField)
	if err != nil {
		return obs, err
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(valueField), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return obs, fmt.Errorf("%w: value %q", smbio.ErrMalformedRow, valueField)
	}

	obs.Key = strings.TrimSpace(keyField)
	obs.Time = ts
	obs.Value = v
	return obs, nil
}

// ParseDate parses s with the first matching supported layout.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q", smbio.ErrMalformedRow, s)
}
