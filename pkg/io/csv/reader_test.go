package csv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	smbio "github.com/hed1ad/gosmbml/pkg/io"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestReadSales(t *testing.T) {
	input := strings.Join([]string{
		"date,sku,units",
		"2024-01-01,SKU001,12",
		"# comment line",
		"   # indented comment",
		"   ",
		"",
		"2024-01-02, SKU001 ,13.5",
		"not-a-date,SKU001,10",
		"2024-01-03,SKU002,abc",
		"2024-01-04,SKU002",
		"2024-01-05,SKU002,NaN",
		"01/06/2024,SKU002,7",
	}, "\n")

	r, err := NewReaderFrom(strings.NewReader(input))
	require.NoError(t, err)
	defer r.Close()

	got, err := r.Read()
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "sku", "units"}, r.Headers())
	require.Len(t, got, 3)
	assert.Equal(t, "SKU001", got[0].Key)
	assert.Equal(t, date(2024, 1, 1), got[0].Time)
	assert.Equal(t, 12.0, got[0].Value)
	assert.Equal(t, "SKU001", got[1].Key)
	assert.Equal(t, 13.5, got[1].Value)
	assert.Equal(t, date(2024, 1, 6), got[2].Time)
	assert.Equal(t, 4, r.Skipped())
}

func TestReadAmounts(t *testing.T) {
	input := "date,amount\n2024-03-01,100.5\n2024-03-02 10:30:00,99\nbad,1\n"

	r, err := NewReaderFrom(strings.NewReader(input), WithLayout(LayoutAmounts))
	require.NoError(t, err)

	got, err := r.Read()
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Empty(t, got[0].Key)
	assert.Equal(t, 100.5, got[0].Value)
	assert.Equal(t, time.Date(2024, 3, 2, 10, 30, 0, 0, time.UTC), got[1].Time)
	assert.Equal(t, 1, r.Skipped())
}

func TestReadWithoutHeader(t *testing.T) {
	r, err := NewReaderFrom(strings.NewReader("2024-01-01,5\n2024-01-02,6\n"),
		WithHeader(false), WithLayout(LayoutAmounts))
	require.NoError(t, err)

	got, err := r.Read()
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Nil(t, r.Headers())
}

func TestReadEmptyInput(t *testing.T) {
	r, err := NewReaderFrom(strings.NewReader(""))
	require.NoError(t, err)

	got, err := r.Read()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNewReaderMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, smbio.ErrInputNotFound)
}

func TestNewReaderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,sku,units\n2024-01-01,A,1\n"), 0o644))

	r, err := NewReader(path)
	require.NoError(t, err)

	got, err := r.Read()
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.NoError(t, r.Close())
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2024-02-29", want: date(2024, 2, 29)},
		{in: " 2024/02/29 ", want: date(2024, 2, 29)},
		{in: "2024-02-29T08:00:00Z", want: time.Date(2024, 2, 29, 8, 0, 0, 0, time.UTC)},
		{in: "29-Feb-2024", want: date(2024, 2, 29)},
		{in: "2024-13-01", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, smbio.ErrMalformedRow)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}
