package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/gosmbml/pkg/config"
	"github.com/hed1ad/gosmbml/pkg/forecast"
	smbio "github.com/hed1ad/gosmbml/pkg/io"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// salesCSV writes n days of weekly-seasonal demand per key.
func salesCSV(t *testing.T, days map[string]int) string {
	t.Helper()
	rng := rand.New(rand.NewSource(42))

	var b strings.Builder
	b.WriteString("date,sku,units\n")
	b.WriteString("garbage,row,here\n")
	for key, n := range days {
		for i := 0; i < n; i++ {
			v := 100 + 20*math.Sin(2*math.Pi*float64(i)/7) + rng.NormFloat64()
			fmt.Fprintf(&b, "%s,%s,%.2f\n", day0.AddDate(0, 0, i).Format(time.DateOnly), key, v)
		}
	}

	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

// amountsCSV writes values as daily amounts.
func amountsCSV(t *testing.T, values []float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("date,amount\n")
	for i, v := range values {
		fmt.Fprintf(&b, "%s,%g\n", day0.AddDate(0, 0, i).Format(time.DateOnly), v)
	}

	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func flat(n int, level float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = level
	}
	return values
}

func TestRunForecastMissingKey(t *testing.T) {
	cfg := config.Default()
	err := New(cfg).RunForecast(context.Background(), []string{" ", ","})
	assert.ErrorIs(t, err, ErrMissingArgument)
}

func TestRunForecastInputNotFound(t *testing.T) {
	cfg := config.Default()
	cfg.Forecast.Input = filepath.Join(t.TempDir(), "missing.csv")

	err := New(cfg).RunForecast(context.Background(), []string{"SKU001"})
	assert.ErrorIs(t, err, smbio.ErrInputNotFound)
}

func TestRunForecast(t *testing.T) {
	cfg := config.Default()
	cfg.Forecast.Input = salesCSV(t, map[string]int{"SKU001": 120, "SKU002": 40})
	cfg.MetricsFile = filepath.Join(t.TempDir(), "run.prom")

	var out bytes.Buffer
	err := New(cfg, WithStdout(&out)).RunForecast(context.Background(), []string{"SKU001,SKU002"})

	require.Error(t, err)
	assert.ErrorIs(t, err, forecast.ErrInsufficientData)
	assert.Contains(t, err.Error(), "SKU002")
	assert.Contains(t, err.Error(), "there are 40 sales available, while 90 are required")

	report := out.String()
	assert.Contains(t, report, "Forecast for next 14 days (SKU001)\n")
	assert.Contains(t, report, "2024-04-30: ")
	assert.Contains(t, report, "Backtest (last 12 days): ")
	assert.Equal(t, 14, strings.Count(report, "staff needed"))
	assert.NotContains(t, report, "SKU002")

	prom, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `smbml_series_total{status="ok"} 1`)
	assert.Contains(t, string(prom), `smbml_series_total{status="failed"} 1`)
	assert.Contains(t, string(prom), `smbml_rows_skipped_total{mode="forecast"} 1`)
}

func TestRunForecastKeepsRequestedOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = 2
	cfg.Forecast.Input = salesCSV(t, map[string]int{"A": 100, "B": 100, "C": 100})

	var out bytes.Buffer
	err := New(cfg, WithStdout(&out)).RunForecast(context.Background(), []string{"C", "A", "B", "A"})
	require.NoError(t, err)

	report := out.String()
	c := strings.Index(report, "(C)")
	a := strings.Index(report, "(A)")
	b := strings.Index(report, "(B)")
	require.True(t, c >= 0 && a >= 0 && b >= 0)
	assert.Less(t, c, a)
	assert.Less(t, a, b)
	assert.Equal(t, 3, strings.Count(report, "Forecast for next"))
}

func TestRunForecastCancelled(t *testing.T) {
	cfg := config.Default()
	cfg.Forecast.Input = salesCSV(t, map[string]int{"A": 100})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(cfg, WithStdout(&bytes.Buffer{})).RunForecast(ctx, []string{"A"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunAnomaly(t *testing.T) {
	values := flat(192, 10)
	values[100] = 100

	cfg := config.Default()
	cfg.Anomaly.Input = amountsCSV(t, values)
	cfg.Anomaly.Output = filepath.Join(t.TempDir(), "out", "anomalies.csv")

	summary, err := New(cfg).RunAnomaly(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 192, summary.Rows)
	assert.Equal(t, 129, summary.Scored)
	assert.Equal(t, 1, summary.Flagged)

	data, err := os.ReadFile(cfg.Anomaly.Output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 130)
	assert.Equal(t, "date,is_anomaly,raw_score,magnitude", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2024-03-04,false,"))
	assert.True(t, strings.HasPrefix(lines[101-63], "2024-04-10,true,"))
}

func TestRunAnomalyInsufficientInput(t *testing.T) {
	cfg := config.Default()
	cfg.Anomaly.Input = amountsCSV(t, flat(29, 5))
	cfg.Anomaly.Output = filepath.Join(t.TempDir(), "anomalies.csv")

	_, err := New(cfg).RunAnomaly(context.Background())
	assert.ErrorIs(t, err, forecast.ErrInsufficientData)
	assert.Contains(t, err.Error(), "there are 29 rows available, while 30 are required")

	_, statErr := os.Stat(cfg.Anomaly.Output)
	assert.True(t, os.IsNotExist(statErr), "no output file on insufficient input")
}

func TestRunAnomalyInputNotFound(t *testing.T) {
	cfg := config.Default()
	cfg.Anomaly.Input = filepath.Join(t.TempDir(), "missing.csv")

	_, err := New(cfg).RunAnomaly(context.Background())
	assert.ErrorIs(t, err, smbio.ErrInputNotFound)
}

func TestNormalizeKeys(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil", in: nil, want: nil},
		{name: "single", in: []string{"SKU001"}, want: []string{"SKU001"}},
		{name: "comma separated", in: []string{"A, B,,C"}, want: []string{"A", "B", "C"}},
		{name: "repeats dropped", in: []string{"A", "B,A", " B "}, want: []string{"A", "B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeKeys(tt.in))
		})
	}
}
