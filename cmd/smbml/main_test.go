package main

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func salesFile(t *testing.T, sku string, n int) string {
	var b strings.Builder
	b.WriteString("date,sku,units\n")
	for i := 0; i < n; i++ {
		v := 80 + 10*math.Sin(2*math.Pi*float64(i)/7) + float64(i%3)
		fmt.Fprintf(&b, "%s,%s,%.1f\n", day0.AddDate(0, 0, i).Format(time.DateOnly), sku, v)
	}
	return writeFile(t, "sales.csv", b.String())
}

func amountsFile(t *testing.T, n int) string {
	var b strings.Builder
	b.WriteString("date,amount\n")
	for i := 0; i < n; i++ {
		v := 50.0
		if i == n-10 {
			v = 500
		}
		fmt.Fprintf(&b, "%s,%g\n", day0.AddDate(0, 0, i).Format(time.DateOnly), v)
	}
	return writeFile(t, "input.csv", b.String())
}

func execute(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), append(args, "--log-level", "error"), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestForecastCommand(t *testing.T) {
	input := salesFile(t, "SKU001", 100)

	code, stdout, stderr := execute(t, "forecast", "--sku", "SKU001", "--input", input, "--horizon", "7")

	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Forecast for next 7 days (SKU001)")
	assert.Contains(t, stdout, "Backtest (last 7 days)")
	assert.Equal(t, 7, strings.Count(stdout, "staff needed"))
}

func TestForecastCommandErrors(t *testing.T) {
	input := salesFile(t, "SKU001", 100)

	tests := []struct {
		name       string
		args       []string
		wantStderr string
	}{
		{
			name:       "missing sku",
			args:       []string{"forecast", "--input", input},
			wantStderr: "SKU not specified",
		},
		{
			name:       "missing input",
			args:       []string{"forecast", "--sku", "SKU001", "--input", filepath.Join(t.TempDir(), "none.csv")},
			wantStderr: "input not found",
		},
		{
			name:       "unknown sku",
			args:       []string{"forecast", "--sku", "SKU404", "--input", input},
			wantStderr: "there are 0 sales available, while 90 are required",
		},
		{
			name:       "window larger than series length",
			args:       []string{"forecast", "--sku", "SKU001", "--input", input, "--window-size", "61"},
			wantStderr: "invalid fit config",
		},
		{
			name:       "stray argument",
			args:       []string{"forecast", "extra"},
			wantStderr: "unknown command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := execute(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.wantStderr)
			assert.NotContains(t, stdout, "Forecast for next")
		})
	}
}

func TestAnomalyCommand(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "anomalies.csv")
	metricsFile := filepath.Join(dir, "run.prom")

	code, stdout, stderr := execute(t, "anomaly",
		"--input", amountsFile(t, 100),
		"--output", output,
		"--metrics-file", metricsFile)

	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Scored 37 points")
	assert.FileExists(t, output)
	assert.FileExists(t, metricsFile)
}

func TestAnomalyCommandInsufficientInput(t *testing.T) {
	output := filepath.Join(t.TempDir(), "anomalies.csv")

	code, _, stderr := execute(t, "anomaly", "--input", amountsFile(t, 29), "--output", output)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "there are 29 rows available, while 30 are required")
	assert.NoFileExists(t, output)
}

func TestConfigFileWithFlagOverride(t *testing.T) {
	input := salesFile(t, "A", 100)
	cfgPath := writeFile(t, "config.yaml", fmt.Sprintf("forecast:\n  input: %q\n  horizon: 3\n", input))

	code, stdout, stderr := execute(t, "forecast", "--config", cfgPath, "--sku", "A", "--horizon", "5")

	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Forecast for next 5 days (A)")
}
