// Package report renders forecast runs for the console.
package report

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hed1ad/gosmbml/pkg/forecast"
	"github.com/hed1ad/gosmbml/pkg/forecast/backtest"
)

// Forecast is everything printed for one series.
type Forecast struct {
	Key             string
	Start           time.Time
	ConfidenceLevel float64
	Result          *forecast.Result
	Backtest        backtest.Metrics
	Staff           []int
}

// Date returns the date of forecast step i.
func (f Forecast) Date(i int) time.Time {
	return f.Start.AddDate(0, 0, i)
}

// WriteForecast prints the forecast lines, the backtest line and the
// staffing lines of f.
func WriteForecast(w io.Writer, f Forecast) error {
	bw := bufio.NewWriter(w)
	h := f.Result.Len()

	if f.Key != "" {
		fmt.Fprintf(bw, "Forecast for next %d days (%s)\n", h, f.Key)
	} else {
		fmt.Fprintf(bw, "Forecast for next %d days\n", h)
	}

	ci := Number(f.ConfidenceLevel * 100)
	for i := 0; i < h; i++ {
		fmt.Fprintf(bw, "%s: %s (%s%% CI: %s–%s)\n",
			f.Date(i).Format(time.DateOnly),
			Number(f.Result.Forecasted[i]),
			ci,
			Number(f.Result.Lower[i]),
			Number(f.Result.Upper[i]))
	}

	fmt.Fprintf(bw, "Backtest (last %d days): Mean Absolute Error=%s, Mean Absolute Percentage Error=%s\n",
		f.Backtest.Horizon, Number(f.Backtest.MAE), Percent(f.Backtest.MAPE))

	for i, staff := range f.Staff {
		fmt.Fprintf(bw, "%s: Expected %s orders → %d staff needed\n",
			f.Date(i).Format(time.DateOnly), Number(f.Result.Forecasted[i]), staff)
	}

	return bw.Flush()
}

// Number rounds v to at most two decimals and drops trailing zeros.
func Number(v float64) string {
	return decimal.NewFromFloat(v).Round(2).String()
}

// Percent renders a fraction as a percentage with exactly two decimals.
func Percent(v float64) string {
	return decimal.NewFromFloat(v).Shift(2).StringFixed(2) + "%"
}
