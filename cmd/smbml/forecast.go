package main

import (
	"github.com/spf13/cobra"

	"github.com/hed1ad/gosmbml/pkg/config"
)

func newForecastCmd(a *app, defaults *config.Config) *cobra.Command {
	var skus []string
	fc := defaults.Forecast

	cmd := &cobra.Command{
		Use:   "forecast --sku <SKU>",
		Short: "Forecast daily demand and staffing for one or more SKUs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := a.setup(cmd, func(cfg *config.Config) {
				flags := cmd.Flags()
				if flags.Changed("input") {
					cfg.Forecast.Input = fc.Input
				}
				if flags.Changed("window-size") {
					cfg.Forecast.WindowSize = fc.WindowSize
				}
				if flags.Changed("series-length") {
					cfg.Forecast.SeriesLength = fc.SeriesLength
				}
				if flags.Changed("train-size") {
					cfg.Forecast.TrainSize = fc.TrainSize
				}
				if flags.Changed("horizon") {
					cfg.Forecast.Horizon = fc.Horizon
				}
				if flags.Changed("confidence") {
					cfg.Forecast.ConfidenceLevel = fc.ConfidenceLevel
				}
				if flags.Changed("capacity") {
					cfg.Forecast.StaffCapacityPerDay = fc.StaffCapacityPerDay
				}
			})
			if err != nil {
				return err
			}

			return a.runner().RunForecast(cmd.Context(), skus)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&skus, "sku", nil, "SKU to forecast; repeat or comma-separate for several")
	f.StringVar(&fc.Input, "input", fc.Input, "sales CSV (date,sku,units)")
	f.IntVar(&fc.WindowSize, "window-size", fc.WindowSize, "SSA window length L")
	f.IntVar(&fc.SeriesLength, "series-length", fc.SeriesLength, "observations N used to fit")
	f.IntVar(&fc.TrainSize, "train-size", fc.TrainSize, "minimum history T")
	f.IntVar(&fc.Horizon, "horizon", fc.Horizon, "days to forecast")
	f.Float64Var(&fc.ConfidenceLevel, "confidence", fc.ConfidenceLevel, "confidence level of the bounds, in (0, 1)")
	f.Float64Var(&fc.StaffCapacityPerDay, "capacity", fc.StaffCapacityPerDay, "orders one person handles per day")

	return cmd
}
