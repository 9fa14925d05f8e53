package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hed1ad/gosmbml/pkg/config"
)

func newAnomalyCmd(a *app, defaults *config.Config) *cobra.Command {
	ac := defaults.Anomaly

	cmd := &cobra.Command{
		Use:   "anomaly",
		Short: "Flag anomalous transaction amounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := a.setup(cmd, func(cfg *config.Config) {
				flags := cmd.Flags()
				if flags.Changed("input") {
					cfg.Anomaly.Input = ac.Input
				}
				if flags.Changed("output") {
					cfg.Anomaly.Output = ac.Output
				}
				if flags.Changed("threshold") {
					cfg.Anomaly.Threshold = ac.Threshold
				}
				if flags.Changed("batch-size") {
					cfg.Anomaly.BatchSize = ac.BatchSize
				}
				if flags.Changed("sensitivity") {
					cfg.Anomaly.Sensitivity = ac.Sensitivity
				}
			})
			if err != nil {
				return err
			}

			summary, err := a.runner().RunAnomaly(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(a.stdout, "Scored %d points, %d anomalies written to %s\n",
				summary.Scored, summary.Flagged, summary.Output)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&ac.Input, "input", ac.Input, "amounts CSV (date,amount)")
	f.StringVar(&ac.Output, "output", ac.Output, "anomaly CSV to write")
	f.Float64Var(&ac.Threshold, "threshold", ac.Threshold, "raw score above which a point is anomalous")
	f.IntVar(&ac.BatchSize, "batch-size", ac.BatchSize, "points scored per chunk")
	f.Float64Var(&ac.Sensitivity, "sensitivity", ac.Sensitivity, "sensitivity in [0, 100]")

	return cmd
}
