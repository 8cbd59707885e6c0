package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"resale-price/internal/features"
	"resale-price/internal/ml"

	"github.com/spf13/cobra"
)

// NewDriftCmd creates the 'drift' command that compares the inputs logged by
// the server with a baseline dataset.
func NewDriftCmd() *cobra.Command {
	var source sampleSource
	var since time.Duration
	var driftCfg ml.DriftConfig
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Compare recently served inputs with the training data",
		Example: `  resalectl drift --dataset listings
  resalectl drift --csv clothing_resale_prices.csv --since 168h --psi 0.2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if source.dataPath == "" {
				source.dataPath = dataPathOr(settings)
			}
			source.seed = settings.SplitSeed

			samples, err := source.load()
			if err != nil {
				return err
			}
			baseline := make([]features.RawRecord, len(samples))
			for i, s := range samples {
				baseline[i] = s.RawRecord
			}

			store, err := openStore(source.dataPath)
			if err != nil {
				return err
			}
			defer store.Close()

			end := time.Now()
			entries, err := store.GetPredictions(end.Add(-since), end)
			if err != nil {
				return err
			}
			current := make([]features.RawRecord, 0, len(entries))
			for _, e := range entries {
				// Rejected requests carry no usable record.
				if e.Result.Status == ml.StatusError && e.Result.ErrorKind == ml.ErrorKindInput {
					continue
				}
				current = append(current, e.ModelFeatures())
			}

			report, err := ml.DetectDrift(baseline, current, driftCfg)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return printDrift(cmd, report)
		},
	}

	cmd.Flags().StringVar(&source.csvPath, "csv", "", "Baseline CSV file")
	cmd.Flags().StringVar(&source.dataset, "dataset", "", "Baseline stored dataset")
	cmd.Flags().IntVar(&source.synthetic, "synthetic", 0, "Baseline of N generated rows")
	cmd.Flags().StringVar(&source.dataPath, "data", "", "Data directory (default DATA_PATH)")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "Window of logged predictions to compare")
	cmd.Flags().Float64Var(&driftCfg.PSIThreshold, "psi", 0.1, "PSI alert threshold")
	cmd.Flags().Float64Var(&driftCfg.KSThreshold, "ks", 0.2, "KS alert threshold")
	cmd.Flags().IntVar(&driftCfg.MinSamples, "min-samples", 30, "Minimum rows on each side")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func printDrift(cmd *cobra.Command, report ml.DriftReport) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Baseline %d rows, current %d rows\n\n", report.BaselineRows, report.CurrentRows)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tPSI\tKS\tUNSEEN")
	for _, fd := range report.Fields {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.1f%%\n", fd.Field, fd.PSI, fd.KS, 100*fd.UnseenShare)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(report.Alerts) == 0 {
		fmt.Fprintln(w, "\nNo drift detected.")
		return nil
	}
	fmt.Fprintln(w)
	for _, a := range report.Alerts {
		fmt.Fprintf(w, "[%s] %s %s=%.4f > %.4f: %s\n", a.Severity, a.Field, a.Method, a.Score, a.Threshold, a.Recommendation)
	}
	return nil
}
