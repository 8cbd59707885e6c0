package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"resale-price/internal/ml"

	"github.com/spf13/cobra"
)

// NewInspectCmd creates the 'inspect' command that reports a model's
// metadata, its largest coefficients and, given data, per-field importance.
func NewInspectCmd() *cobra.Command {
	var modelPath string
	var top int
	var source sampleSource
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show model metadata and feature importance",
		Example: `  resalectl inspect
  resalectl inspect --model models/20240101-120000.json --top 5
  resalectl inspect --csv holdout.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if modelPath == "" {
				modelPath = settings.ModelPath
			}
			if source.dataPath == "" {
				source.dataPath = dataPathOr(settings)
			}
			source.seed = settings.SplitSeed

			resolved, err := ml.ResolveModelPath(modelPath)
			if err != nil {
				return fmt.Errorf("resolve model: %w", err)
			}
			p, err := ml.LoadPipeline(resolved)
			if err != nil {
				return err
			}

			report := inspectReport{Metadata: p.Metadata, Coefficients: ml.CoefficientImportance(p)}
			if top > 0 && top < len(report.Coefficients) {
				report.Coefficients = report.Coefficients[:top]
			}

			if source.csvPath != "" || source.dataset != "" || source.synthetic > 0 {
				samples, err := source.load()
				if err != nil {
					return err
				}
				m, err := ml.Evaluate(p, samples)
				if err != nil {
					return err
				}
				report.Evaluation = &m
				if report.Fields, err = ml.PermutationImportance(p, samples, settings.SplitSeed); err != nil {
					return err
				}
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			return report.print(cmd)
		},
	}

	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "Model file or registry directory (default MODEL_PATH)")
	cmd.Flags().IntVar(&top, "top", 10, "Number of coefficients to show (0 for all)")
	cmd.Flags().StringVar(&source.csvPath, "csv", "", "Evaluate on a CSV file")
	cmd.Flags().StringVar(&source.dataset, "dataset", "", "Evaluate on a stored dataset")
	cmd.Flags().IntVar(&source.synthetic, "synthetic", 0, "Evaluate on N generated rows")
	cmd.Flags().StringVar(&source.dataPath, "data", "", "Data directory for --dataset")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

type inspectReport struct {
	Metadata     ml.ModelMetadata     `json:"metadata"`
	Coefficients []ml.FeatureWeight   `json:"coefficients"`
	Evaluation   *ml.EvalMetrics      `json:"evaluation,omitempty"`
	Fields       []ml.FieldImportance `json:"fields,omitempty"`
}

func (r inspectReport) print(cmd *cobra.Command) error {
	md := r.Metadata
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Model %s\n", md.Version)
	fmt.Fprintf(w, "  trained:   %s\n", md.TrainedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "  rows:      %d train, %d test\n", md.TrainingRows, md.TestRows)
	fmt.Fprintf(w, "  alpha:     %g\n", md.Alpha)
	fmt.Fprintf(w, "  currency:  %s\n", md.Currency)
	fmt.Fprintf(w, "  features:  %d\n", len(md.Features))
	fmt.Fprintf(w, "  hold-out:  RMSE %.4f  MAE %.4f  R2 %.4f\n\n", md.RMSE, md.MAE, md.R2)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FEATURE\tWEIGHT\tSHARE")
	for _, fw := range r.Coefficients {
		fmt.Fprintf(tw, "%s\t%+.4f\t%.1f%%\n", fw.Name, fw.Weight, 100*fw.Share)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.Evaluation == nil {
		return nil
	}
	fmt.Fprintf(w, "\nEvaluated on %d rows: RMSE %.4f  MAE %.4f  R2 %.4f\n\n", r.Evaluation.N, r.Evaluation.RMSE, r.Evaluation.MAE, r.Evaluation.R2)

	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tRMSE WHEN SHUFFLED\tINCREASE")
	for _, fi := range r.Fields {
		fmt.Fprintf(tw, "%s\t%.4f\t%+.4f\n", fi.Field, fi.ShuffledRMSE, fi.Increase)
	}
	return tw.Flush()
}
