package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"resale-price/internal/ml"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type trainOptions struct {
	source    sampleSource
	out       string
	modelsDir string
	version   string
	activate  bool

	alpha        float64
	testFraction float64
	seed         int64
}

// NewTrainCmd creates the 'train' command that fits and saves a pipeline.
func NewTrainCmd() *cobra.Command {
	var opts trainOptions

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the encoder and ridge regressor on a labelled dataset",
		Long: `Fit the feature encoder and ridge regressor on labelled rows, evaluate on
a deterministic hold-out split, save the pipeline and register it as a
model version.`,
		Example: `  resalectl train --csv clothing_resale_prices.csv
  resalectl train --dataset listings --alpha 0.5
  resalectl train --synthetic 2000 --out models/demo.json --activate=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			trainOpts := settings.TrainOptions()
			if cmd.Flags().Changed("alpha") {
				trainOpts.Alpha = opts.alpha
			}
			if cmd.Flags().Changed("test-fraction") {
				trainOpts.TestFraction = opts.testFraction
			}
			if cmd.Flags().Changed("seed") {
				trainOpts.Seed = opts.seed
			}
			trainOpts.Version = opts.version
			if opts.modelsDir == "" {
				opts.modelsDir = settings.ModelsDir
			}
			if opts.source.dataPath == "" {
				opts.source.dataPath = dataPathOr(settings)
			}
			opts.source.seed = trainOpts.Seed

			return runTrain(cmd, opts, trainOpts)
		},
	}

	cmd.Flags().StringVar(&opts.source.csvPath, "csv", "", "Training CSV file")
	cmd.Flags().StringVar(&opts.source.dataset, "dataset", "", "Stored dataset name (see 'ingest')")
	cmd.Flags().IntVar(&opts.source.synthetic, "synthetic", 0, "Train on N generated rows")
	cmd.Flags().StringVar(&opts.source.dataPath, "data", "", "Data directory for --dataset")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output path (default <models-dir>/<version>.json)")
	cmd.Flags().StringVar(&opts.modelsDir, "models-dir", "", "Model registry directory")
	cmd.Flags().StringVar(&opts.version, "version", "", "Version label (default timestamp)")
	cmd.Flags().BoolVar(&opts.activate, "activate", true, "Activate the new version")
	cmd.Flags().Float64Var(&opts.alpha, "alpha", 1.0, "Ridge regularization strength")
	cmd.Flags().Float64Var(&opts.testFraction, "test-fraction", 0.2, "Hold-out fraction")
	cmd.Flags().Int64Var(&opts.seed, "seed", 42, "Split seed")

	return cmd
}

func runTrain(cmd *cobra.Command, opts trainOptions, trainOpts ml.TrainOptions) error {
	samples, err := opts.source.load()
	if err != nil {
		return err
	}

	p, metrics, err := ml.Train(samples, trainOpts)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}

	mm, err := ml.NewModelManager(opts.modelsDir)
	if err != nil {
		return err
	}
	if mm.HasVersion(p.Metadata.Version) {
		return fmt.Errorf("version %s already registered", p.Metadata.Version)
	}

	out := opts.out
	if out == "" {
		out = filepath.Join(opts.modelsDir, p.Metadata.Version+".json")
	}
	if err := ml.SavePipeline(out, p); err != nil {
		return err
	}

	if err := mm.AddVersion(p.Metadata.Version, registryPath(opts.modelsDir, out), ml.MetricsFromMetadata(p.Metadata)); err != nil {
		return err
	}
	if opts.activate {
		if err := mm.ActivateVersion(p.Metadata.Version); err != nil {
			return err
		}
	}

	log.Info().Str("version", p.Metadata.Version).Str("path", out).Bool("active", opts.activate).Msg("Model registered")

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Model %s saved to %s\n", p.Metadata.Version, out)
	fmt.Fprintf(w, "  rows:  %d train, %d test\n", p.Metadata.TrainingRows, p.Metadata.TestRows)
	fmt.Fprintf(w, "  RMSE:  %.4f\n", metrics.RMSE)
	fmt.Fprintf(w, "  MAE:   %.4f\n", metrics.MAE)
	fmt.Fprintf(w, "  R2:    %.4f\n", metrics.R2)
	return nil
}

// registryPath stores paths inside the models directory relative to it.
func registryPath(modelsDir, path string) string {
	if rel, err := filepath.Rel(modelsDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
