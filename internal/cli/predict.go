package cli

import (
	"context"
	"fmt"
	"time"

	"resale-price/internal/client"
	"resale-price/internal/features"
	"resale-price/internal/ml"

	"github.com/spf13/cobra"
)

type predictOptions struct {
	values     map[string]*string
	modelPath  string
	mode       string
	rate       float64
	decimals   int
	remote     string
	timeout    time.Duration
	jsonOutput bool
}

// NewPredictCmd creates the 'predict' command that prices one item, either
// with a local model file or against a running server.
func NewPredictCmd() *cobra.Command {
	opts := predictOptions{values: map[string]*string{}}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Estimate the resale price of one item",
		Example: `  resalectl predict --brand Zara --category Jacket --color Black --size M \
    --material Wool --original-price 5000 --usage 2 --mode resale
  resalectl predict --remote http://localhost:5000 --brand Gucci --original-price 300 --usage 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd, opts)
		},
	}

	for _, f := range []struct {
		field features.Field
		flag  string
		usage string
	}{
		{features.FieldBrand, "brand", "Brand, e.g. Zara"},
		{features.FieldCategory, "category", "Category, e.g. Jacket"},
		{features.FieldColor, "color", "Color"},
		{features.FieldSize, "size", "Size (XS-XL)"},
		{features.FieldMaterial, "material", "Material"},
		{features.FieldOriginalPrice, "original-price", "Original purchase price"},
		{features.FieldUsageLevel, "usage", "Usage level 0 (unused) to 5 (heavily worn)"},
	} {
		opts.values[string(f.field)] = cmd.Flags().String(f.flag, "", f.usage)
	}

	cmd.Flags().StringVarP(&opts.modelPath, "model", "m", "", "Model file or registry directory (default MODEL_PATH)")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Pricing mode: direct or resale (default PRICING_MODE)")
	cmd.Flags().Float64Var(&opts.rate, "rate", 0, "Exchange rate, display units per model unit (default EXCHANGE_RATE)")
	cmd.Flags().IntVar(&opts.decimals, "decimals", -1, "Price decimals (default PRICE_DECIMALS)")
	cmd.Flags().StringVar(&opts.remote, "remote", "", "Server base URL; predict over HTTP instead of locally")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "Remote request timeout")
	cmd.Flags().BoolVarP(&opts.jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func runPredict(cmd *cobra.Command, opts predictOptions) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	values := make(map[string]string, len(opts.values))
	for k, v := range opts.values {
		values[k] = *v
	}
	rec, err := features.ParseRecord(values, settings.MissingFields)
	if err != nil {
		return err
	}

	if opts.remote != "" {
		ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
		defer cancel()

		resp, err := client.New(opts.remote, opts.timeout).Predict(ctx, rec, "")
		if err != nil {
			return err
		}
		if opts.jsonOutput {
			return writeJSON(cmd.OutOrStdout(), resp)
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.Display)
		return nil
	}

	policy := settings.PricingPolicy()
	if opts.mode != "" {
		mode, err := ml.ParsePricingMode(opts.mode)
		if err != nil {
			return err
		}
		policy.Mode = mode
	}
	if opts.rate != 0 {
		policy.ExchangeRate = opts.rate
	}
	if opts.decimals >= 0 {
		policy.Decimals = opts.decimals
	}

	modelPath := opts.modelPath
	if modelPath == "" {
		modelPath = settings.ModelPath
	}
	resolved, err := ml.ResolveModelPath(modelPath)
	if err != nil {
		return fmt.Errorf("resolve model: %w", err)
	}
	pipeline, err := ml.LoadPipeline(resolved)
	if err != nil {
		return err
	}

	predictor, err := ml.NewPredictor(pipeline, policy, nil)
	if err != nil {
		return err
	}

	result := predictor.Predict(rec)
	if opts.jsonOutput {
		return writeJSON(cmd.OutOrStdout(), struct {
			ml.PredictionResult
			Display string `json:"display"`
		}{result, result.Display()})
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Display())
	return nil
}
