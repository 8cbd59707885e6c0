package cli

import (
	"fmt"
	"os"

	"resale-price/internal/dataset"

	"github.com/spf13/cobra"
)

// NewGenerateCmd creates the 'generate' command that writes a synthetic CSV.
func NewGenerateCmd() *cobra.Command {
	var rows int
	var seed int64
	var out string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic labelled dataset as CSV",
		Example: `  resalectl generate --rows 5000 --out clothing_resale_prices.csv
  resalectl generate --rows 10 --seed 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rows <= 0 {
				return fmt.Errorf("--rows must be positive, got %d", rows)
			}
			samples := dataset.GenerateSynthetic(rows, seed)

			if out == "" || out == "-" {
				return dataset.WriteCSV(cmd.OutOrStdout(), samples)
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := dataset.WriteCSV(f, samples); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to %s\n", rows, out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&rows, "rows", "n", 1000, "Number of rows")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")

	return cmd
}
