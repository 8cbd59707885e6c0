package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"resale-price/internal/ml"

	"github.com/spf13/cobra"
)

// NewVersionsCmd creates the 'versions' command and its activate and
// rollback subcommands.
func NewVersionsCmd() *cobra.Command {
	var modelsDir string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List registered model versions",
		Example: `  resalectl versions
  resalectl versions activate 20240101-120000
  resalectl versions rollback`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mm, err := openManager(modelsDir)
			if err != nil {
				return err
			}

			versions := mm.ListVersions()
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), versions)
			}
			if len(versions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No model versions registered.")
				fmt.Fprintln(cmd.OutOrStdout(), "Run 'resalectl train' to create one.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ACTIVE\tVERSION\tCREATED\tRMSE\tR2\tPATH")
			for _, v := range versions {
				active := ""
				if v.IsActive {
					active = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%.4f\t%s\n",
					active, v.Version, v.CreatedAt.Format(time.RFC3339), v.Metrics.RMSE, v.Metrics.R2, v.Path)
			}
			return tw.Flush()
		},
	}

	cmd.PersistentFlags().StringVar(&modelsDir, "models-dir", "", "Model registry directory (default MODELS_DIR)")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "activate VERSION",
		Short: "Make VERSION the active model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mm, err := openManager(modelsDir)
			if err != nil {
				return err
			}
			if err := mm.ActivateVersion(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Activated %s\n", args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Activate the version registered before the active one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mm, err := openManager(modelsDir)
			if err != nil {
				return err
			}
			if err := mm.Rollback(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled back to %s\n", mm.GetCurrentVersion().Version)
			return nil
		},
	})

	return cmd
}

func openManager(modelsDir string) (*ml.ModelManager, error) {
	if modelsDir == "" {
		settings, err := loadSettings()
		if err != nil {
			return nil, err
		}
		modelsDir = settings.ModelsDir
	}
	return ml.NewModelManager(modelsDir)
}
