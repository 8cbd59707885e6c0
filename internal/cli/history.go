package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the 'history' command that reads the prediction log
// written by the server.
func NewHistoryCmd() *cobra.Command {
	var dataPath string
	var since time.Duration
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show predictions logged by the server",
		Example: `  resalectl history --since 1h
  resalectl history --data /var/lib/resale --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataPath == "" {
				settings, err := loadSettings()
				if err != nil {
					return err
				}
				dataPath = dataPathOr(settings)
			}

			store, err := openStore(dataPath)
			if err != nil {
				return err
			}
			defer store.Close()

			end := time.Now()
			entries, err := store.GetPredictions(end.Add(-since), end)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No predictions in the last %s.\n", since)
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tMODEL\tBRAND\tCATEGORY\tORIGINAL\tUSAGE\tRESULT")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%d\t%s\n",
					e.Timestamp.Local().Format(time.DateTime), e.ModelVersion, e.Record.Brand,
					e.Record.Category, e.Record.OriginalPrice, e.Record.UsageLevel, e.Display)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Data directory (default DATA_PATH)")
	cmd.Flags().DurationVar(&since, "since", 24*time.Hour, "How far back to look")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}
