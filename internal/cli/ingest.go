package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"resale-price/internal/dataset"

	"github.com/spf13/cobra"
)

// NewIngestCmd creates the 'ingest' command that stores a CSV as a named dataset.
func NewIngestCmd() *cobra.Command {
	var csvPath, name, dataPath string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Store a labelled CSV as a named dataset",
		Example: `  resalectl ingest --csv clothing_resale_prices.csv --dataset listings
  resalectl train --dataset listings`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if csvPath == "" || name == "" {
				return errors.New("--csv and --dataset are required")
			}
			if dataPath == "" {
				settings, err := loadSettings()
				if err != nil {
					return err
				}
				dataPath = dataPathOr(settings)
			}

			samples, err := dataset.LoadCSVFile(csvPath)
			if err != nil {
				return err
			}

			store, err := openStore(dataPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.StoreSamples(name, samples); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %d samples in dataset %q\n", len(samples), name)
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file to ingest")
	cmd.Flags().StringVar(&name, "dataset", "", "Dataset name (replaced if it exists)")
	cmd.Flags().StringVar(&dataPath, "data", "", "Data directory")

	return cmd
}

// NewDatasetsCmd creates the 'datasets' command listing stored datasets.
func NewDatasetsCmd() *cobra.Command {
	var dataPath, remove string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "datasets",
		Aliases: []string{"ds"},
		Short:   "List or remove stored datasets",
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

			if remove != "" {
				if err := store.DeleteDataset(remove); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed dataset %q\n", remove)
				return nil
			}

			list, err := store.ListDatasets()
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No datasets stored.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tROWS")
			for _, d := range list {
				fmt.Fprintf(tw, "%s\t%d\n", d.Name, d.Rows)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Data directory")
	cmd.Flags().StringVar(&remove, "rm", "", "Remove the named dataset")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}
