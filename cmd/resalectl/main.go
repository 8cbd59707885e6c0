/*
Package main is the entry point for the resalectl CLI.

resalectl trains, inspects and queries the resale price model served by
resaled.

Usage:
  resalectl [command]

Available Commands:
  generate    Write a synthetic labelled dataset as CSV
  ingest      Store a labelled CSV as a named dataset
  datasets    List or remove stored datasets
  train       Fit the encoder and ridge regressor on a labelled dataset
  inspect     Show model metadata and feature importance
  versions    List, activate or roll back model versions
  predict     Estimate the resale price of one item
  history     Show predictions logged by the server
  drift       Compare recently served inputs with the training data
  status      Show health and model details of a running server

Examples:
  # Train on a CSV and price an item with the new model
  resalectl train --csv clothing_resale_prices.csv
  resalectl predict --brand Zara --original-price 5000 --usage 2 --mode resale
*/
package main

import (
	"fmt"
	"os"
	"time"

	"resale-price/internal/cli"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "resalectl",
		Short: "Train and query the used-clothing resale price model",
		Long: `resalectl manages the resale price model: it generates and stores
labelled datasets, trains and registers ridge regression models, reports
feature importance, and prices single items locally or against resaled.

` + cli.EnvHelp,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.WarnLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			zerolog.SetGlobalLevel(level)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log progress to stderr")

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd.AddCommand(cli.NewGenerateCmd())
	rootCmd.AddCommand(cli.NewIngestCmd())
	rootCmd.AddCommand(cli.NewDatasetsCmd())
	rootCmd.AddCommand(cli.NewTrainCmd())
	rootCmd.AddCommand(cli.NewInspectCmd())
	rootCmd.AddCommand(cli.NewVersionsCmd())
	rootCmd.AddCommand(cli.NewPredictCmd())
	rootCmd.AddCommand(cli.NewHistoryCmd())
	rootCmd.AddCommand(cli.NewDriftCmd())
	rootCmd.AddCommand(cli.NewStatusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
