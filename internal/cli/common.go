// Package cli implements the resalectl subcommands.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"resale-price/internal/cfg"
	"resale-price/internal/common"
	"resale-price/internal/dataset"
	"resale-price/internal/storage"

	"github.com/rs/zerolog/log"
)

// sampleSource names where training or evaluation rows come from. Exactly
// one of the fields may be set.
type sampleSource struct {
	csvPath   string
	dataset   string
	dataPath  string
	synthetic int
	seed      int64
}

func (s sampleSource) load() ([]dataset.Sample, error) {
	set := 0
	for _, on := range []bool{s.csvPath != "", s.dataset != "", s.synthetic > 0} {
		if on {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("specify exactly one of --csv, --dataset or --synthetic")
	}

	switch {
	case s.csvPath != "":
		return dataset.LoadCSVFile(s.csvPath)
	case s.dataset != "":
		store, err := openStore(s.dataPath)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.GetSamples(s.dataset)
	default:
		log.Info().Int("rows", s.synthetic).Int64("seed", s.seed).Msg("Generating synthetic samples")
		return dataset.GenerateSynthetic(s.synthetic, s.seed), nil
	}
}

// loadSettings returns the service configuration used for flag defaults.
func loadSettings() (cfg.Settings, error) {
	settings, err := cfg.Load()
	if err != nil {
		return cfg.Settings{}, fmt.Errorf("load config: %w", err)
	}
	return settings, nil
}

func openStore(dataPath string) (*storage.Store, error) {
	if dataPath == "" {
		dataPath = defaultDataPath
	}
	return storage.New(dataPath)
}

func dataPathOr(settings cfg.Settings) string {
	if settings.DataPath != "" {
		return settings.DataPath
	}
	return defaultDataPath
}

const defaultDataPath = "data"

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// EnvHelp describes where settings come from, for the root command's help.
var EnvHelp = fmt.Sprintf("Settings are read from %s (YAML) or the environment (%s, %s, %s, ...).",
	common.EnvConfigFile, common.EnvModelPath, common.EnvPricingMode, common.EnvExchangeRate)
