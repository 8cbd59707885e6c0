package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strings"
	"time"

	"resale-price/internal/common"
	"resale-price/internal/features"
	"resale-price/internal/ml"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	ModelPath       string
	ModelsDir       string
	DataPath        string
	ListenPort      int
	MetricsPort     int
	LogLevel        string
	PricingMode     string
	ExchangeRate    float64
	Decimals        int
	DisplayCurrency string
	ModelCurrency   string
	RidgeAlpha      float64
	TestFraction    float64
	SplitSeed       int64
	MissingFields   features.MissingFieldPolicy
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

type ConfigFile struct {
	Model struct {
		Path     string `yaml:"path"`
		Dir      string `yaml:"dir"`
		Currency string `yaml:"currency"`
	} `yaml:"model"`

	Pricing struct {
		Mode            string  `yaml:"mode"`
		ExchangeRate    float64 `yaml:"exchangeRate"`
		Decimals        *int    `yaml:"decimals"`
		DisplayCurrency string  `yaml:"displayCurrency"`
	} `yaml:"pricing"`

	Training struct {
		Alpha        *float64 `yaml:"alpha"`
		TestFraction *float64 `yaml:"testFraction"`
		Seed         *int64   `yaml:"seed"`
	} `yaml:"training"`

	Server struct {
		ListenPort           int    `yaml:"listenPort"`
		MetricsPort          int    `yaml:"metricsPort"`
		ReadTimeout          string `yaml:"readTimeout"`
		WriteTimeout         string `yaml:"writeTimeout"`
		MissingFieldDefaults string `yaml:"missingFieldDefaults"`
	} `yaml:"server"`

	System struct {
		DataPath string `yaml:"dataPath"`
		LogLevel string `yaml:"logLevel"`
	} `yaml:"system"`
}

// Load reads a .env file if one exists, then settings from the YAML file
// named by CONFIG_FILE, falling back to environment variables. Environment
// variables override YAML values.
func Load() (Settings, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Settings{}, err
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

// loadDotEnv populates unset environment variables from path. A missing
// file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	readTimeout := parseDurationOr(config.Server.ReadTimeout, 10*time.Second)
	writeTimeout := parseDurationOr(config.Server.WriteTimeout, 10*time.Second)

	missing, err := ParseMissingFieldDefaults(getEnvOrDefault(common.EnvMissingFieldDefaults, config.Server.MissingFieldDefaults))
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		ModelPath:       getEnvOrDefault(common.EnvModelPath, orDefault(config.Model.Path, common.DefaultModelPath)),
		ModelsDir:       getEnvOrDefault(common.EnvModelsDir, orDefault(config.Model.Dir, common.DefaultModelsDir)),
		DataPath:        getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		ListenPort:      getIntFromEnvOrConfig(common.EnvListenPort, config.Server.ListenPort, common.DefaultListenPort),
		MetricsPort:     getIntFromEnvOrConfig(common.EnvMetricsPort, config.Server.MetricsPort, common.DefaultMetricsPort),
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
		PricingMode:     getEnvOrDefault(common.EnvPricingMode, orDefault(config.Pricing.Mode, common.DefaultPricingMode)),
		ExchangeRate:    getFloatFromEnvOrConfig(common.EnvExchangeRate, config.Pricing.ExchangeRate, common.DefaultExchangeRate),
		Decimals:        getIntOrDefault(common.EnvDecimals, derefOr(config.Pricing.Decimals, common.DefaultDecimals)),
		DisplayCurrency: getEnvOrDefault(common.EnvDisplayCurrency, orDefault(config.Pricing.DisplayCurrency, common.DefaultDisplayCurrency)),
		ModelCurrency:   getEnvOrDefault(common.EnvModelCurrency, orDefault(config.Model.Currency, common.DefaultModelCurrency)),
		RidgeAlpha:      getFloatOrDefault(common.EnvRidgeAlpha, derefOr(config.Training.Alpha, common.DefaultRidgeAlpha)),
		TestFraction:    getFloatOrDefault(common.EnvTestFraction, derefOr(config.Training.TestFraction, common.DefaultTestFraction)),
		SplitSeed:       getInt64OrDefault(common.EnvSplitSeed, derefOr(config.Training.Seed, int64(common.DefaultSplitSeed))),
		MissingFields:   missing,
		ReadTimeout:     getDurationOrDefault(common.EnvReadTimeout, readTimeout),
		WriteTimeout:    getDurationOrDefault(common.EnvWriteTimeout, writeTimeout),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	missing, err := ParseMissingFieldDefaults(os.Getenv(common.EnvMissingFieldDefaults))
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		ModelPath:       getEnvOrDefault(common.EnvModelPath, common.DefaultModelPath),
		ModelsDir:       getEnvOrDefault(common.EnvModelsDir, common.DefaultModelsDir),
		DataPath:        os.Getenv(common.EnvDataPath), // optional
		ListenPort:      getIntOrDefault(common.EnvListenPort, common.DefaultListenPort),
		MetricsPort:     getIntOrDefault(common.EnvMetricsPort, common.DefaultMetricsPort),
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		PricingMode:     getEnvOrDefault(common.EnvPricingMode, common.DefaultPricingMode),
		ExchangeRate:    getFloatOrDefault(common.EnvExchangeRate, common.DefaultExchangeRate),
		Decimals:        getIntOrDefault(common.EnvDecimals, common.DefaultDecimals),
		DisplayCurrency: getEnvOrDefault(common.EnvDisplayCurrency, common.DefaultDisplayCurrency),
		ModelCurrency:   getEnvOrDefault(common.EnvModelCurrency, common.DefaultModelCurrency),
		RidgeAlpha:      getFloatOrDefault(common.EnvRidgeAlpha, common.DefaultRidgeAlpha),
		TestFraction:    getFloatOrDefault(common.EnvTestFraction, common.DefaultTestFraction),
		SplitSeed:       getInt64OrDefault(common.EnvSplitSeed, common.DefaultSplitSeed),
		MissingFields:   missing,
		ReadTimeout:     getDurationOrDefault(common.EnvReadTimeout, 10*time.Second),
		WriteTimeout:    getDurationOrDefault(common.EnvWriteTimeout, 10*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// PricingPolicy converts the pricing settings for the predictor.
func (s *Settings) PricingPolicy() ml.PricingPolicy {
	mode, err := ml.ParsePricingMode(s.PricingMode)
	if err != nil {
		mode = ml.ModeDirect
	}
	return ml.PricingPolicy{
		Mode:            mode,
		ExchangeRate:    s.ExchangeRate,
		Decimals:        s.Decimals,
		DisplayCurrency: s.DisplayCurrency,
	}
}

// TrainOptions converts the training settings for ml.Train.
func (s *Settings) TrainOptions() ml.TrainOptions {
	return ml.TrainOptions{
		Alpha:        s.RidgeAlpha,
		TestFraction: s.TestFraction,
		Seed:         s.SplitSeed,
		Currency:     s.ModelCurrency,
	}
}

// Level returns the configured zerolog level.
func (s *Settings) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}
	if settings.ModelsDir == "" {
		return fmt.Errorf("models directory cannot be empty")
	}

	// Ports
	if settings.ListenPort < common.MinPort || settings.ListenPort > common.MaxPort {
		return fmt.Errorf("listen port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.ListenPort)
	}
	if settings.MetricsPort < common.MinPort || settings.MetricsPort > common.MaxPort {
		return fmt.Errorf("metrics port must be between %d and %d, got %d", common.MinPort, common.MaxPort, settings.MetricsPort)
	}
	if settings.ListenPort == settings.MetricsPort {
		return fmt.Errorf("listen port and metrics port must differ, both are %d", settings.ListenPort)
	}

	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil || settings.LogLevel == "" {
		return fmt.Errorf("invalid log level %q", settings.LogLevel)
	}

	// Pricing
	if _, err := ml.ParsePricingMode(settings.PricingMode); err != nil {
		return err
	}
	if !(settings.ExchangeRate > 0) || math.IsInf(settings.ExchangeRate, 0) {
		return fmt.Errorf("exchange rate must be a positive finite number, got %v", settings.ExchangeRate)
	}
	if settings.Decimals < 0 || settings.Decimals > common.MaxDecimals {
		return fmt.Errorf("price decimals must be between 0 and %d, got %d", common.MaxDecimals, settings.Decimals)
	}
	if strings.TrimSpace(settings.DisplayCurrency) == "" || strings.TrimSpace(settings.ModelCurrency) == "" {
		return fmt.Errorf("display and model currency are required")
	}

	// Training
	if settings.RidgeAlpha < 0 || settings.RidgeAlpha > common.MaxRidgeAlpha || math.IsNaN(settings.RidgeAlpha) {
		return fmt.Errorf("ridge alpha must be between 0 and %g, got %v", common.MaxRidgeAlpha, settings.RidgeAlpha)
	}
	if settings.TestFraction < 0 || settings.TestFraction > common.MaxTestFraction || math.IsNaN(settings.TestFraction) {
		return fmt.Errorf("test fraction must be between 0 and %v, got %v", common.MaxTestFraction, settings.TestFraction)
	}

	// Timeouts
	if settings.ReadTimeout < time.Second || settings.ReadTimeout > 5*time.Minute {
		return fmt.Errorf("read timeout must be between 1s and 5m, got %v", settings.ReadTimeout)
	}
	if settings.WriteTimeout < time.Second || settings.WriteTimeout > 5*time.Minute {
		return fmt.Errorf("write timeout must be between 1s and 5m, got %v", settings.WriteTimeout)
	}

	if settings.MissingFields == nil {
		return fmt.Errorf("missing-field policy is not set")
	}

	return nil
}
