package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"resale-price/internal/features"
)

// Missing-field policy names accepted by MISSING_FIELD_DEFAULTS.
const (
	MissingFieldsLenient = "lenient"
	MissingFieldsStrict  = "strict"
)

// ParseMissingFieldDefaults reads a missing-field policy. "" and "lenient"
// default every field; "strict" requires every field; otherwise the value is
// a comma-separated list of field=default pairs and unlisted fields are
// required, e.g. "color=,usage_level=0".
func ParseMissingFieldDefaults(v string) (features.MissingFieldPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", MissingFieldsLenient:
		return features.DefaultMissingFieldPolicy(), nil
	case MissingFieldsStrict:
		return features.StrictMissingFieldPolicy(), nil
	}

	known := map[features.Field]bool{}
	for _, f := range features.CategoricalFields {
		known[f] = true
	}
	for _, f := range features.NumericFields {
		known[f] = true
	}

	policy := features.MissingFieldPolicy{}
	for _, pair := range strings.Split(v, ",") {
		name, def, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("missing-field default %q: want field=value", pair)
		}
		f := features.Field(strings.ToLower(strings.TrimSpace(name)))
		if !known[f] {
			return nil, fmt.Errorf("missing-field default: unknown field %q", name)
		}
		policy[f] = strings.TrimSpace(def)
	}

	// Numeric defaults must themselves parse.
	sample := map[string]string{}
	for _, f := range features.CategoricalFields {
		sample[string(f)] = "x"
	}
	for _, f := range features.NumericFields {
		if _, ok := policy[f]; !ok {
			sample[string(f)] = "0"
		}
	}
	if _, err := features.ParseRecord(sample, policy); err != nil {
		return nil, fmt.Errorf("missing-field default: %w", err)
	}

	return policy, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getIntOrDefault(key, defaultValue)
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getFloatOrDefault(key, defaultValue)
}

func parseDurationOr(v string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return defaultValue
}

func orDefault(v, defaultValue string) string {
	if v != "" {
		return v
	}
	return defaultValue
}

func derefOr[T any](p *T, defaultValue T) T {
	if p != nil {
		return *p
	}
	return defaultValue
}
