package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"resale-price/internal/features"

	"github.com/rs/zerolog/log"
)

// PipelineFormatVersion is bumped whenever the persisted layout changes.
const PipelineFormatVersion = 1

// ModelMetadata describes the training run that produced a pipeline.
type ModelMetadata struct {
	Version      string    `json:"version"`
	TrainedAt    time.Time `json:"trained_at"`
	Features     []string  `json:"features"`
	TrainingRows int       `json:"training_rows"`
	TestRows     int       `json:"test_rows"`
	Alpha        float64   `json:"alpha"`
	Currency     string    `json:"currency,omitempty"`
	RMSE         float64   `json:"rmse"`
	MAE          float64   `json:"mae"`
	R2           float64   `json:"r2"`
}

// FittedPipeline couples the encoder and regressor from one training run.
// It is never mutated after construction and is safe for concurrent use.
type FittedPipeline struct {
	Metadata  ModelMetadata
	Encoder   *features.EncoderState
	Regressor *RidgeState
}

type pipelineFile struct {
	FormatVersion int                    `json:"format_version"`
	Metadata      ModelMetadata          `json:"metadata"`
	Encoder       *features.EncoderState `json:"encoder"`
	Regressor     *RidgeState            `json:"regressor"`
}

// Validate checks that encoder and regressor agree on the vector width and
// that all fitted parameters are usable.
func (p *FittedPipeline) Validate() error {
	if p.Encoder == nil {
		return errors.New("pipeline has no encoder")
	}
	if p.Regressor == nil {
		return errors.New("pipeline has no regressor")
	}
	if err := p.Encoder.Validate(); err != nil {
		return fmt.Errorf("invalid encoder: %w", err)
	}
	if p.Encoder.Width() != p.Regressor.Width() {
		return &ShapeError{Component: "pipeline", Want: p.Encoder.Width(), Got: p.Regressor.Width()}
	}
	for i, c := range p.Regressor.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("coefficient %d is not finite", i)
		}
	}
	if math.IsNaN(p.Regressor.Intercept) || math.IsInf(p.Regressor.Intercept, 0) {
		return errors.New("intercept is not finite")
	}
	return nil
}

// PredictRaw encodes rec and applies the regressor, with no business rules.
func (p *FittedPipeline) PredictRaw(rec features.RawRecord) (float64, error) {
	x, err := p.Encoder.Transform(rec)
	if err != nil {
		return 0, err
	}
	return p.Regressor.Predict(x)
}

// SavePipeline writes the pipeline as a single JSON document. The file is
// replaced atomically so a running reader never sees a partial artifact.
func SavePipeline(path string, p *FittedPipeline) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid pipeline: %w", err)
	}

	data, err := json.MarshalIndent(pipelineFile{
		FormatVersion: PipelineFormatVersion,
		Metadata:      p.Metadata,
		Encoder:       p.Encoder,
		Regressor:     p.Regressor,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pipeline: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create model directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write pipeline: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace pipeline: %w", err)
	}

	log.Info().
		Str("path", path).
		Str("version", p.Metadata.Version).
		Int("width", p.Encoder.Width()).
		Msg("Pipeline saved")
	return nil
}

// LoadPipeline reads and validates a pipeline written by SavePipeline. A
// width mismatch is reported as a wrapped *ShapeError.
func LoadPipeline(path string) (*FittedPipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline %s: %w", path, err)
	}

	var file pipelineFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline %s: %w", path, err)
	}
	if file.FormatVersion != PipelineFormatVersion {
		return nil, fmt.Errorf("pipeline %s has format version %d, want %d", path, file.FormatVersion, PipelineFormatVersion)
	}

	p := &FittedPipeline{
		Metadata:  file.Metadata,
		Encoder:   file.Encoder,
		Regressor: file.Regressor,
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", path, err)
	}

	log.Info().
		Str("path", path).
		Str("version", p.Metadata.Version).
		Time("trained_at", p.Metadata.TrainedAt).
		Int("width", p.Encoder.Width()).
		Msg("Pipeline loaded")
	return p, nil
}
