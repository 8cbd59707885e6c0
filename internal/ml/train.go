package ml

import (
	"errors"
	"fmt"
	"math"
	"time"

	"resale-price/internal/dataset"
	"resale-price/internal/features"

	"github.com/rs/zerolog/log"
)

// TrainOptions controls a training run.
type TrainOptions struct {
	Alpha        float64
	TestFraction float64
	Seed         int64
	Currency     string
	Version      string // defaults to a timestamp
}

// EvalMetrics summarises regression quality on a set of samples.
type EvalMetrics struct {
	N    int     `json:"n"`
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	R2   float64 `json:"r2"`
}

// Train splits samples, fits the encoder and ridge regressor on the training
// part and scores the held-out part. Metrics fall back to the training set
// when no rows are held out.
func Train(samples []dataset.Sample, opts TrainOptions) (*FittedPipeline, EvalMetrics, error) {
	train, test, err := dataset.Split(samples, opts.TestFraction, opts.Seed)
	if err != nil {
		return nil, EvalMetrics{}, err
	}

	p, err := Fit(train, opts.Alpha)
	if err != nil {
		return nil, EvalMetrics{}, err
	}

	evalSet := test
	if len(evalSet) == 0 {
		evalSet = train
	}
	metrics, err := Evaluate(p, evalSet)
	if err != nil {
		return nil, EvalMetrics{}, fmt.Errorf("evaluate: %w", err)
	}

	version := opts.Version
	if version == "" {
		version = time.Now().UTC().Format("20060102-150405")
	}
	p.Metadata = ModelMetadata{
		Version:      version,
		TrainedAt:    time.Now().UTC(),
		Features:     p.Encoder.FeatureNames(),
		TrainingRows: len(train),
		TestRows:     len(test),
		Alpha:        opts.Alpha,
		Currency:     opts.Currency,
		RMSE:         metrics.RMSE,
		MAE:          metrics.MAE,
		R2:           metrics.R2,
	}

	log.Info().
		Str("version", version).
		Int("train_rows", len(train)).
		Int("test_rows", len(test)).
		Float64("alpha", opts.Alpha).
		Float64("rmse", metrics.RMSE).
		Float64("mae", metrics.MAE).
		Float64("r2", metrics.R2).
		Msg("Training complete")

	return p, metrics, nil
}

// Fit fits encoder and regressor on all of samples.
func Fit(samples []dataset.Sample, alpha float64) (*FittedPipeline, error) {
	if len(samples) == 0 {
		return nil, errors.New("no training samples")
	}

	enc, err := features.FitEncoder(dataset.Records(samples))
	if err != nil {
		return nil, fmt.Errorf("fit encoder: %w", err)
	}

	X := make([][]float64, len(samples))
	for i, s := range samples {
		X[i], err = enc.Transform(s.RawRecord)
		if err != nil {
			return nil, fmt.Errorf("encode sample %d: %w", i, err)
		}
	}

	reg, err := FitRidge(X, dataset.Targets(samples), alpha)
	if err != nil {
		return nil, fmt.Errorf("fit regressor: %w", err)
	}

	p := &FittedPipeline{Encoder: enc, Regressor: reg}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Evaluate scores raw pipeline predictions (no business rules) against labels.
func Evaluate(p *FittedPipeline, samples []dataset.Sample) (EvalMetrics, error) {
	if len(samples) == 0 {
		return EvalMetrics{}, errors.New("no samples to evaluate")
	}

	var mean float64
	for _, s := range samples {
		mean += s.Price
	}
	mean /= float64(len(samples))

	var sse, sae, sst float64
	for i, s := range samples {
		pred, err := p.PredictRaw(s.RawRecord)
		if err != nil {
			return EvalMetrics{}, fmt.Errorf("sample %d: %w", i, err)
		}
		d := s.Price - pred
		sse += d * d
		sae += math.Abs(d)
		sst += (s.Price - mean) * (s.Price - mean)
	}

	n := float64(len(samples))
	m := EvalMetrics{
		N:    len(samples),
		RMSE: math.Sqrt(sse / n),
		MAE:  sae / n,
	}
	if sst > 0 {
		m.R2 = 1 - sse/sst
	}
	return m, nil
}
