package ml

import (
	"sync"
	"time"

	"resale-price/internal/features"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu          sync.Mutex
	predictions int
	failures    int
	notSellable int
	capped      int
	latencySum  float64
	modelAge    float64
	prices      []float64
}

func (m *MockMetrics) MLPredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) MLFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

func (m *MockMetrics) MLLatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) MLModelAgeSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelAge = v
}

func (m *MockMetrics) MLNotSellableInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notSellable++
}

func (m *MockMetrics) MLCappedInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capped++
}

func (m *MockMetrics) MLPredictedPriceObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices = append(m.prices, v)
}

// NewFixturePipeline builds a small hand-set pipeline for tests. Vocabularies
// hold two values per field (brand: Gucci, Zara; category: Jacket, Shirt;
// color: Black, White; size: M, S; material: Cotton, Wool) and both numeric
// fields pass through unscaled (mean 0, std 1), so the raw output is
// intercept + Σ weights[name]·x with names as reported by FeatureNames.
func NewFixturePipeline(intercept float64, weights map[string]float64) *FittedPipeline {
	enc := &features.EncoderState{
		Vocabularies: []*features.Vocabulary{
			features.NewVocabulary(features.FieldBrand, []string{"Zara", "Gucci"}),
			features.NewVocabulary(features.FieldCategory, []string{"Jacket", "Shirt"}),
			features.NewVocabulary(features.FieldColor, []string{"Black", "White"}),
			features.NewVocabulary(features.FieldSize, []string{"M", "S"}),
			features.NewVocabulary(features.FieldMaterial, []string{"Wool", "Cotton"}),
		},
		Scalers: []features.Scaler{
			{Field: features.FieldOriginalPrice, Mean: 0, Std: 1},
			{Field: features.FieldUsageLevel, Mean: 0, Std: 1},
		},
	}

	names := enc.FeatureNames()
	coef := make([]float64, len(names))
	for i, name := range names {
		coef[i] = weights[name]
	}

	return &FittedPipeline{
		Metadata: ModelMetadata{
			Version:   "fixture",
			TrainedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Features:  names,
		},
		Encoder:   enc,
		Regressor: &RidgeState{Coefficients: coef, Intercept: intercept, Alpha: 1},
	}
}
