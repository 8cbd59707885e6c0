package ml

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"resale-price/internal/common"
	"resale-price/internal/features"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PricingMode selects the post-processing applied to raw model output.
type PricingMode string

const (
	// ModeDirect returns the raw prediction rounded, in the model currency.
	ModeDirect PricingMode = common.ModeDirect
	// ModeResale converts currencies and applies the sellability floor and
	// the original-price cap.
	ModeResale PricingMode = common.ModeResale
)

// ParsePricingMode accepts "direct" or "resale", case-insensitively.
func ParsePricingMode(s string) (PricingMode, error) {
	switch PricingMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDirect:
		return ModeDirect, nil
	case ModeResale:
		return ModeResale, nil
	}
	return "", fmt.Errorf("unknown pricing mode %q (want %s or %s)", s, ModeDirect, ModeResale)
}

// PricingPolicy is the fixed business configuration of a Predictor.
type PricingPolicy struct {
	Mode PricingMode
	// ExchangeRate is display-currency units per model-currency unit. Only
	// used in resale mode.
	ExchangeRate    float64
	Decimals        int
	DisplayCurrency string
}

// DefaultPricingPolicy is direct mode with two decimal places.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		Mode:            ModeDirect,
		ExchangeRate:    common.DefaultExchangeRate,
		Decimals:        common.DefaultDecimals,
		DisplayCurrency: common.DefaultDisplayCurrency,
	}
}

// Validate rejects policies that would make conversion undefined.
func (p PricingPolicy) Validate() error {
	if _, err := ParsePricingMode(string(p.Mode)); err != nil {
		return err
	}
	if p.Decimals < 0 || p.Decimals > common.MaxDecimals {
		return fmt.Errorf("decimals must be between 0 and %d, got %d", common.MaxDecimals, p.Decimals)
	}
	if p.Mode == ModeResale {
		if !(p.ExchangeRate > 0) || math.IsInf(p.ExchangeRate, 0) {
			return fmt.Errorf("exchange rate must be a positive finite number, got %v", p.ExchangeRate)
		}
	}
	return nil
}

// Status is the outcome class of a prediction.
type Status string

const (
	StatusPriced      Status = "priced"
	StatusNotSellable Status = "not_sellable"
	StatusError       Status = "error"
)

// ErrorKind labels a failed prediction.
type ErrorKind string

const (
	ErrorKindInput    ErrorKind = "input"
	ErrorKindShape    ErrorKind = "shape"
	ErrorKindInternal ErrorKind = "internal"
)

// PredictionResult is what the pipeline hands back to the serving layer.
type PredictionResult struct {
	Status    Status      `json:"status"`
	Price     float64     `json:"price"`
	Raw       float64     `json:"raw"`
	Capped    bool        `json:"capped,omitempty"`
	Currency  string      `json:"currency,omitempty"`
	Mode      PricingMode `json:"mode"`
	ErrorKind ErrorKind   `json:"error_kind,omitempty"`
	Error     string      `json:"error,omitempty"`

	formatted string
}

// Display renders the result for an end user: a formatted price, the
// not-sellable sentinel, or a labelled error.
func (r PredictionResult) Display() string {
	switch r.Status {
	case StatusNotSellable:
		return common.NotSellableMessage
	case StatusError:
		return common.ErrorPrefix + r.Error
	}
	if r.formatted != "" {
		return r.formatted
	}
	return fmt.Sprintf("%.2f", r.Price)
}

// Predictor applies a PricingPolicy to a FittedPipeline.
type Predictor struct {
	pipeline *FittedPipeline
	policy   PricingPolicy
	rate     decimal.Decimal
	metrics  MetricsInterface
}

// NewPredictor validates the pipeline and policy. A pipeline whose encoder
// and regressor disagree on width fails here with a *ShapeError.
func NewPredictor(pipeline *FittedPipeline, policy PricingPolicy, metrics MetricsInterface) (*Predictor, error) {
	if pipeline == nil {
		return nil, errors.New("pipeline is nil")
	}
	if err := pipeline.Validate(); err != nil {
		return nil, err
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pricing policy: %w", err)
	}

	p := &Predictor{
		pipeline: pipeline,
		policy:   policy,
		metrics:  metrics,
	}
	if policy.Mode == ModeResale {
		p.rate = decimal.NewFromFloat(policy.ExchangeRate)
	}

	if metrics != nil && !pipeline.Metadata.TrainedAt.IsZero() {
		metrics.MLModelAgeSet(time.Since(pipeline.Metadata.TrainedAt).Seconds())
	}

	log.Info().
		Str("mode", string(policy.Mode)).
		Float64("exchange_rate", policy.ExchangeRate).
		Int("decimals", policy.Decimals).
		Str("model_version", pipeline.Metadata.Version).
		Msg("Predictor ready")
	return p, nil
}

// Metadata describes the loaded pipeline.
func (p *Predictor) Metadata() ModelMetadata {
	return p.pipeline.Metadata
}

// Policy returns the pricing policy in effect.
func (p *Predictor) Policy() PricingPolicy {
	return p.policy
}

// ModelInput returns rec as the pipeline sees it. In resale mode the
// original price is converted from display to model currency.
func (p *Predictor) ModelInput(rec features.RawRecord) features.RawRecord {
	if p.policy.Mode == ModeResale {
		rec.OriginalPrice = decimal.NewFromFloat(rec.OriginalPrice).Div(p.rate).InexactFloat64()
	}
	return rec
}

// Predict estimates the resale price of rec. It never panics: every failure
// becomes a StatusError result.
func (p *Predictor) Predict(rec features.RawRecord) (result PredictionResult) {
	if p == nil {
		return PredictionResult{Status: StatusError, ErrorKind: ErrorKindInternal, Error: "predictor is nil"}
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Interface("record", rec).Msg("Prediction panicked")
			result = p.failure(ErrorKindInternal, fmt.Errorf("internal error: %v", r))
		}
		if p.metrics != nil {
			p.metrics.MLLatencyObserve(time.Since(start).Seconds())
			p.metrics.MLPredictionsInc()
			switch result.Status {
			case StatusError:
				p.metrics.MLFailuresInc()
			case StatusNotSellable:
				p.metrics.MLNotSellableInc()
			case StatusPriced:
				p.metrics.MLPredictedPriceObserve(result.Price)
				if result.Capped {
					p.metrics.MLCappedInc()
				}
			}
		}
	}()

	if p.policy.Mode == ModeResale {
		return p.predictResale(rec)
	}
	return p.predictDirect(rec)
}

func (p *Predictor) predictDirect(rec features.RawRecord) PredictionResult {
	raw, err := p.raw(rec)
	if err != nil {
		return p.failure(classify(err), err)
	}

	places := int32(p.policy.Decimals)
	price := decimal.NewFromFloat(raw).Round(places)
	return PredictionResult{
		Status:    StatusPriced,
		Price:     price.InexactFloat64(),
		Raw:       raw,
		Mode:      ModeDirect,
		formatted: price.StringFixed(places),
	}
}

// predictResale converts the display-currency original price into model
// currency, predicts, converts back, then applies the floor before the cap.
func (p *Predictor) predictResale(rec features.RawRecord) PredictionResult {
	if math.IsNaN(rec.OriginalPrice) || math.IsInf(rec.OriginalPrice, 0) {
		err := &features.InputError{Field: features.FieldOriginalPrice, Value: fmt.Sprint(rec.OriginalPrice), Reason: "must be finite"}
		return p.failure(ErrorKindInput, err)
	}

	original := decimal.NewFromFloat(rec.OriginalPrice)
	raw, err := p.raw(p.ModelInput(rec))
	if err != nil {
		return p.failure(classify(err), err)
	}

	places := int32(p.policy.Decimals)
	converted := decimal.NewFromFloat(raw).Mul(p.rate)
	if !converted.IsPositive() {
		return p.notSellable(raw)
	}

	capped := false
	if converted.GreaterThan(original) {
		converted = original
		capped = true
	}

	price := converted.Round(places)
	if price.GreaterThan(original) {
		price = original.Truncate(places)
	}
	// A price that only rounds to zero is not worth listing either.
	if !price.IsPositive() {
		return p.notSellable(raw)
	}

	return PredictionResult{
		Status:    StatusPriced,
		Price:     price.InexactFloat64(),
		Raw:       raw,
		Capped:    capped,
		Currency:  p.policy.DisplayCurrency,
		Mode:      ModeResale,
		formatted: strings.TrimSpace(p.policy.DisplayCurrency + " " + price.StringFixed(places)),
	}
}

func (p *Predictor) raw(rec features.RawRecord) (float64, error) {
	raw, err := p.pipeline.PredictRaw(rec)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, fmt.Errorf("model produced non-finite output %v", raw)
	}
	return raw, nil
}

func (p *Predictor) notSellable(raw float64) PredictionResult {
	return PredictionResult{
		Status:   StatusNotSellable,
		Raw:      raw,
		Currency: p.policy.DisplayCurrency,
		Mode:     p.policy.Mode,
	}
}

func (p *Predictor) failure(kind ErrorKind, err error) PredictionResult {
	log.Warn().Err(err).Str("kind", string(kind)).Msg("Prediction failed")
	return PredictionResult{
		Status:    StatusError,
		Mode:      p.policy.Mode,
		ErrorKind: kind,
		Error:     err.Error(),
	}
}

func classify(err error) ErrorKind {
	var inputErr *features.InputError
	var shapeErr *ShapeError
	switch {
	case errors.As(err, &inputErr):
		return ErrorKindInput
	case errors.As(err, &shapeErr):
		return ErrorKindShape
	}
	return ErrorKindInternal
}
