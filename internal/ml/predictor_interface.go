// Package ml fits and serves the resale price model: a ridge regressor over
// encoded clothing attributes, wrapped in the business rules that turn a raw
// model output into a user-facing price.
//
// A FittedPipeline is built once (by Train or LoadPipeline) and then shared
// read-only; Predictor applies the configured pricing policy on top of it and
// never panics or returns a Go error to its caller.
package ml

import "resale-price/internal/features"

// PricePredictor is the boundary the serving layer depends on.
type PricePredictor interface {
	// Predict applies the pricing policy to one record. Failures are
	// reported inside the result rather than as an error.
	Predict(rec features.RawRecord) PredictionResult

	// Metadata describes the loaded pipeline.
	Metadata() ModelMetadata

	// Policy returns the pricing policy in effect.
	Policy() PricingPolicy

	// ModelInput converts a record into the currency the model was
	// trained in.
	ModelInput(rec features.RawRecord) features.RawRecord
}

// MetricsInterface defines metrics methods needed by the predictor
type MetricsInterface interface {
	MLPredictionsInc()
	MLFailuresInc()
	MLLatencyObserve(float64)
	MLModelAgeSet(float64)
	MLNotSellableInc()
	MLCappedInc()
	MLPredictedPriceObserve(float64)
}
