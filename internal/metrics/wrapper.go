package metrics

import "strconv"

// MetricsWrapper adapts Metrics to the narrow interfaces the predictor and
// the HTTP server depend on, so neither imports Prometheus directly.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) MLPredictionsInc() {
	w.m.MLPredictions.Inc()
}

func (w *MetricsWrapper) MLFailuresInc() {
	w.m.MLFailures.Inc()
}

func (w *MetricsWrapper) MLLatencyObserve(seconds float64) {
	w.m.MLLatency.Observe(seconds)
}

func (w *MetricsWrapper) MLModelAgeSet(seconds float64) {
	w.m.MLModelAge.Set(seconds)
}

func (w *MetricsWrapper) MLNotSellableInc() {
	w.m.MLNotSellable.Inc()
}

func (w *MetricsWrapper) MLCappedInc() {
	w.m.MLCapped.Inc()
}

func (w *MetricsWrapper) MLPredictedPriceObserve(price float64) {
	w.m.MLPredictedPrice.Observe(price)
}

// HTTPRequestObserve records one handled request.
func (w *MetricsWrapper) HTTPRequestObserve(route string, code int, seconds float64) {
	w.m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	w.m.HTTPDuration.WithLabelValues(route).Observe(seconds)
}

func (w *MetricsWrapper) StorageErrorsInc() {
	w.m.StorageErrors.Inc()
}
