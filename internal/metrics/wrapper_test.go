package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestWrapper() (*Metrics, *MetricsWrapper) {
	m := NewWithRegistry(prometheus.NewRegistry())
	return m, NewWrapper(m)
}

func TestNewWrapper(t *testing.T) {
	metrics, wrapper := newTestWrapper()

	if wrapper == nil {
		t.Fatal("NewWrapper returned nil")
	}
	if wrapper.m != metrics {
		t.Error("Wrapper does not contain correct metrics instance")
	}
}

func TestNewWithRegistry_RegistersAll(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewWithRegistry(registry)
	m.HTTPRequests.WithLabelValues("/predict", "200").Inc()
	m.HTTPDuration.WithLabelValues("/predict").Observe(0.01)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 10 {
		t.Errorf("Expected 10 metric families, got %d", len(families))
	}
}

func TestMetricsWrapper_PredictionCounters(t *testing.T) {
	metrics, wrapper := newTestWrapper()

	tests := []struct {
		name    string
		inc     func()
		counter prometheus.Counter
	}{
		{"predictions", wrapper.MLPredictionsInc, metrics.MLPredictions},
		{"failures", wrapper.MLFailuresInc, metrics.MLFailures},
		{"not sellable", wrapper.MLNotSellableInc, metrics.MLNotSellable},
		{"capped", wrapper.MLCappedInc, metrics.MLCapped},
		{"storage errors", wrapper.StorageErrorsInc, metrics.StorageErrors},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if v := testutil.ToFloat64(tt.counter); v != 0 {
				t.Errorf("Expected initial counter value 0, got %f", v)
			}
			tt.inc()
			tt.inc()
			if v := testutil.ToFloat64(tt.counter); v != 2 {
				t.Errorf("Expected counter value 2, got %f", v)
			}
		})
	}
}

func TestMetricsWrapper_ModelAge(t *testing.T) {
	metrics, wrapper := newTestWrapper()

	wrapper.MLModelAgeSet(3600.0)
	if v := testutil.ToFloat64(metrics.MLModelAge); v != 3600.0 {
		t.Errorf("Expected model age 3600.0, got %f", v)
	}
}

func TestMetricsWrapper_Histograms(t *testing.T) {
	metrics, wrapper := newTestWrapper()

	for _, v := range []float64{0.0001, 0.001, 0.01} {
		wrapper.MLLatencyObserve(v)
	}
	wrapper.MLPredictedPriceObserve(42.5)

	if n := testutil.CollectAndCount(metrics.MLLatency); n != 1 {
		t.Errorf("Expected one latency series, got %d", n)
	}
	if n := testutil.CollectAndCount(metrics.MLPredictedPrice); n != 1 {
		t.Errorf("Expected one price series, got %d", n)
	}
}

func TestMetricsWrapper_HTTPRequestObserve(t *testing.T) {
	metrics, wrapper := newTestWrapper()

	wrapper.HTTPRequestObserve("/predict", 200, 0.002)
	wrapper.HTTPRequestObserve("/predict", 200, 0.003)
	wrapper.HTTPRequestObserve("/predict", 422, 0.001)

	if v := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/predict", "200")); v != 2 {
		t.Errorf("Expected 2 successful requests, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/predict", "422")); v != 1 {
		t.Errorf("Expected 1 rejected request, got %f", v)
	}
	if n := testutil.CollectAndCount(metrics.HTTPRequests); n != 2 {
		t.Errorf("Expected 2 label combinations, got %d", n)
	}
}

func TestMetricsWrapper_ConcurrentAccess(t *testing.T) {
	metrics, wrapper := newTestWrapper()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				wrapper.MLPredictionsInc()
				wrapper.MLLatencyObserve(0.0001)
				wrapper.HTTPRequestObserve("/", 200, 0.001)
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	expected := 1000.0 // 10 goroutines * 100 increments
	if v := testutil.ToFloat64(metrics.MLPredictions); v != expected {
		t.Errorf("Expected %f predictions after concurrent access, got %f", expected, v)
	}
	if v := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/", "200")); v != expected {
		t.Errorf("Expected %f requests after concurrent access, got %f", expected, v)
	}
}

func TestMetricsWrapper_NilGuard(t *testing.T) {
	wrapper := &MetricsWrapper{m: nil}

	// NewWrapper ensures m is never nil in practice
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic when accessing nil metrics")
		}
	}()

	wrapper.MLPredictionsInc()
}

func BenchmarkMetricsWrapper_MLPredictionsInc(b *testing.B) {
	_, wrapper := newTestWrapper()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wrapper.MLPredictionsInc()
	}
}

func BenchmarkMetricsWrapper_HTTPRequestObserve(b *testing.B) {
	_, wrapper := newTestWrapper()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wrapper.HTTPRequestObserve("/predict", 200, 0.001)
	}
}
