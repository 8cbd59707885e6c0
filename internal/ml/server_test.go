package ml

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"resale-price/internal/common"
	"resale-price/internal/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRecorder struct {
	mu      sync.Mutex
	entries []PredictionRecord
	err     error
}

func (r *memRecorder) LogPrediction(entry PredictionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

type fakeServerMetrics struct {
	mu            sync.Mutex
	requests      map[string]int
	storageErrors int
}

func (m *fakeServerMetrics) HTTPRequestObserve(route string, code int, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.requests == nil {
		m.requests = map[string]int{}
	}
	m.requests[route+" "+http.StatusText(code)]++
}

func (m *fakeServerMetrics) StorageErrorsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storageErrors++
}

// price = 10 + 0.5·original_price - 2·usage_level
func newTestServer(t *testing.T, policy PricingPolicy, cfg ServerConfig) *httptest.Server {
	t.Helper()
	p, err := NewPredictor(NewFixturePipeline(10, map[string]float64{"original_price": 0.5, "usage_level": -2}), policy, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(NewModelServer(p, cfg).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, srv *httptest.Server, body string) (*http.Response, PredictResponse) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/predict", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out PredictResponse
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if resp.StatusCode != http.StatusBadRequest {
		require.NoError(t, json.Unmarshal(data, &out), string(data))
	}
	return resp, out
}

func TestServer_PredictJSON(t *testing.T) {
	rec := &memRecorder{}
	srv := newTestServer(t, DefaultPricingPolicy(), ServerConfig{Recorder: rec})

	resp, out := postJSON(t, srv, `{"brand":"Zara","category":"Jacket","color":"Black","size":"M","material":"Wool","original_price":40,"usage_level":2,"request_id":"req-1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, StatusPriced, out.Status)
	require.NotNil(t, out.Price)
	assert.Equal(t, 26.0, *out.Price)
	assert.Equal(t, "26.00", out.Display)
	assert.Equal(t, "req-1", out.RequestID)
	assert.Equal(t, "fixture", out.ModelVersion)
	assert.Equal(t, ModeDirect, out.Mode)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, "req-1", rec.entries[0].RequestID)
	assert.NotEmpty(t, rec.entries[0].ID)
	assert.Equal(t, "Zara", rec.entries[0].Record.Brand)
	assert.Equal(t, "26.00", rec.entries[0].Display)
}

func TestServer_PredictJSON_StringNumbersAndDefaults(t *testing.T) {
	srv := newTestServer(t, DefaultPricingPolicy(), ServerConfig{})

	resp, out := postJSON(t, srv, `{"original_price":"20","usage_level":"1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, out.Price)
	assert.Equal(t, 18.0, *out.Price)
	assert.NotEmpty(t, out.RequestID, "request id is generated when absent")

	// Every field missing falls back to the lenient defaults.
	resp, out = postJSON(t, srv, `{}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, out.Price)
	assert.Equal(t, 10.0, *out.Price)
}

func TestServer_PredictJSON_Rejections(t *testing.T) {
	srv := newTestServer(t, DefaultPricingPolicy(), ServerConfig{})

	tests := []struct {
		name  string
		body  string
		code  int
		field string
	}{
		{"malformed", `{"brand":`, http.StatusBadRequest, ""},
		{"array body", `[1,2]`, http.StatusBadRequest, ""},
		{"usage out of range", `{"original_price":10,"usage_level":9}`, http.StatusUnprocessableEntity, "usage_level"},
		{"fractional usage", `{"original_price":10,"usage_level":2.5}`, http.StatusUnprocessableEntity, "usage_level"},
		{"negative price", `{"original_price":-1,"usage_level":1}`, http.StatusUnprocessableEntity, "original_price"},
		{"price not a number", `{"original_price":"cheap"}`, http.StatusUnprocessableEntity, "original_price"},
		{"bool brand", `{"brand":true}`, http.StatusUnprocessableEntity, "brand"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, out := postJSON(t, srv, tt.body)
			assert.Equal(t, tt.code, resp.StatusCode)
			if tt.code == http.StatusUnprocessableEntity {
				assert.Equal(t, StatusError, out.Status)
				assert.Equal(t, ErrorKindInput, out.ErrorKind)
				assert.Contains(t, out.Error, tt.field)
				assert.True(t, strings.HasPrefix(out.Display, "Error: "))
				assert.Nil(t, out.Price)
			}
		})
	}
}

func TestServer_PredictJSON_StrictPolicy(t *testing.T) {
	srv := newTestServer(t, DefaultPricingPolicy(), ServerConfig{MissingFields: features.StrictMissingFieldPolicy()})

	resp, out := postJSON(t, srv, `{"brand":"Zara","original_price":10,"usage_level":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, out.Error, "category")
}

func TestServer_PredictJSON_ResaleNotSellable(t *testing.T) {
	// rate 1 keeps the arithmetic in one currency: 10 + 0.5·0 - 2·5 = 0.
	srv := newTestServer(t, resalePolicy(1), ServerConfig{})

	resp, out := postJSON(t, srv, `{"brand":"Zara","category":"Jacket","color":"Black","size":"M","material":"Wool","original_price":0,"usage_level":5}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, StatusNotSellable, out.Status)
	assert.Equal(t, "Item not sellable", out.Display)
	assert.Nil(t, out.Price)

	_, out = postJSON(t, srv, `{"original_price":100,"usage_level":0}`)
	assert.Equal(t, StatusPriced, out.Status)
	assert.Equal(t, "INR 60.00", out.Display)
	assert.Equal(t, "INR", out.Currency)
}

func TestServer_Form(t *testing.T) {
	srv := newTestServer(t, DefaultPricingPolicy(), ServerConfig{})

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `<form method="POST"`)
	assert.Contains(t, string(body), "<option>Uniqlo</option>")
	assert.NotContains(t, string(body), `class="result`)

	form := url.Values{
		"brand": {"Zara"}, "category": {"Jacket"}, "color": {"Black"}, "size": {"M"},
		"material": {"Wool"}, "original_price": {"40"}, "usage_level": {"2"},
	}
	resp, err = http.PostForm(srv.URL+"/", form)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `<p class="result priced">26.00</p>`)
	assert.Contains(t, string(body), "<option selected>Zara</option>")

	form.Set("usage_level", "9")
	resp, err = http.PostForm(srv.URL+"/", form)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `class="result error"`)
	assert.Contains(t, string(body), "Error: invalid usage_level")
}

func TestServer_Routes(t *testing.T) {
	metrics := &fakeServerMetrics{}
	srv := newTestServer(t, DefaultPricingPolicy(), ServerConfig{Metrics: metrics})

	resp, err := http.Get(srv.URL + "/predict")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/health")
	require.NoError(t, err)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "fixture", health["model_version"])

	resp, err = http.Get(srv.URL + "/model/info")
	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	resp.Body.Close()
	assert.Equal(t, float64(12), info["feature_count"])
	assert.Equal(t, "direct", info["pricing"].(map[string]any)["mode"])

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	assert.Equal(t, 1, metrics.requests["/predict Method Not Allowed"])
	assert.Equal(t, 1, metrics.requests["/ Not Found"])
	assert.Equal(t, 1, metrics.requests["/health OK"])
}

func TestServer_RecorderFailureDoesNotFailRequest(t *testing.T) {
	metrics := &fakeServerMetrics{}
	rec := &memRecorder{err: errors.New("disk full")}
	srv := newTestServer(t, DefaultPricingPolicy(), ServerConfig{Recorder: rec, Metrics: metrics})

	resp, out := postJSON(t, srv, `{"original_price":40,"usage_level":2}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, StatusPriced, out.Status)

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	assert.Equal(t, 1, metrics.storageErrors)
}

func TestServer_MetricsHandlerMounted(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "# metrics")
	})
	srv := newTestServer(t, DefaultPricingPolicy(), ServerConfig{MetricsHandler: handler})

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "# metrics", string(body))
}

func TestServer_RequestBodyLimit(t *testing.T) {
	rec := &memRecorder{}
	srv := newTestServer(t, DefaultPricingPolicy(), ServerConfig{Recorder: rec})
	padding := strings.Repeat("x", common.MaxRequestBytes+1024)

	resp, _ := postJSON(t, srv, `{"original_price":40,"usage_level":2,"brand":"`+padding+`"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.PostForm(srv.URL+"/", url.Values{"original_price": {"40"}, "brand": {padding}})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Bodies under the limit are still served.
	resp, out := postJSON(t, srv, `{"original_price":40,"usage_level":2,"brand":"`+padding[:1024]+`"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, StatusPriced, out.Status)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.entries, 1)
}

func TestServer_ResaleLogMatchesModelCurrency(t *testing.T) {
	const rate = 83.0
	rec := &memRecorder{}
	srv := newTestServer(t, resalePolicy(rate), ServerConfig{Recorder: rec})

	baseline := syntheticRecords(60, 6)
	for _, r := range baseline {
		r.OriginalPrice *= rate
		body, err := json.Marshal(r)
		require.NoError(t, err)
		resp, out := postJSON(t, srv, string(body))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEqual(t, StatusError, out.Status)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.entries, 60)

	var display, model []features.RawRecord
	for _, e := range rec.entries {
		display = append(display, e.Record)
		model = append(model, e.ModelFeatures())
		assert.InDelta(t, e.Record.OriginalPrice/rate, e.ModelRecord.OriginalPrice, 1e-9)
	}

	report, err := DetectDrift(baseline, model, DriftConfig{})
	require.NoError(t, err)
	for _, a := range report.Alerts {
		assert.NotEqual(t, features.FieldOriginalPrice, a.Field, "model-currency log drifted: %+v", a)
	}

	// The display-currency prices sit far outside the training range.
	report, err = DetectDrift(baseline, display, DriftConfig{})
	require.NoError(t, err)
	var flagged bool
	for _, a := range report.Alerts {
		if a.Field == features.FieldOriginalPrice && a.Severity == "critical" {
			flagged = true
		}
	}
	assert.True(t, flagged)
}

func TestPredictionRecord_ModelFeatures(t *testing.T) {
	display := features.RawRecord{Brand: "Zara", OriginalPrice: 830, UsageLevel: 1}
	model := features.RawRecord{Brand: "Zara", OriginalPrice: 10, UsageLevel: 1}

	assert.Equal(t, model, PredictionRecord{Record: display, ModelRecord: model}.ModelFeatures())
	// Entries logged without a model record fall back to the submitted one.
	assert.Equal(t, display, PredictionRecord{Record: display}.ModelFeatures())
}
