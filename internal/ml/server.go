package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"resale-price/internal/common"
	"resale-price/internal/features"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ServerMetrics is the subset of metrics the HTTP layer records.
type ServerMetrics interface {
	HTTPRequestObserve(route string, code int, seconds float64)
	StorageErrorsInc()
}

// PredictionRecorder persists served predictions.
type PredictionRecorder interface {
	LogPrediction(entry PredictionRecord) error
}

// PredictionRecord is one served prediction as written to the log. Record
// holds the submitted attributes; ModelRecord holds them in model currency,
// as the pipeline saw them, and is empty for rejected input.
type PredictionRecord struct {
	ID           string             `json:"id"`
	RequestID    string             `json:"request_id,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
	ModelVersion string             `json:"model_version"`
	Record       features.RawRecord `json:"record"`
	ModelRecord  features.RawRecord `json:"model_record"`
	Result       PredictionResult   `json:"result"`
	Display      string             `json:"display"`
}

// ModelFeatures returns ModelRecord, falling back to Record for entries
// logged before model-currency records were kept.
func (r PredictionRecord) ModelFeatures() features.RawRecord {
	if r.ModelRecord == (features.RawRecord{}) {
		return r.Record
	}
	return r.ModelRecord
}

// ServerConfig configures a ModelServer. Recorder, Metrics and
// MetricsHandler are optional.
type ServerConfig struct {
	Port          int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MissingFields features.MissingFieldPolicy

	Recorder       PredictionRecorder
	Metrics        ServerMetrics
	MetricsHandler http.Handler
}

// ModelServer provides the HTML form and JSON API for price predictions
type ModelServer struct {
	predictor PricePredictor
	cfg       ServerConfig
	form      *template.Template
	handler   http.Handler
	server    *http.Server
	started   time.Time
}

// PredictResponse is the JSON body returned by POST /predict.
type PredictResponse struct {
	RequestID    string      `json:"request_id"`
	Status       Status      `json:"status"`
	Price        *float64    `json:"price,omitempty"`
	Display      string      `json:"display"`
	Currency     string      `json:"currency,omitempty"`
	Mode         PricingMode `json:"mode"`
	Capped       bool        `json:"capped,omitempty"`
	ErrorKind    ErrorKind   `json:"error_kind,omitempty"`
	Error        string      `json:"error,omitempty"`
	ModelVersion string      `json:"model_version"`
	Latency      float64     `json:"latency_ms"`
	Timestamp    time.Time   `json:"timestamp"`
}

// NewModelServer creates a new HTTP server for model serving
func NewModelServer(predictor PricePredictor, cfg ServerConfig) *ModelServer {
	if cfg.MissingFields == nil {
		cfg.MissingFields = features.DefaultMissingFieldPolicy()
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	ms := &ModelServer{
		predictor: predictor,
		cfg:       cfg,
		form:      template.Must(template.New("form").Parse(formTemplate)),
		started:   time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", ms.instrument("/", ms.handleForm))
	mux.HandleFunc("/predict", ms.instrument("/predict", ms.handlePredict))
	mux.HandleFunc("/health", ms.instrument("/health", ms.handleHealth))
	mux.HandleFunc("/model/info", ms.instrument("/model/info", ms.handleModelInfo))
	if cfg.MetricsHandler != nil {
		mux.Handle("/metrics", cfg.MetricsHandler)
	}
	ms.handler = mux

	ms.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return ms
}

// Handler exposes the routes without a listener.
func (ms *ModelServer) Handler() http.Handler {
	return ms.handler
}

// Start begins serving HTTP requests
func (ms *ModelServer) Start() error {
	log.Info().Str("addr", ms.server.Addr).Msg("starting model server")
	return ms.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (ms *ModelServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

type formView struct {
	Brands, Categories, Colors, Sizes, Materials []string
	Usages                                       []int
	Values                                       map[string]string
	Mode                                         PricingMode
	Currency                                     string
	Result                                       string
	ResultClass                                  Status
}

func (ms *ModelServer) handleForm(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	view := formView{
		Brands:     common.BrandOptions,
		Categories: common.CategoryOptions,
		Colors:     common.ColorOptions,
		Sizes:      common.SizeOptions,
		Materials:  common.MaterialOptions,
		Usages:     common.UsageOptions,
		Values:     map[string]string{},
		Mode:       ms.predictor.Policy().Mode,
	}
	if view.Mode == ModeResale {
		view.Currency = ms.predictor.Policy().DisplayCurrency
	}

	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, common.MaxRequestBytes)
		if err := r.ParseForm(); err != nil {
			http.Error(w, fmt.Sprintf("invalid form: %v", err), http.StatusBadRequest)
			return
		}
		for _, f := range allFields() {
			view.Values[string(f)] = r.PostForm.Get(string(f))
		}
		entry := ms.predict(view.Values, r.Header.Get("X-Request-ID"))
		view.Result = entry.Display
		view.ResultClass = entry.Result.Status
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := ms.form.Execute(w, view); err != nil {
		log.Error().Err(err).Msg("render form")
	}
}

func (ms *ModelServer) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()

	var body map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, common.MaxRequestBytes))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request: %v", err)})
		return
	}

	requestID := r.Header.Get("X-Request-ID")
	if id, ok := body["request_id"].(string); ok && id != "" {
		requestID = id
	}

	values, err := requestValues(body)
	var entry PredictionRecord
	if err != nil {
		entry = ms.rejected(requestID, err)
	} else {
		entry = ms.predict(values, requestID)
	}

	resp := PredictResponse{
		RequestID:    entry.RequestID,
		Status:       entry.Result.Status,
		Display:      entry.Display,
		Currency:     entry.Result.Currency,
		Mode:         entry.Result.Mode,
		Capped:       entry.Result.Capped,
		ErrorKind:    entry.Result.ErrorKind,
		Error:        entry.Result.Error,
		ModelVersion: entry.ModelVersion,
		Latency:      float64(time.Since(start).Microseconds()) / 1000,
		Timestamp:    entry.Timestamp,
	}
	if entry.Result.Status == StatusPriced {
		price := entry.Result.Price
		resp.Price = &price
	}

	writeJSON(w, statusCode(entry.Result), resp)
}

// predict parses untyped values, runs the predictor and records the outcome.
func (ms *ModelServer) predict(values map[string]string, requestID string) PredictionRecord {
	rec, err := features.ParseRecord(values, ms.cfg.MissingFields)
	if err != nil {
		return ms.rejected(requestID, err)
	}

	result := ms.predictor.Predict(rec)
	entry := ms.newRecord(requestID, rec, result)
	entry.ModelRecord = ms.predictor.ModelInput(rec)
	ms.record(entry)
	return entry
}

// rejected builds the record for input that never reached the predictor.
func (ms *ModelServer) rejected(requestID string, err error) PredictionRecord {
	log.Debug().Err(err).Str("request_id", requestID).Msg("Rejected prediction input")
	result := PredictionResult{
		Status:    StatusError,
		Mode:      ms.predictor.Policy().Mode,
		ErrorKind: ErrorKindInput,
		Error:     err.Error(),
	}
	return ms.newRecord(requestID, features.RawRecord{}, result)
}

func (ms *ModelServer) newRecord(requestID string, rec features.RawRecord, result PredictionResult) PredictionRecord {
	id := uuid.NewString()
	if requestID == "" {
		requestID = id
	}
	return PredictionRecord{
		ID:           id,
		RequestID:    requestID,
		Timestamp:    time.Now().UTC(),
		ModelVersion: ms.predictor.Metadata().Version,
		Record:       rec,
		Result:       result,
		Display:      result.Display(),
	}
}

func (ms *ModelServer) record(entry PredictionRecord) {
	if ms.cfg.Recorder == nil {
		return
	}
	if err := ms.cfg.Recorder.LogPrediction(entry); err != nil {
		log.Error().Err(err).Str("id", entry.ID).Msg("Failed to log prediction")
		if ms.cfg.Metrics != nil {
			ms.cfg.Metrics.StorageErrorsInc()
		}
	}
}

func (ms *ModelServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	md := ms.predictor.Metadata()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"model_version":  md.Version,
		"mode":           ms.predictor.Policy().Mode,
		"uptime_seconds": time.Since(ms.started).Seconds(),
	})
}

func (ms *ModelServer) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	md := ms.predictor.Metadata()
	policy := ms.predictor.Policy()
	info := map[string]any{
		"version":       md.Version,
		"trained_at":    md.TrainedAt,
		"features":      md.Features,
		"feature_count": len(md.Features),
		"training_rows": md.TrainingRows,
		"test_rows":     md.TestRows,
		"alpha":         md.Alpha,
		"currency":      md.Currency,
		"rmse":          md.RMSE,
		"mae":           md.MAE,
		"r2":            md.R2,
		"pricing": map[string]any{
			"mode":             policy.Mode,
			"exchange_rate":    policy.ExchangeRate,
			"decimals":         policy.Decimals,
			"display_currency": policy.DisplayCurrency,
		},
	}
	writeJSON(w, http.StatusOK, info)
}

// instrument records per-route request counts and durations.
func (ms *ModelServer) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next(sw, r)
		if ms.cfg.Metrics != nil {
			ms.cfg.Metrics.HTTPRequestObserve(route, sw.code, time.Since(start).Seconds())
		}
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.code = code
	sw.ResponseWriter.WriteHeader(code)
}

// requestValues flattens a decoded JSON body into the untyped values
// ParseRecord accepts. Null and absent fields are both treated as missing.
func requestValues(body map[string]any) (map[string]string, error) {
	values := make(map[string]string, len(body))
	for _, f := range allFields() {
		switch v := body[string(f)].(type) {
		case nil:
		case string:
			values[string(f)] = v
		case json.Number:
			values[string(f)] = v.String()
		default:
			return nil, &features.InputError{Field: f, Value: fmt.Sprint(v), Reason: "unsupported JSON type"}
		}
	}
	return values, nil
}

func allFields() []features.Field {
	return append(append([]features.Field{}, features.CategoricalFields...), features.NumericFields...)
}

// statusCode maps a result to an HTTP status. Bad input is the caller's
// fault (422); shape and internal failures are ours (500).
func statusCode(res PredictionResult) int {
	if res.Status != StatusError {
		return http.StatusOK
	}
	if res.ErrorKind == ErrorKindInput {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

const formTemplate = `<!DOCTYPE html>
<html>
<head><title>Resale Price Estimator</title></head>
<body>
<h1>Resale Price Estimator</h1>
<form method="POST" action="/">
{{- $v := .Values}}
  <label>Brand <select name="brand">{{range .Brands}}<option{{if eq . (index $v "brand")}} selected{{end}}>{{.}}</option>{{end}}</select></label>
  <label>Category <select name="category">{{range .Categories}}<option{{if eq . (index $v "category")}} selected{{end}}>{{.}}</option>{{end}}</select></label>
  <label>Color <select name="color">{{range .Colors}}<option{{if eq . (index $v "color")}} selected{{end}}>{{.}}</option>{{end}}</select></label>
  <label>Size <select name="size">{{range .Sizes}}<option{{if eq . (index $v "size")}} selected{{end}}>{{.}}</option>{{end}}</select></label>
  <label>Material <select name="material">{{range .Materials}}<option{{if eq . (index $v "material")}} selected{{end}}>{{.}}</option>{{end}}</select></label>
  <label>Original price{{if .Currency}} ({{.Currency}}){{end}} <input type="number" step="0.01" min="0" name="original_price" value="{{index $v "original_price"}}"></label>
  <label>Usage level <select name="usage_level">{{range .Usages}}<option{{if eq (print .) (index $v "usage_level")}} selected{{end}}>{{.}}</option>{{end}}</select></label>
  <button type="submit">Predict</button>
</form>
{{- if .Result}}
<p class="result {{.ResultClass}}">{{.Result}}</p>
{{- end}}
</body>
</html>
`
