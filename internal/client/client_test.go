package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"resale-price/internal/features"
	"resale-price/internal/ml"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	p, err := ml.NewPredictor(ml.NewFixturePipeline(10, map[string]float64{"original_price": 0.5}), ml.DefaultPricingPolicy(), nil)
	require.NoError(t, err)

	srv := httptest.NewServer(ml.NewModelServer(p, ml.ServerConfig{}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Predict(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL+"/", 2*time.Second)

	rec := features.RawRecord{Brand: "Zara", Category: "Jacket", Color: "Black", Size: "M", Material: "Wool", OriginalPrice: 40, UsageLevel: 1}
	resp, err := c.Predict(context.Background(), rec, "abc")
	require.NoError(t, err)
	assert.Equal(t, ml.StatusPriced, resp.Status)
	require.NotNil(t, resp.Price)
	assert.Equal(t, 30.0, *resp.Price)
	assert.Equal(t, "abc", resp.RequestID)
	assert.Equal(t, "fixture", resp.ModelVersion)
}

func TestClient_PredictRejected(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL, 0)

	resp, err := c.Predict(context.Background(), features.RawRecord{UsageLevel: 8}, "")
	require.NoError(t, err)
	assert.Equal(t, ml.StatusError, resp.Status)
	assert.Equal(t, ml.ErrorKindInput, resp.ErrorKind)
	assert.Contains(t, resp.Display, "Error: invalid usage_level")
}

func TestClient_PredictUnexpectedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Predict(context.Background(), features.RawRecord{}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestClient_HealthAndInfo(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL, time.Second)

	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health["status"])

	info, err := c.ModelInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixture", info["version"])
}

func TestClient_HealthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "down"})
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Health(context.Background())
	assert.ErrorContains(t, err, "503")
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL, time.Second).Predict(ctx, features.RawRecord{}, "")
	assert.Error(t, err)
}
