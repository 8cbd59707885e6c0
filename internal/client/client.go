// Package client calls a running resale price server over HTTP.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"resale-price/internal/features"
	"resale-price/internal/ml"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	base string
	rest *resty.Client
}

func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	r.SetHeader("Accept", "application/json")
	return &Client{base: strings.TrimRight(base, "/"), rest: r}
}

// Predict posts rec to /predict. Rejected input (422) and failed
// predictions come back as a response with Status "error", not as a Go
// error; transport failures and malformed replies are errors.
func (c *Client) Predict(ctx context.Context, rec features.RawRecord, requestID string) (*ml.PredictResponse, error) {
	body := map[string]any{
		string(features.FieldBrand):         rec.Brand,
		string(features.FieldCategory):      rec.Category,
		string(features.FieldColor):         rec.Color,
		string(features.FieldSize):          rec.Size,
		string(features.FieldMaterial):      rec.Material,
		string(features.FieldOriginalPrice): rec.OriginalPrice,
		string(features.FieldUsageLevel):    rec.UsageLevel,
	}
	if requestID != "" {
		body["request_id"] = requestID
	}

	out := &ml.PredictResponse{}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(out).
		SetError(out).
		Post(c.base + "/predict")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if out.Status == "" {
		return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return out, nil
}

// Health returns the decoded /health body.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/health")
}

// ModelInfo returns the decoded /model/info body.
func (c *Client) ModelInfo(ctx context.Context) (map[string]any, error) {
	return c.getJSON(ctx, "/model/info")
}

func (c *Client) getJSON(ctx context.Context, path string) (map[string]any, error) {
	var out map[string]any
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&out).
		Get(c.base + path)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("API error: status %d", resp.StatusCode())
	}
	return out, nil
}
