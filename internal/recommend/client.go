// Package recommend asks the crop prediction service which crop suits a set
// of field conditions and keeps a per-user history of the answers.
package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"farmfeed/internal/models"
)

// ErrNotConfigured is returned when no prediction URL is set.
var ErrNotConfigured = errors.New("prediction service not configured")

// Conditions are the soil and weather readings sent for a prediction.
type Conditions struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Rainfall    float64 `json:"rainfall"`
	SoilPH      float64 `json:"ph"`
	Nitrogen    float64 `json:"N"`
	Phosphorus  float64 `json:"P"`
	Potassium   float64 `json:"K"`
}

// Validate rejects readings outside their physical range.
func (c Conditions) Validate() error {
	switch {
	case c.Humidity < 0 || c.Humidity > 100:
		return models.NewValidationError("humidity must be between 0 and 100")
	case c.SoilPH < 0 || c.SoilPH > 14:
		return models.NewValidationError("ph must be between 0 and 14")
	case c.Rainfall < 0:
		return models.NewValidationError("rainfall must not be negative")
	case c.Nitrogen < 0 || c.Phosphorus < 0 || c.Potassium < 0:
		return models.NewValidationError("N, P and K must not be negative")
	case c.Temperature < -60 || c.Temperature > 70:
		return models.NewValidationError("temperature must be between -60 and 70")
	}
	return nil
}

// Prediction is the service's answer.
type Prediction struct {
	Crop       string  `json:"crop"`
	Confidence float64 `json:"confidence"`
}

// Client calls the prediction service over HTTP. It never retries.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a Client posting to url with the given request timeout.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: timeout},
	}
}

// Predict posts conditions and decodes the prediction.
func (c *Client) Predict(ctx context.Context, cond Conditions) (Prediction, error) {
	if c.url == "" {
		return Prediction{}, ErrNotConfigured
	}

	body, err := json.Marshal(cond)
	if err != nil {
		return Prediction{}, fmt.Errorf("marshal conditions: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("build prediction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Prediction{}, fmt.Errorf("prediction request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Prediction{}, fmt.Errorf("prediction service returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out Prediction
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return Prediction{}, fmt.Errorf("decode prediction: %w", err)
	}
	if out.Crop == "" {
		return Prediction{}, errors.New("prediction service returned no crop")
	}
	return out, nil
}
