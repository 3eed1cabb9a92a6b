// Package location looks up approximate coordinates from an IP geolocation
// endpoint.
package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Coordinates is a looked-up position.
type Coordinates struct {
	Latitude  float64
	Longitude float64
	City      string
}

// Locator queries a JSON geolocation endpoint.
type Locator struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// Option configures a Locator.
type Option func(*Locator)

func WithHTTPClient(client *http.Client) Option {
	return func(l *Locator) {
		if client != nil {
			l.client = client
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Locator) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a locator for url.
func New(url string, opts ...Option) *Locator {
	l := &Locator{
		url:    url,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LookupSilently resolves coordinates without any user interaction.
func (l *Locator) LookupSilently(ctx context.Context) (Coordinates, error) {
	if l.url == "" {
		return Coordinates{}, fmt.Errorf("location lookup url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", l.url, nil)
	if err != nil {
		return Coordinates{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return Coordinates{}, fmt.Errorf("location lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("location API returned status: %d", resp.StatusCode)
	}

	var result struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		City      string   `json:"city"`
		Error     bool     `json:"error"`
		Reason    string   `json:"reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Coordinates{}, fmt.Errorf("failed to decode location response: %w", err)
	}

	if result.Error {
		return Coordinates{}, fmt.Errorf("location API error: %s", result.Reason)
	}
	if result.Latitude == nil || result.Longitude == nil {
		return Coordinates{}, fmt.Errorf("location response has no coordinates")
	}

	c := Coordinates{Latitude: *result.Latitude, Longitude: *result.Longitude, City: result.City}
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return Coordinates{}, fmt.Errorf("location out of range: %f,%f", c.Latitude, c.Longitude)
	}

	l.logger.Info("location updated", zap.Float64("latitude", c.Latitude), zap.Float64("longitude", c.Longitude), zap.String("city", c.City))
	return c, nil
}
