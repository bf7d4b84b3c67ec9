// Package geocode turns coordinates into a human-readable address using a
// Nominatim-compatible reverse geocoding endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultURL is the public OpenStreetMap reverse geocoding endpoint.
	DefaultURL       = "https://nominatim.openstreetmap.org/reverse"
	defaultUserAgent = "field-visits/1.0"
)

// ErrNoAddress is returned when the service answers without a display name.
var ErrNoAddress = errors.New("no address found for coordinates")

// Resolver looks up addresses for coordinates.
type Resolver struct {
	httpClient *http.Client
	userAgent  string

	// Overridable for testing and self-hosted instances.
	reverseURL string
}

// NewResolver creates a resolver. An empty endpoint selects DefaultURL.
func NewResolver(endpoint, userAgent string) *Resolver {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Resolver{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		userAgent:  userAgent,
		reverseURL: endpoint,
	}
}

// reverseResponse is the part of the Nominatim response we use.
type reverseResponse struct {
	DisplayName string `json:"display_name"`
}

// Reverse returns the display name for the given coordinates.
// It makes exactly one request and never retries.
func (r *Resolver) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	params := url.Values{
		"format":         {"json"},
		"lat":            {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(lon, 'f', -1, 64)},
		"zoom":           {"18"},
		"addressdetails": {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.reverseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("closing geocoder response", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var result reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	name := strings.TrimSpace(result.DisplayName)
	if name == "" {
		return "", ErrNoAddress
	}
	return name, nil
}
