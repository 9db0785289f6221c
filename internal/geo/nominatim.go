// Package geo resolves coordinates into human-readable place labels using
// the OpenStreetMap Nominatim service.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// NominatimClient is a reverse-geocoding client for the Nominatim API.
// Nominatim's usage policy requires an identifying User-Agent and at most
// one request per second, which the location detector's minute-scale tick
// interval stays well under.
type NominatimClient struct {
	baseURL string
	client  *http.Client
}

// NominatimConfig holds Nominatim client configuration.
type NominatimConfig struct {
	// BaseURL is the API base URL (default: https://nominatim.openstreetmap.org)
	BaseURL string

	// Timeout is the request timeout duration (default: 10s)
	Timeout time.Duration
}

// reverseResponse is the subset of the Nominatim reverse response we read.
type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Amenity       string `json:"amenity"`
		Building      string `json:"building"`
		Road          string `json:"road"`
		Suburb        string `json:"suburb"`
		City          string `json:"city"`
		Town          string `json:"town"`
		Village       string `json:"village"`
		Neighbourhood string `json:"neighbourhood"`
	} `json:"address"`
}

// NewNominatimClient creates a new Nominatim client with the given
// configuration.
func NewNominatimClient(config NominatimConfig) *NominatimClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &NominatimClient{
		baseURL: config.BaseURL,
		client: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// ReverseGeocode resolves coordinates to the most specific place label
// available: amenity or building first, then road and locality, then the
// full display name.
func (c *NominatimClient) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	url := fmt.Sprintf("%s/reverse?format=json&lat=%f&lon=%f&zoom=18", c.baseURL, lat, lon)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "echovoice/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("nominatim returned status %d: %s", resp.StatusCode, string(body))
	}

	var data reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return labelFrom(data), nil
}

// labelFrom picks the most specific non-empty component of the address.
func labelFrom(data reverseResponse) string {
	if data.Address.Amenity != "" {
		return data.Address.Amenity
	}
	if data.Address.Building != "" {
		return data.Address.Building
	}

	locality := data.Address.City
	if locality == "" {
		locality = data.Address.Town
	}
	if locality == "" {
		locality = data.Address.Village
	}
	if locality == "" {
		locality = data.Address.Suburb
	}
	if locality == "" {
		locality = data.Address.Neighbourhood
	}

	if data.Address.Road != "" && locality != "" {
		return data.Address.Road + ", " + locality
	}
	if data.Address.Road != "" {
		return data.Address.Road
	}
	if locality != "" {
		return locality
	}
	return data.DisplayName
}
