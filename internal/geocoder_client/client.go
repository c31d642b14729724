package geocoder_client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// UnknownRegion is returned whenever the coordinates cannot be resolved.
const UnknownRegion = "Unknown Region"

// Client is a client for the OpenCage forward/reverse geocoding API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// geocodeResponse represents the subset of the OpenCage response we read.
type geocodeResponse struct {
	Results []struct {
		Components struct {
			Country string `json:"country"`
			City    string `json:"city"`
			Town    string `json:"town"`
			Village string `json:"village"`
		} `json:"components"`
	} `json:"results"`
}

// NewClient creates a new geocoder client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// RegionFromCoordinates resolves latitude/longitude into a "City, Country"
// region string. Unresolvable coordinates yield UnknownRegion rather than an
// error; only transport and decoding failures are returned to the caller.
func (c *Client) RegionFromCoordinates(ctx context.Context, latitude, longitude float64) (string, error) {
	query := url.Values{}
	query.Set("q", fmt.Sprintf("%f+%f", latitude, longitude))
	query.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/geocode/v1/json?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("geocoder returned status %d: %s", resp.StatusCode, string(body))
	}

	var result geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(result.Results) == 0 {
		return UnknownRegion, nil
	}

	components := result.Results[0].Components
	city := components.City
	if city == "" {
		city = components.Town
	}
	if city == "" {
		city = components.Village
	}
	if city == "" {
		city = "Unknown City"
	}
	country := components.Country
	if country == "" {
		country = "Unknown Country"
	}

	return city + ", " + country, nil
}
