package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/planetcalm/petmap/internal/geo"
)

const geocodingBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// Client handles communication with the Mapbox Geocoding API
type Client struct {
	APIKey string // IMPORTANT: Handle your API Key securely! Load from environment variable.
	Client *http.Client
}

// New creates a new Mapbox client instance
func New(apiKey string, timeout time.Duration) *Client {
	if apiKey == "" {
		log.Println("Warning: Mapbox API Key is empty.")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		APIKey: apiKey,
		Client: &http.Client{Timeout: timeout},
	}
}

// geocodeParams are the query parameters for a forward geocoding call.
// Place-level types keep results at city/region granularity.
type geocodeParams struct {
	AccessToken string `url:"access_token"`
	Types       string `url:"types"`
	Limit       int    `url:"limit"`
}

// geocodeResponse is the subset of the Mapbox response we use.
type geocodeResponse struct {
	Features []struct {
		Center    []float64 `json:"center"` // [longitude, latitude]
		Relevance float64   `json:"relevance"`
		PlaceName string    `json:"place_name"`
	} `json:"features"`
}

// Geocode resolves a free-text place query to a single center point.
// A nil match with nil error means Mapbox answered but found nothing.
func (mc *Client) Geocode(ctx context.Context, text string) (*geo.Match, error) {
	if mc.APIKey == "" {
		return nil, fmt.Errorf("mapbox API key is not set")
	}
	if text == "" {
		return nil, fmt.Errorf("empty geocoding query")
	}

	params, err := query.Values(geocodeParams{
		AccessToken: mc.APIKey,
		Types:       "place,locality,region",
		Limit:       1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode geocoding params: %w", err)
	}

	fullURL := fmt.Sprintf("%s/%s.json?%s", geocodingBaseURL, url.PathEscape(text), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Mapbox Geocoding request: %w", err)
	}

	resp, err := mc.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute Mapbox Geocoding request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Mapbox Geocoding response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mapbox geocoding error: status code %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var geoResp geocodeResponse
	if err := json.Unmarshal(bodyBytes, &geoResp); err != nil {
		return nil, fmt.Errorf("failed to decode Mapbox Geocoding response: %w", err)
	}

	if len(geoResp.Features) == 0 {
		return nil, nil
	}

	feature := geoResp.Features[0]
	if len(feature.Center) != 2 {
		return nil, fmt.Errorf("mapbox geocoding returned malformed center: %v", feature.Center)
	}

	return &geo.Match{
		Longitude: feature.Center[0],
		Latitude:  feature.Center[1],
		Relevance: feature.Relevance,
		PlaceName: feature.PlaceName,
	}, nil
}
