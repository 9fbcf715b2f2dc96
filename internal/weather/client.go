// Package weather looks up current conditions from the OpenWeatherMap
// current-weather endpoint and formats them for prompts and item groups.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the OpenWeatherMap current-weather endpoint.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

	defaultTimeout = 10 * time.Second

	// Unavailable is shown wherever a weather string is expected but the
	// lookup produced nothing.
	Unavailable = "날씨 정보를 가져올 수 없습니다"
)

// ErrNotConfigured is returned when no API key was supplied.
var ErrNotConfigured = errors.New("weather API key not configured")

// Report is the part of a weather response the stylist uses.
type Report struct {
	City        string `json:"city"`
	Temperature int    `json:"temperature"`
	Description string `json:"description"`
}

// Format renders r as "<description>, 기온 <temp>°C", or Unavailable for nil.
func Format(r *Report) string {
	if r == nil {
		return Unavailable
	}
	return fmt.Sprintf("%s, 기온 %d°C", r.Description, r.Temperature)
}

// Client queries OpenWeatherMap.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewClient creates a weather client. An empty baseURL selects DefaultBaseURL.
// An empty apiKey is allowed; every lookup then returns ErrNotConfigured.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// Configured reports whether the client has an API key.
func (c *Client) Configured() bool { return c.apiKey != "" }

type apiResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

type apiError struct {
	Cod     any    `json:"cod"`
	Message string `json:"message"`
}

// Current returns the current weather for location. Korean city names are
// translated to the English names the API resolves reliably.
func (c *Client) Current(ctx context.Context, location string) (*Report, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	city := CityQuery(location)
	params := url.Values{
		"q":     {city},
		"appid": {c.apiKey},
		"units": {"metric"},
		"lang":  {"kr"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request for %q: %w", city, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)
		return nil, fmt.Errorf("weather API status %d for %q: %s", resp.StatusCode, city, apiErr.Message)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}
	if len(parsed.Weather) == 0 {
		return nil, fmt.Errorf("weather response for %q has no conditions", city)
	}

	report := &Report{
		City:        parsed.Name,
		Temperature: int(math.Round(parsed.Main.Temp)),
		Description: strings.TrimSpace(parsed.Weather[0].Description),
	}
	log.Debug().
		Str("city", city).
		Int("temperature", report.Temperature).
		Dur("duration", time.Since(start)).
		Msg("Weather lookup complete")
	return report, nil
}
