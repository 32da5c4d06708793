// Package weather is a client for the OpenWeatherMap current-conditions
// API. Weather reads do not consume Copernicus quota and are never gated.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the OpenWeatherMap current-weather endpoint.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// Observation is a single current-conditions reading.
type Observation struct {
	Temp        float64 `json:"temp_c"`
	TempMin     float64 `json:"temp_min_c"`
	TempMax     float64 `json:"temp_max_c"`
	Humidity    int     `json:"humidity_percent"`
	Pressure    int     `json:"pressure_hpa"`
	WindSpeed   float64 `json:"wind_speed_ms"`
	WindDeg     int     `json:"wind_deg"`
	Clouds      int     `json:"clouds_percent"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

// Config holds client settings. APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string

	// Lat and Lon locate the monitored field.
	Lat float64
	Lon float64

	// Lang selects the description language (default "es", matching the
	// deployment's reports).
	Lang string

	HTTPClient *http.Client
}

// Client fetches current conditions for a fixed location.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient validates the configuration and returns a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("weather: api key not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Lang == "" {
		cfg.Lang = "es"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

// owmResponse mirrors the fields of the provider reply this client uses.
type owmResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		TempMin  float64 `json:"temp_min"`
		TempMax  float64 `json:"temp_max"`
		Humidity int     `json:"humidity"`
		Pressure int     `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
}

// Current fetches the current conditions at the configured location.
func (c *Client) Current(ctx context.Context) (*Observation, error) {
	params := url.Values{
		"lat":   {strconv.FormatFloat(c.cfg.Lat, 'f', -1, 64)},
		"lon":   {strconv.FormatFloat(c.cfg.Lon, 'f', -1, 64)},
		"appid": {c.cfg.APIKey},
		"units": {"metric"},
		"lang":  {c.cfg.Lang},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying weather: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading weather response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather endpoint status %d", resp.StatusCode)
	}

	var raw owmResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding weather response: %w", err)
	}

	obs := &Observation{
		Temp:      raw.Main.Temp,
		TempMin:   raw.Main.TempMin,
		TempMax:   raw.Main.TempMax,
		Humidity:  raw.Main.Humidity,
		Pressure:  raw.Main.Pressure,
		WindSpeed: raw.Wind.Speed,
		WindDeg:   raw.Wind.Deg,
		Clouds:    raw.Clouds.All,
	}
	if len(raw.Weather) > 0 {
		obs.Description = raw.Weather[0].Description
		obs.Icon = raw.Weather[0].Icon
	}
	return obs, nil
}
