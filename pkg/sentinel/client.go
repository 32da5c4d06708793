// Package sentinel is a client for the Copernicus Data Space Ecosystem
// (Sentinel Hub) Process and Statistical APIs, scoped to a single field of
// interest.
package sentinel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Default endpoints for the Copernicus Data Space Ecosystem.
const (
	DefaultBaseURL  = "https://sh.dataspace.copernicus.eu"
	DefaultTokenURL = "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"

	dataCollection = "sentinel-2-l2a"
	crsWGS84       = "http://www.opengis.net/def/crs/OGC/1.3/CRS84"

	// groundResolution is the render resolution in meters per pixel.
	// Sentinel-2 visible bands are natively 10 m; maps are rendered at 2x
	// for readability.
	groundResolution = 10
	mapUpscale       = 2
)

// Config holds client settings. ClientID and ClientSecret are required.
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string

	// BBox is the field of interest: [minLon, minLat, maxLon, maxLat].
	BBox BBox

	// MaxCloudCover caps cloud coverage for statistical queries (fraction,
	// default 0.3).
	MaxCloudCover float64

	// HTTPClient overrides the default client (30s timeout).
	HTTPClient *http.Client
}

// Client talks to the Process and Statistical APIs. It caches the OAuth2
// access token until shortly before expiry.
type Client struct {
	cfg  Config
	http *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient validates the configuration and returns a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("sentinel: client credentials not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.MaxCloudCover <= 0 {
		cfg.MaxCloudCover = 0.3
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

// FetchMap renders a map of the field and returns the PNG bytes.
func (c *Client) FetchMap(ctx context.Context, kind MapKind, tr TimeRange) ([]byte, error) {
	width, height := dimensions(c.cfg.BBox, groundResolution)
	width *= mapUpscale
	height *= mapUpscale

	bbox := c.cfg.BBox
	req := processRequest{
		Input: processInput{
			Bounds: processBounds{
				BBox:       &bbox,
				Properties: boundsProperties{CRS: crsWGS84},
			},
			Data: []processData{{
				Type: dataCollection,
				DataFilter: dataFilter{
					TimeRange:       toISORange(tr),
					MosaickingOrder: "leastCC",
				},
			}},
		},
		Output: processOutput{
			Width:  width,
			Height: height,
			Responses: []processResponse{{
				Identifier: "default",
				Format:     responseFormat{Type: "image/png"},
			}},
		},
		Evalscript: mapEvalscript(kind),
	}

	body, err := c.post(ctx, c.cfg.BaseURL+"/api/v1/process", req, "image/png")
	if err != nil {
		return nil, fmt.Errorf("rendering %s map: %w", kind, err)
	}
	return body, nil
}

// FetchIndexStats returns the zonal aggregate of one index over the whole
// time range. It uses the Statistical API, so no raster ever leaves the
// provider.
func (c *Client) FetchIndexStats(ctx context.Context, index IndexKind, tr TimeRange) (*IndexStats, error) {
	entries, err := c.statistics(ctx, index, tr, tr.To.Sub(tr.From))
	if err != nil {
		return nil, fmt.Errorf("fetching %s statistics: %w", index, err)
	}

	// With the aggregation interval spanning the whole range there is one
	// entry; take the latest observed either way.
	entry := entries[len(entries)-1]
	stats, err := extractBandStats(entry, string(index))
	if err != nil {
		return nil, fmt.Errorf("fetching %s statistics: %w", index, err)
	}

	return &IndexStats{
		Index: index,
		Mean:  stats.Mean,
		Min:   stats.Min,
		Max:   stats.Max,
		Date:  tr.To,
	}, nil
}

// FetchZonalStatistics returns a daily series of NDVI zonal statistics over
// the field polygon.
func (c *Client) FetchZonalStatistics(ctx context.Context, tr TimeRange) ([]DailyStats, error) {
	entries, err := c.statistics(ctx, IndexNDVI, tr, 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("fetching zonal statistics: %w", err)
	}

	series := make([]DailyStats, 0, len(entries))
	for _, entry := range entries {
		stats, err := extractBandStats(entry, string(IndexNDVI))
		if err != nil {
			// Cloudy days have no valid samples; skip them.
			continue
		}
		date, err := time.Parse(time.RFC3339, entry.Interval.From)
		if err != nil {
			return nil, fmt.Errorf("fetching zonal statistics: bad interval %q: %w", entry.Interval.From, err)
		}
		series = append(series, DailyStats{
			Date:        date,
			Mean:        stats.Mean,
			Min:         stats.Min,
			Max:         stats.Max,
			SampleCount: stats.SampleCount,
		})
	}
	return series, nil
}

// statistics runs one Statistical API query with the given aggregation
// interval and returns the raw entries.
func (c *Client) statistics(ctx context.Context, index IndexKind, tr TimeRange, interval time.Duration) ([]statsEntry, error) {
	maxCC := c.cfg.MaxCloudCover
	req := statsRequest{
		Input: processInput{
			Bounds: processBounds{
				Geometry:   bboxPolygon(c.cfg.BBox),
				Properties: boundsProperties{CRS: crsWGS84},
			},
			Data: []processData{{
				Type: dataCollection,
				DataFilter: dataFilter{
					TimeRange:     toISORange(tr),
					MaxCloudCover: &maxCC,
				},
			}},
		},
		Aggregation: statsAggregation{
			TimeRange:           toISORange(tr),
			AggregationInterval: statsInterval{Of: isoDuration(interval)},
			Width:               100,
			Height:              100,
			Evalscript:          indexEvalscript(index),
		},
	}

	body, err := c.post(ctx, c.cfg.BaseURL+"/api/v1/statistics", req, "application/json")
	if err != nil {
		return nil, err
	}

	var resp statsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding statistics response: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no observations in range %s to %s",
			tr.From.Format("2006-01-02"), tr.To.Format("2006-01-02"))
	}
	return resp.Data, nil
}

// post sends an authenticated JSON request and returns the response body.
func (c *Client) post(ctx context.Context, endpoint string, payload interface{}, accept string) ([]byte, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(data, 200))
	}
	return data, nil
}

// token returns a cached access token, refreshing it via the
// client-credentials grant when missing or within a minute of expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting access token: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint status %d: %s", resp.StatusCode, truncate(data, 200))
	}

	var tok tokenResponse
	if err := json.Unmarshal(data, &tok); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access token")
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

// extractBandStats pulls the first band's stats for the named output.
func extractBandStats(entry statsEntry, output string) (bandStats, error) {
	out, ok := entry.Outputs[output]
	if !ok {
		return bandStats{}, fmt.Errorf("output %q missing from response", output)
	}
	for _, band := range out.Bands {
		if band.Stats.SampleCount == 0 {
			return bandStats{}, fmt.Errorf("no valid samples for output %q", output)
		}
		return band.Stats, nil
	}
	return bandStats{}, fmt.Errorf("output %q has no bands", output)
}

// bboxPolygon closes the bounding box into a GeoJSON polygon ring.
func bboxPolygon(b BBox) *geometry {
	return &geometry{
		Type: "Polygon",
		Coordinates: [][][2]float64{{
			{b[0], b[1]},
			{b[2], b[1]},
			{b[2], b[3]},
			{b[0], b[3]},
			{b[0], b[1]},
		}},
	}
}

// dimensions converts the bounding box to pixel dimensions at the given
// ground resolution, using a spherical-earth approximation.
func dimensions(b BBox, resolution float64) (width, height int) {
	const metersPerDegLat = 110540.0
	midLat := (b[1] + b[3]) / 2
	metersPerDegLon := 111320.0 * math.Cos(midLat*math.Pi/180)

	widthM := (b[2] - b[0]) * metersPerDegLon
	heightM := (b[3] - b[1]) * metersPerDegLat

	width = int(math.Round(widthM / resolution))
	height = int(math.Round(heightM / resolution))
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}

func toISORange(tr TimeRange) isoTimeRange {
	return isoTimeRange{
		From: tr.From.UTC().Format(time.RFC3339),
		To:   tr.To.UTC().Format(time.RFC3339),
	}
}

// isoDuration renders a duration as an ISO-8601 period in whole days.
func isoDuration(d time.Duration) string {
	days := int(d / (24 * time.Hour))
	if days < 1 {
		days = 1
	}
	return fmt.Sprintf("P%dD", days)
}

func truncate(data []byte, n int) string {
	s := string(data)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
