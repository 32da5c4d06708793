// Package cds retrieves ERA5-Land reanalysis data from the Climate Data
// Store. Retrievals are asynchronous on the provider side: submit a request,
// poll the task until complete, then download the NetCDF result. CDS
// downloads do not consume Sentinel Hub quota.
package cds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// DefaultBaseURL is the CDS API root.
const DefaultBaseURL = "https://cds.climate.copernicus.eu/api/v2"

// era5LandDataset is the hourly land reanalysis dataset.
const era5LandDataset = "reanalysis-era5-land"

// defaultVariables are the agronomic variables the collector archives.
var defaultVariables = []string{
	"2m_temperature",
	"2m_dewpoint_temperature",
	"total_precipitation",
	"10m_u_component_of_wind",
	"10m_v_component_of_wind",
	"soil_temperature_level_1",
	"volumetric_soil_water_layer_1",
}

// Config holds client settings. Key is the "UID:API-key" pair from the CDS
// profile page.
type Config struct {
	BaseURL string
	Key     string

	// PollInterval is the delay between task status checks (default 5s).
	PollInterval time.Duration

	HTTPClient *http.Client
}

// Client submits and downloads CDS retrievals.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient validates the configuration and returns a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Key == "" {
		return nil, fmt.Errorf("cds: api key not configured")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

// Request describes one ERA5-Land retrieval: a month of daily readings over
// an area centered on the field.
type Request struct {
	Year  int
	Month time.Month

	// Area is [north, west, south, east] in degrees.
	Area [4]float64

	// Variables overrides the default variable set when non-empty.
	Variables []string
}

// retrieveBody is the CDS resource submission payload.
type retrieveBody struct {
	ProductType string     `json:"product_type"`
	Variable    []string   `json:"variable"`
	Year        string     `json:"year"`
	Month       string     `json:"month"`
	Day         []string   `json:"day"`
	Time        []string   `json:"time"`
	Area        [4]float64 `json:"area"`
	Format      string     `json:"format"`
}

// taskStatus is the submission and polling reply.
type taskStatus struct {
	State     string `json:"state"`
	RequestID string `json:"request_id"`
	Location  string `json:"location"`
	Error     struct {
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// RetrieveERA5Land submits a retrieval, waits for completion, and writes
// the NetCDF result to destPath. The parent directory is created if needed.
func (c *Client) RetrieveERA5Land(ctx context.Context, req Request, destPath string) error {
	vars := req.Variables
	if len(vars) == 0 {
		vars = defaultVariables
	}

	days := make([]string, 0, 31)
	for d := 1; d <= 31; d++ {
		days = append(days, fmt.Sprintf("%02d", d))
	}

	body := retrieveBody{
		ProductType: "reanalysis",
		Variable:    vars,
		Year:        fmt.Sprintf("%04d", req.Year),
		Month:       fmt.Sprintf("%02d", int(req.Month)),
		Day:         days,
		Time:        []string{"12:00"},
		Area:        req.Area,
		Format:      "netcdf",
	}

	task, err := c.submit(ctx, body)
	if err != nil {
		return fmt.Errorf("submitting era5 retrieval: %w", err)
	}

	task, err = c.waitForCompletion(ctx, task)
	if err != nil {
		return fmt.Errorf("waiting for era5 retrieval: %w", err)
	}

	if err := c.download(ctx, task.Location, destPath); err != nil {
		return fmt.Errorf("downloading era5 result: %w", err)
	}
	return nil
}

func (c *Client) submit(ctx context.Context, body retrieveBody) (*taskStatus, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/resources/%s", c.cfg.BaseURL, era5LandDataset)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	return c.doTask(req)
}

// waitForCompletion polls the task until it completes or fails.
func (c *Client) waitForCompletion(ctx context.Context, task *taskStatus) (*taskStatus, error) {
	for {
		switch task.State {
		case "completed":
			return task, nil
		case "failed":
			return nil, fmt.Errorf("retrieval failed: %s: %s", task.Error.Reason, task.Error.Message)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.PollInterval):
		}

		endpoint := fmt.Sprintf("%s/tasks/%s", c.cfg.BaseURL, task.RequestID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		c.authorize(req)

		task, err = c.doTask(req)
		if err != nil {
			return nil, err
		}
	}
}

func (c *Client) doTask(req *http.Request) (*taskStatus, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("cds status %d: %s", resp.StatusCode, truncate(data, 200))
	}

	var task taskStatus
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decoding cds response: %w", err)
	}
	return &task, nil
}

// download streams the result file to destPath via a temp file so a broken
// transfer never leaves a truncated archive behind.
func (c *Client) download(ctx context.Context, location, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download status %d", resp.StatusCode)
	}

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".era5-*.nc")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, destPath)
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Basic "+c.cfg.Key)
}

func truncate(data []byte, n int) string {
	s := string(data)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
