// Package collector orchestrates one collection run: admission against the
// monthly budget, satellite and weather fetches, and persistence of the
// results. Each satellite operation is checked and committed individually so
// a partially exhausted budget degrades the run instead of aborting it.
package collector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agromonitor/copernicus/pkg/quota"
	"github.com/agromonitor/copernicus/pkg/sentinel"
	"github.com/agromonitor/copernicus/pkg/sink"
	"github.com/agromonitor/copernicus/pkg/weather"
)

// ErrQuotaExhausted is returned when the upfront admission check denies the
// whole run.
var ErrQuotaExhausted = errors.New("monthly quota exhausted")

// DefaultLookbackDays is the imagery search window. Sentinel-2 revisits
// every 5 days, so 10 days guarantees at least one usable acquisition.
const DefaultLookbackDays = 10

// SatelliteAPI is the subset of the Sentinel Hub client the collector uses.
type SatelliteAPI interface {
	FetchMap(ctx context.Context, kind sentinel.MapKind, tr sentinel.TimeRange) ([]byte, error)
	FetchIndexStats(ctx context.Context, index sentinel.IndexKind, tr sentinel.TimeRange) (*sentinel.IndexStats, error)
}

// WeatherAPI fetches current conditions for the monitored field.
type WeatherAPI interface {
	Current(ctx context.Context) (*weather.Observation, error)
}

// Config wires a collector. Gate and Satellite are required; Weather and
// Sink are optional and skipped when nil.
type Config struct {
	Gate      *quota.Gate
	Satellite SatelliteAPI
	Weather   WeatherAPI
	Sink      sink.Sink

	// MapsDir receives the rendered PNG maps.
	MapsDir string

	// PolygonID labels persisted rows with the monitored field.
	PolygonID string

	LookbackDays int

	Clock  quota.Clock
	Logger quota.Logger
}

// Collector runs budgeted collection cycles.
type Collector struct {
	cfg Config
}

// New validates the configuration and returns a collector.
func New(cfg Config) (*Collector, error) {
	if cfg.Gate == nil {
		return nil, fmt.Errorf("collector: gate is required")
	}
	if cfg.Satellite == nil {
		return nil, fmt.Errorf("collector: satellite client is required")
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultLookbackDays
	}
	if cfg.Clock == nil {
		cfg.Clock = quota.SystemClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = &quota.NoopLogger{}
	}
	return &Collector{cfg: cfg}, nil
}

// Result summarizes one run.
type Result struct {
	Mode      quota.Mode
	Completed []quota.Operation
	Skipped   []quota.Operation
	Failed    []quota.Operation

	// PUSpent is the processing-unit total committed during the run.
	PUSpent int

	Record *sink.Record
}

// modeSteps maps each collection mode to its satellite operations, in the
// order they run. Cheaper index fetches come last so they still fit when
// the budget runs out mid-cycle.
var modeSteps = map[quota.Mode][]quota.Operation{
	quota.ModeNormal:   {quota.OpMapRGB, quota.OpMapNDVI, quota.OpNDVI, quota.OpNDWI, quota.OpNDSI},
	quota.ModeEconomic: {quota.OpNDVI, quota.OpNDWI, quota.OpNDSI},
	quota.ModeMinimal:  {quota.OpNDVI},
}

// Run performs one collection cycle in the given mode. The whole cycle is
// admitted upfront against the mode's estimated cost; each operation is then
// re-checked before it runs, skipped on denial, and committed after success.
func (c *Collector) Run(ctx context.Context, mode quota.Mode) (*Result, error) {
	steps, ok := modeSteps[mode]
	if !ok {
		return nil, quota.ErrUnknownMode
	}

	decision, err := c.cfg.Gate.Check(ctx, mode.EstimatedCost(), quota.WithMinRequests(len(steps)))
	if err != nil {
		return nil, fmt.Errorf("admission check: %w", err)
	}
	if !decision.Allowed {
		c.cfg.Logger.Warn("collection refused", quota.Field{Key: "mode", Value: string(mode)},
			quota.Field{Key: "reason", Value: decision.Reason})
		return nil, fmt.Errorf("%w: %s", ErrQuotaExhausted, decision.Reason)
	}

	now := c.cfg.Clock.Now()
	tr := sentinel.LastDays(now, c.cfg.LookbackDays)

	result := &Result{Mode: mode}
	rec := &sink.Record{Timestamp: now, PolygonID: c.cfg.PolygonID}

	// Weather costs no Sentinel Hub quota and runs alongside the satellite
	// steps. A weather failure degrades the record, not the run.
	var obs *weather.Observation
	var weatherErr error
	g, gctx := errgroup.WithContext(ctx)
	if c.cfg.Weather != nil {
		g.Go(func() error {
			obs, weatherErr = c.cfg.Weather.Current(gctx)
			return nil
		})
	}

	for _, op := range steps {
		if err := c.runStep(ctx, op, tr, now, rec, result); err != nil {
			g.Wait()
			return result, err
		}
	}

	g.Wait()
	if weatherErr != nil {
		c.cfg.Logger.Warn("weather fetch failed", quota.Field{Key: "error", Value: weatherErr.Error()})
	} else if obs != nil {
		applyWeather(rec, obs)
	}

	result.Record = rec
	if c.cfg.Sink != nil {
		if err := c.cfg.Sink.Write(ctx, rec); err != nil {
			c.cfg.Logger.Error("persisting record", quota.Field{Key: "error", Value: err.Error()})
		}
	}

	c.cfg.Logger.Info("collection finished",
		quota.Field{Key: "mode", Value: string(mode)},
		quota.Field{Key: "completed", Value: len(result.Completed)},
		quota.Field{Key: "skipped", Value: len(result.Skipped)},
		quota.Field{Key: "failed", Value: len(result.Failed)},
		quota.Field{Key: "pu_spent", Value: result.PUSpent})
	return result, nil
}

// runStep checks, executes, and commits a single satellite operation. Only
// store failures abort the run; fetch failures and denials are recorded and
// the cycle continues.
func (c *Collector) runStep(ctx context.Context, op quota.Operation, tr sentinel.TimeRange, now time.Time, rec *sink.Record, result *Result) error {
	decision, err := c.cfg.Gate.Check(ctx, op.EstimatedCost())
	if err != nil {
		return fmt.Errorf("checking %s: %w", op, err)
	}
	if !decision.Allowed {
		c.cfg.Logger.Warn("operation skipped",
			quota.Field{Key: "operation", Value: string(op)},
			quota.Field{Key: "reason", Value: decision.Reason})
		result.Skipped = append(result.Skipped, op)
		return nil
	}

	if err := c.execute(ctx, op, tr, now, rec); err != nil {
		c.cfg.Logger.Error("operation failed",
			quota.Field{Key: "operation", Value: string(op)},
			quota.Field{Key: "error", Value: err.Error()})
		result.Failed = append(result.Failed, op)
		return nil
	}

	if err := c.cfg.Gate.Commit(ctx, op); err != nil {
		return fmt.Errorf("committing %s: %w", op, err)
	}
	result.Completed = append(result.Completed, op)
	result.PUSpent += op.EstimatedCost()
	return nil
}

func (c *Collector) execute(ctx context.Context, op quota.Operation, tr sentinel.TimeRange, now time.Time, rec *sink.Record) error {
	switch op {
	case quota.OpMapRGB:
		path, err := c.fetchMap(ctx, sentinel.MapRGB, tr, now)
		if err != nil {
			return err
		}
		rec.MapRGBPath = path
	case quota.OpMapNDVI:
		path, err := c.fetchMap(ctx, sentinel.MapNDVI, tr, now)
		if err != nil {
			return err
		}
		rec.MapNDVIPath = path
	case quota.OpNDVI:
		stats, err := c.cfg.Satellite.FetchIndexStats(ctx, sentinel.IndexNDVI, tr)
		if err != nil {
			return err
		}
		rec.NDVIMean, rec.NDVIMin, rec.NDVIMax = &stats.Mean, &stats.Min, &stats.Max
	case quota.OpNDWI:
		stats, err := c.cfg.Satellite.FetchIndexStats(ctx, sentinel.IndexNDWI, tr)
		if err != nil {
			return err
		}
		rec.NDWIMean = &stats.Mean
	case quota.OpNDSI:
		stats, err := c.cfg.Satellite.FetchIndexStats(ctx, sentinel.IndexNDSI, tr)
		if err != nil {
			return err
		}
		rec.NDSIMean = &stats.Mean
		rec.NDSIInterpretation = stats.Interpretation()
	default:
		return fmt.Errorf("unsupported operation %q", op)
	}
	return nil
}

// fetchMap downloads a rendered map and writes it under MapsDir as
// farm_<kind>_<YYYYMMDD>.png.
func (c *Collector) fetchMap(ctx context.Context, kind sentinel.MapKind, tr sentinel.TimeRange, now time.Time) (string, error) {
	png, err := c.cfg.Satellite.FetchMap(ctx, kind, tr)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(c.cfg.MapsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating maps directory: %w", err)
	}
	name := fmt.Sprintf("farm_%s_%s.png", kind, now.Format("20060102"))
	path := filepath.Join(c.cfg.MapsDir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("writing map: %w", err)
	}
	return path, nil
}

func applyWeather(rec *sink.Record, obs *weather.Observation) {
	rec.TempC = &obs.Temp
	rec.TempMinC = &obs.TempMin
	rec.TempMaxC = &obs.TempMax
	rec.Humidity = &obs.Humidity
	rec.PressureHPa = &obs.Pressure
	rec.WindSpeedMS = &obs.WindSpeed
	rec.WindDeg = &obs.WindDeg
	rec.Clouds = &obs.Clouds
	rec.WeatherDesc = obs.Description
}
