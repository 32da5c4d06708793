package cli

import (
	"fmt"
	"os"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/agromonitor/copernicus/internal/config"
	"github.com/agromonitor/copernicus/pkg/quota"
	quotazerolog "github.com/agromonitor/copernicus/pkg/quota/logger/zerolog"
	"github.com/agromonitor/copernicus/pkg/sentinel"
	"github.com/agromonitor/copernicus/pkg/weather"
	filestore "github.com/agromonitor/copernicus/storage/file"
	memorystore "github.com/agromonitor/copernicus/storage/memory"
	redisstore "github.com/agromonitor/copernicus/storage/redis"
)

// app holds the wired collaborators shared by the subcommands.
type app struct {
	cfg    config.Config
	log    zerolog.Logger
	gate   *quota.Gate
	closer func()
}

// loadApp reads the configuration and wires the logger, quota store, and
// gate. Metrics are wired per command: the serve command registers
// Prometheus collectors, one-shot commands run without them.
func loadApp(metrics quota.Metrics) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := newLogger(cfg.Logging)

	store, closer, err := newStore(cfg.Quota)
	if err != nil {
		return nil, err
	}

	gate, err := quota.NewGate(store, quota.Config{
		Logger:               quotazerolog.NewLogger(log),
		Metrics:              metrics,
		MonthlyLimitPU:       cfg.Quota.MonthlyLimitPU,
		MonthlyLimitRequests: cfg.Quota.MonthlyLimitRequests,
	})
	if err != nil {
		closer()
		return nil, err
	}

	return &app{cfg: cfg, log: log, gate: gate, closer: closer}, nil
}

func (a *app) quotaLogger() quota.Logger {
	return quotazerolog.NewLogger(a.log)
}

func (a *app) close() {
	if a.closer != nil {
		a.closer()
	}
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var log zerolog.Logger
	if cfg.Pretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = zerolog.New(os.Stderr)
	}
	return log.Level(level).With().Timestamp().Logger()
}

// newStore builds the configured quota store and a release function for any
// underlying connection.
func newStore(cfg config.QuotaConfig) (quota.Store, func(), error) {
	switch cfg.Backend {
	case "file":
		return filestore.New(cfg.Path), func() {}, nil
	case "memory":
		return memorystore.New(), func() {}, nil
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts := []redisstore.Option{}
		if cfg.Redis.Key != "" {
			opts = append(opts, redisstore.WithKey(cfg.Redis.Key))
		}
		store, err := redisstore.New(client, opts...)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return store, func() { client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown quota backend %q", cfg.Backend)
}

// newSatellite builds the Sentinel Hub client for the configured field.
func (a *app) newSatellite() (*sentinel.Client, error) {
	return sentinel.NewClient(sentinel.Config{
		BaseURL:       a.cfg.Sentinel.BaseURL,
		TokenURL:      a.cfg.Sentinel.TokenURL,
		ClientID:      a.cfg.Sentinel.ClientID,
		ClientSecret:  a.cfg.Sentinel.ClientSecret,
		BBox:          sentinel.BBox(a.cfg.Field.BBox),
		MaxCloudCover: a.cfg.Sentinel.MaxCloudCover,
	})
}

// newWeather builds the OpenWeatherMap client, or nil when no key is
// configured.
func (a *app) newWeather() (*weather.Client, error) {
	if a.cfg.Weather.APIKey == "" {
		return nil, nil
	}
	return weather.NewClient(weather.Config{
		APIKey: a.cfg.Weather.APIKey,
		Lat:    a.cfg.Field.Lat,
		Lon:    a.cfg.Field.Lon,
		Lang:   a.cfg.Weather.Lang,
	})
}
