package sink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres writes collection results to the deployment database (Neon).
// Weather readings go to weather_data, index readings to ndvi_data; both
// inserts happen in one transaction so a run is recorded all-or-nothing.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool and verifies it with a ping.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	if connString == "" {
		return nil, fmt.Errorf("connection string is required")
	}

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Write implements Sink.
func (p *Postgres) Write(ctx context.Context, rec *Record) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if rec.TempC != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO weather_data
				(polygon_id, temperature_c, temp_min_c, temp_max_c, humidity_percent,
				 pressure_hpa, wind_speed_ms, wind_deg, clouds_percent,
				 weather_main, weather_description)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			rec.PolygonID,
			rec.TempC,
			rec.TempMinC,
			rec.TempMaxC,
			rec.Humidity,
			rec.PressureHPa,
			rec.WindSpeedMS,
			rec.WindDeg,
			rec.Clouds,
			"OpenWeather",
			rec.WeatherDesc,
		)
		if err != nil {
			return fmt.Errorf("inserting weather row: %w", err)
		}
	}

	if rec.NDVIMean != nil || rec.NDWIMean != nil || rec.NDSIMean != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO ndvi_data
				(polygon_id, ndvi_mean, ndvi_min, ndvi_max, ndwi_mean,
				 ndsi_mean, ndsi_interpretation, cloud_coverage)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rec.PolygonID,
			rec.NDVIMean,
			rec.NDVIMin,
			rec.NDVIMax,
			rec.NDWIMean,
			rec.NDSIMean,
			rec.NDSIInterpretation,
			0.0,
		)
		if err != nil {
			return fmt.Errorf("inserting index row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
