// Package sink persists collection results. Sinks are best-effort: a failed
// write is reported to the caller, who logs it and keeps the run's data in
// the remaining sinks.
package sink

import (
	"context"
	"time"
)

// Record is one collection run's flattened output row. Optional readings
// are pointers so an absent value is distinguishable from zero.
type Record struct {
	Timestamp time.Time
	PolygonID string

	NDVIMean *float64
	NDVIMin  *float64
	NDVIMax  *float64
	NDWIMean *float64
	NDSIMean *float64

	// NDSIInterpretation is the agronomic reading of the NDSI mean.
	NDSIInterpretation string

	MapRGBPath  string
	MapNDVIPath string

	TempC       *float64
	TempMinC    *float64
	TempMaxC    *float64
	Humidity    *int
	PressureHPa *int
	WindSpeedMS *float64
	WindDeg     *int
	Clouds      *int
	WeatherDesc string
}

// Sink writes one record to a destination.
type Sink interface {
	Write(ctx context.Context, rec *Record) error
}

// Multi fans one record out to several sinks, stopping at the first error.
type Multi []Sink

// Write implements Sink.
func (m Multi) Write(ctx context.Context, rec *Record) error {
	for _, s := range m {
		if err := s.Write(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
