package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// csvHeader is the column order of the history file. Appends assume an
// existing file was written with the same header.
var csvHeader = []string{
	"timestamp",
	"polygon_id",
	"ndvi_mean",
	"ndwi_mean",
	"ndsi_mean",
	"ndsi_interp",
	"map_rgb",
	"map_ndvi",
	"temp_c",
	"temp_min_c",
	"temp_max_c",
	"humidity",
	"weather_desc",
}

// CSV appends records to a local history file, writing the header when the
// file is first created.
type CSV struct {
	path string
}

// NewCSV creates a CSV sink at path. The file is created lazily.
func NewCSV(path string) *CSV {
	return &CSV{path: path}
}

// Write implements Sink.
func (c *CSV) Write(ctx context.Context, rec *Record) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}

	_, statErr := os.Stat(c.path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening history file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(csvHeader); err != nil {
			return fmt.Errorf("writing csv header: %w", err)
		}
	}

	row := []string{
		rec.Timestamp.Format("2006-01-02 15:04:05"),
		rec.PolygonID,
		formatFloat(rec.NDVIMean),
		formatFloat(rec.NDWIMean),
		formatFloat(rec.NDSIMean),
		rec.NDSIInterpretation,
		rec.MapRGBPath,
		rec.MapNDVIPath,
		formatFloat(rec.TempC),
		formatFloat(rec.TempMinC),
		formatFloat(rec.TempMaxC),
		formatInt(rec.Humidity),
		rec.WeatherDesc,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("writing csv row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
