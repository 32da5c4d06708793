package sink_test

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromonitor/copernicus/pkg/sink"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func testRecord() *sink.Record {
	return &sink.Record{
		Timestamp:          time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC),
		PolygonID:          "finca-norte",
		NDVIMean:           floatPtr(0.6123),
		NDWIMean:           floatPtr(0.1201),
		NDSIMean:           floatPtr(-0.45),
		NDSIInterpretation: "vegetation cover",
		MapRGBPath:         "maps/farm_rgb_20250310.png",
		TempC:              floatPtr(27.5),
		Humidity:           intPtr(78),
		WeatherDesc:        "nubes dispersas",
	}
}

func TestCSV_WriteCreatesHeaderAndRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history", "collections.csv")
	c := sink.NewCSV(path)

	require.NoError(t, c.Write(context.Background(), testRecord()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "timestamp", rows[0][0])
	assert.Equal(t, "polygon_id", rows[0][1])

	assert.Equal(t, "2025-03-10 12:30:00", rows[1][0])
	assert.Equal(t, "finca-norte", rows[1][1])
	assert.Equal(t, "0.6123", rows[1][2])
	assert.Equal(t, "0.1201", rows[1][3])
	assert.Equal(t, "-0.4500", rows[1][4])
	assert.Equal(t, "vegetation cover", rows[1][5])
	assert.Equal(t, "maps/farm_rgb_20250310.png", rows[1][6])
	assert.Equal(t, "27.5000", rows[1][8])
	assert.Equal(t, "78", rows[1][11])
	assert.Equal(t, "nubes dispersas", rows[1][12])
}

func TestCSV_AppendsWithoutRepeatingHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collections.csv")
	c := sink.NewCSV(path)

	require.NoError(t, c.Write(context.Background(), testRecord()))
	require.NoError(t, c.Write(context.Background(), testRecord()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestCSV_MissingValuesLeftEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collections.csv")
	c := sink.NewCSV(path)

	rec := &sink.Record{
		Timestamp: time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC),
		PolygonID: "finca-norte",
	}
	require.NoError(t, c.Write(context.Background(), rec))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "", rows[1][2])
	assert.Equal(t, "", rows[1][8])
	assert.Equal(t, "", rows[1][11])
}

type recordingSink struct {
	calls int
	err   error
}

func (r *recordingSink) Write(ctx context.Context, rec *sink.Record) error {
	r.calls++
	return r.err
}

func TestMulti_FansOut(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	m := sink.Multi{a, b}

	require.NoError(t, m.Write(context.Background(), testRecord()))
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
}

func TestMulti_StopsOnError(t *testing.T) {
	boom := errors.New("disk full")
	a := &recordingSink{err: boom}
	b := &recordingSink{}
	m := sink.Multi{a, b}

	err := m.Write(context.Background(), testRecord())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, b.calls)
}
