package weather_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromonitor/copernicus/pkg/weather"
)

const sampleResponse = `{
	"main": {"temp": 27.4, "temp_min": 24.1, "temp_max": 30.2, "humidity": 82, "pressure": 1011},
	"wind": {"speed": 3.6, "deg": 140},
	"clouds": {"all": 75},
	"weather": [{"description": "lluvia ligera", "icon": "10d"}]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *weather.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := weather.NewClient(weather.Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Lat:     8.441968,
		Lon:     -81.190317,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := weather.NewClient(weather.Config{})
	assert.Error(t, err)
}

func TestClient_Current(t *testing.T) {
	var query map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{
			"lat":   r.URL.Query().Get("lat"),
			"lon":   r.URL.Query().Get("lon"),
			"appid": r.URL.Query().Get("appid"),
			"units": r.URL.Query().Get("units"),
		}
		w.Write([]byte(sampleResponse))
	})

	obs, err := client.Current(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 27.4, obs.Temp, 1e-9)
	assert.InDelta(t, 24.1, obs.TempMin, 1e-9)
	assert.InDelta(t, 30.2, obs.TempMax, 1e-9)
	assert.Equal(t, 82, obs.Humidity)
	assert.Equal(t, 1011, obs.Pressure)
	assert.InDelta(t, 3.6, obs.WindSpeed, 1e-9)
	assert.Equal(t, 140, obs.WindDeg)
	assert.Equal(t, 75, obs.Clouds)
	assert.Equal(t, "lluvia ligera", obs.Description)

	assert.Equal(t, "8.441968", query["lat"])
	assert.Equal(t, "-81.190317", query["lon"])
	assert.Equal(t, "test-key", query["appid"])
	assert.Equal(t, "metric", query["units"])
}

func TestClient_CurrentErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"cod":401}`, http.StatusUnauthorized)
	})

	_, err := client.Current(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_CurrentMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := client.Current(context.Background())
	assert.Error(t, err)
}
