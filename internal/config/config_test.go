package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agromonitor/copernicus/internal/config"
)

const validYAML = `
field:
  polygon_id: finca-norte
  bbox: [-81.29, 8.34, -81.09, 8.54]
  lat: 8.44
  lon: -81.19
quota:
  backend: file
  path: /var/lib/copernicus/quota.json
  monthly_limit_pu: 25000
sentinel:
  client_id: abc
  client_secret: xyz
  max_cloud_cover: 0.3
weather:
  api_key: owm-key
storage:
  postgres_dsn: postgres://demo@localhost/agro
http:
  port: 9090
logging:
  level: debug
  pretty: true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "finca-norte", cfg.Field.PolygonID)
	assert.Equal(t, [4]float64{-81.29, 8.34, -81.09, 8.54}, cfg.Field.BBox)
	assert.Equal(t, "file", cfg.Quota.Backend)
	assert.Equal(t, 25000, cfg.Quota.MonthlyLimitPU)
	assert.Equal(t, "abc", cfg.Sentinel.ClientID)
	assert.InDelta(t, 0.3, cfg.Sentinel.MaxCloudCover, 1e-9)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Pretty)
}

func TestLoad_Defaults(t *testing.T) {
	minimal := `
field:
  polygon_id: finca-norte
  bbox: [-81.29, 8.34, -81.09, 8.54]
sentinel:
  client_id: abc
  client_secret: xyz
`
	cfg, err := config.Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Quota.Backend)
	assert.Equal(t, "data/quota_usage.json", cfg.Quota.Path)
	assert.Equal(t, 10, cfg.Sentinel.LookbackDays)
	assert.Equal(t, "es", cfg.Weather.Lang)
	assert.Equal(t, "data/collections.csv", cfg.Storage.CSVPath)
	assert.Equal(t, "data/maps", cfg.Storage.MapsDir)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("SH_CLIENT_SECRET", "from-env")

	content := `
field:
  polygon_id: finca-norte
  bbox: [-81.29, 8.34, -81.09, 8.54]
sentinel:
  client_id: ${SH_CLIENT_ID:-fallback-id}
  client_secret: ${SH_CLIENT_SECRET}
`
	cfg, err := config.Load(writeConfig(t, content))
	require.NoError(t, err)

	assert.Equal(t, "fallback-id", cfg.Sentinel.ClientID)
	assert.Equal(t, "from-env", cfg.Sentinel.ClientSecret)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing polygon": `
field:
  bbox: [-81.29, 8.34, -81.09, 8.54]
sentinel: {client_id: a, client_secret: b}
`,
		"inverted bbox": `
field:
  polygon_id: finca-norte
  bbox: [-81.09, 8.34, -81.29, 8.54]
sentinel: {client_id: a, client_secret: b}
`,
		"unknown backend": `
field:
  polygon_id: finca-norte
  bbox: [-81.29, 8.34, -81.09, 8.54]
quota: {backend: etcd}
sentinel: {client_id: a, client_secret: b}
`,
		"redis without addr": `
field:
  polygon_id: finca-norte
  bbox: [-81.29, 8.34, -81.09, 8.54]
quota: {backend: redis}
sentinel: {client_id: a, client_secret: b}
`,
		"missing credentials": `
field:
  polygon_id: finca-norte
  bbox: [-81.29, 8.34, -81.09, 8.54]
`,
		"cloud cover out of range": `
field:
  polygon_id: finca-norte
  bbox: [-81.29, 8.34, -81.09, 8.54]
sentinel: {client_id: a, client_secret: b, max_cloud_cover: 30}
`,
		"bad log level": `
field:
  polygon_id: finca-norte
  bbox: [-81.29, 8.34, -81.09, 8.54]
sentinel: {client_id: a, client_secret: b}
logging: {level: verbose}
`,
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}
