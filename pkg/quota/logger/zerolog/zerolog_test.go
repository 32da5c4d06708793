package zerolog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/agromonitor/copernicus/pkg/quota"
)

func TestLogger_WritesAllLevels(t *testing.T) {
	output := bytes.Buffer{}
	logger := NewLogger(zerolog.New(&output))

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	out := output.String()
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if !strings.Contains(out, level+" message") {
			t.Errorf("expected %s log to be written, got %q", level, out)
		}
	}
}

func TestLogger_IncludesFields(t *testing.T) {
	output := bytes.Buffer{}
	logger := NewLogger(zerolog.New(&output))

	logger.Info("quota committed",
		quota.Field{Key: "operation", Value: "ndvi"},
		quota.Field{Key: "cost_pu", Value: 30},
	)

	out := output.String()
	if !strings.Contains(out, `"operation":"ndvi"`) {
		t.Errorf("expected operation field, got %q", out)
	}
	if !strings.Contains(out, `"cost_pu":30`) {
		t.Errorf("expected cost_pu field, got %q", out)
	}
}

func TestLogger_RespectsLevel(t *testing.T) {
	output := bytes.Buffer{}
	logger := NewLogger(zerolog.New(&output).Level(zerolog.WarnLevel))

	logger.Debug("hidden")
	logger.Info("hidden")
	if output.Len() != 0 {
		t.Errorf("expected no output below warn level, got %q", output.String())
	}

	logger.Warn("visible")
	if output.Len() == 0 {
		t.Error("expected warn log to be written")
	}
}
