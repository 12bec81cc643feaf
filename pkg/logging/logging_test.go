package logging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestFromContextFallsBackToDefault(t *testing.T) {
	assert.Equal(t, Default(), FromContext(context.Background()))
	//nolint:staticcheck // exercising the nil guard
	assert.Equal(t, Default(), FromContext(nil))
}

func TestContextFields(t *testing.T) {
	tl := NewTestLogger(t)
	ctx := WithLogger(context.Background(), tl.Logger)

	ctx = WithSpecimen(ctx, "Agathis montana|MNHN|P001")
	ctx = WithEnricher(ctx, "taxonomy")
	ctx = WithFields(ctx, map[string]any{
		"attempt": 2,
		"elapsed": 150 * time.Millisecond,
		"error":   errors.New("boom"),
	})

	FromContext(ctx).Warn().Msg("enricher failed")

	tl.AssertContains(t, `"specimen":"Agathis montana|MNHN|P001"`)
	tl.AssertContains(t, `"enricher":"taxonomy"`)
	tl.AssertContains(t, `"attempt":2`)
	tl.AssertContains(t, `"error":"boom"`)
	assert.Equal(t, 1, tl.Count())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		"debug":    zerolog.DebugLevel,
		"":         zerolog.InfoLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"off":      zerolog.Disabled,
		"nonsense": zerolog.InfoLevel,
	}
	for input, want := range tests {
		assert.Equal(t, want, parseLevel(input), "level %q", input)
	}
}

func TestParseFields(t *testing.T) {
	fields := parseFields("run=nightly, host = worker-1,broken")
	assert.Equal(t, map[string]any{"run": "nightly", "host": "worker-1"}, fields)
	assert.Empty(t, parseFields(""))
}

func TestParseTimeFormat(t *testing.T) {
	assert.Equal(t, time.RFC3339, parseTimeFormat("rfc3339"))
	assert.Equal(t, "", parseTimeFormat("unix"))
	assert.Equal(t, "2006-01-02", parseTimeFormat("2006-01-02"))
	assert.Equal(t, time.Kitchen, parseTimeFormat("whatever"))
}

func TestNewLoggerFromConfigDiscard(t *testing.T) {
	oldLevel := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(oldLevel) })

	logger := NewLoggerFromConfig(&Config{
		Level:  "warn",
		Output: "discard",
		Fields: map[string]any{"component": "dispatch"},
	})
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}

func TestCaptureLoggingForTest(t *testing.T) {
	tl := CaptureLoggingForTest(t)
	Warn().Str("institution_code", "MNHN").Msg("region unresolved")
	tl.AssertContains(t, "region unresolved")
	tl.Clear()
	assert.Equal(t, 0, tl.Count())
}
