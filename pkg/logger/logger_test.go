package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lines decodes every JSON line written to buf
func lines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, l := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if l == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(l), &m), l)
		out = append(out, m)
	}
	return out
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	log.Debug("planning")
	log.Info("selector started")
	log.Warn("candidate skipped")
	log.Error("calendar failed")

	got := lines(t, &buf)
	require.Len(t, got, 2)
	assert.Equal(t, "warn", got[0]["level"])
	assert.Equal(t, "candidate skipped", got[0]["message"])
	assert.Equal(t, "error", got[1]["level"])

	assert.False(t, log.Enabled("info"))
	assert.True(t, log.Enabled("error"))
}

func TestFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug")

	log.WithField("selector", "ma-crossover").
		WithFields(map[string]interface{}{"window": 3, "winner": "ma_5_10"}).
		WithError(errors.New("no price data")).
		Info("window ranked")

	got := lines(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "ma-crossover", got[0]["selector"])
	assert.Equal(t, float64(3), got[0]["window"])
	assert.Equal(t, "ma_5_10", got[0]["winner"])
	assert.Equal(t, "no price data", got[0]["error"])
	assert.Contains(t, got[0], "time")
}

func TestChildDoesNotLeakFields(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithWriter(&buf, "info")

	parent.WithField("child", true).Info("from child")
	parent.Info("from parent")

	got := lines(t, &buf)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "child")
	assert.NotContains(t, got[1], "child")
}

func TestInfof(t *testing.T) {
	var buf bytes.Buffer
	NewWithWriter(&buf, "info").Infof("planned %d windows", 5)

	got := lines(t, &buf)
	require.Len(t, got, 1)
	assert.Equal(t, "planned 5 windows", got[0]["message"])
}

func TestNop(t *testing.T) {
	log := Nop()
	assert.NotPanics(t, func() {
		log.WithField("k", "v").WithError(errors.New("x")).Error("discarded")
	})
}
