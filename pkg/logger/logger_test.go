package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Level(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, New("payroll-service", "production", tt.level).GetLevel())
		})
	}
}

func TestWithPayroll_TagsEntries(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("payroll-service", &buf).WithComponent("recalculation").WithPayroll("p-1")

	log.Info().Msg("recalculated")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "payroll-service", entry["service"])
	assert.Equal(t, "recalculation", entry["component"])
	assert.Equal(t, "p-1", entry["payroll_id"])
	assert.Equal(t, "recalculated", entry["message"])
}
