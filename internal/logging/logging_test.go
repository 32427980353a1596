package logging

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"", log.InfoLevel},
		{"debug", log.DebugLevel},
		{"warn", log.WarnLevel},
		{"error", log.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			l, err := New(tt.in, &bytes.Buffer{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.GetLevel())
		})
	}
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New("chatty", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNew_WritesPrefixAndFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("info", &buf)
	require.NoError(t, err)

	l.Debug("hidden")
	l.Info("statement parsed", "new", 6)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "extracto")
	assert.Contains(t, out, "statement parsed")
	assert.Contains(t, out, "new=6")
}
