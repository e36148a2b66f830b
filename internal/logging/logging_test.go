package logging

import (
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected log.Level
	}{
		{"debug", log.DebugLevel},
		{"VERBOSE", log.DebugLevel},
		{"info", log.InfoLevel},
		{"Warning", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"silent", log.FatalLevel},
		{"", log.InfoLevel},
		{"foobar", log.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			log.SetLevel(log.PanicLevel)
			SetLogLevel(tt.input)
			if got := log.GetLevel(); got != tt.expected {
				t.Errorf("SetLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestConfigureOutput_File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "bot.log")
	closer, err := ConfigureOutput(p)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = closer.Close()
		_, _ = ConfigureOutput("")
	})

	log.Info("hello")
	require.FileExists(t, p)
}
