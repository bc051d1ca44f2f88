package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestFromLookupDefaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, zapcore.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.VerifyTimeout)
	assert.Empty(t, cfg.JournalTable)
	assert.Equal(t, "eu-west-1", cfg.Region("eu-west-1"))
	assert.Equal(t, "", cfg.Region(""))
}

func TestFromLookup(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"LOG_LEVEL":      "debug",
		"AWS_REGION":     "us-east-1",
		"JOURNAL_TABLE":  "cfn-journal",
		"VERIFY_TIMEOUT": "3s",
	}))
	require.NoError(t, err)

	assert.Equal(t, zapcore.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "cfn-journal", cfg.JournalTable)
	assert.Equal(t, 3*time.Second, cfg.VerifyTimeout)
	assert.Equal(t, "us-east-1", cfg.Region(""))
	assert.Equal(t, "ap-southeast-2", cfg.Region("ap-southeast-2"))
}

func TestFromLookupRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"timeout syntax", map[string]string{"VERIFY_TIMEOUT": "soon"}},
		{"timeout sign", map[string]string{"VERIFY_TIMEOUT": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromLookup(lookupFrom(tt.env))
			assert.Error(t, err)
		})
	}
}
