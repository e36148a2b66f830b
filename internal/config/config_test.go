package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, []string{"макс", "max"}, cfg.TriggerWords)
	assert.Equal(t, 80, cfg.TriggerChance)
	assert.Equal(t, 8, cfg.AmbientChance)
	assert.Equal(t, ReplyMeme, cfg.ReplyMode)
	assert.Equal(t, 7*24*time.Hour, cfg.DisableDefault)
	assert.Equal(t, 2*time.Minute, cfg.DisableMin)
	assert.Equal(t, BackendFile, cfg.StorageBackend)
	assert.Equal(t, 5*time.Second, cfg.FlushInterval)
	assert.Equal(t, 5, cfg.MemMessages)
}

func TestParse_RequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "placeholder")
	require.NoError(t, os.Unsetenv("TELEGRAM_BOT_TOKEN"))
	_, err := Parse()
	require.Error(t, err)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TRIGGER_WORDS", "bot:бот")
	t.Setenv("TRIGGER_CHANCE", "50")
	t.Setenv("AMBIENT_CHANCE", "20")
	t.Setenv("FLUSH_INTERVAL", "60s")
	t.Setenv("STORAGE_BACKEND", "sqlite")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, []string{"bot", "бот"}, cfg.TriggerWords)
	assert.Equal(t, 50, cfg.TriggerChance)
	assert.Equal(t, 20, cfg.AmbientChance)
	assert.Equal(t, time.Minute, cfg.FlushInterval)
	assert.Equal(t, BackendSQLite, cfg.StorageBackend)
}

func TestValidate_Rejects(t *testing.T) {
	base := func() *Config {
		return &Config{
			TriggerChance:  80,
			AmbientChance:  8,
			ReplyMode:      ReplyText,
			StorageBackend: BackendFile,
			FlushInterval:  time.Second,
			MemMessages:    5,
		}
	}
	require.NoError(t, base().Validate())

	cases := map[string]func(c *Config){
		"chance above 100":   func(c *Config) { c.TriggerChance = 101 },
		"negative ambient":   func(c *Config) { c.AmbientChance = -1 },
		"unknown reply mode": func(c *Config) { c.ReplyMode = "voice" },
		"unknown backend":    func(c *Config) { c.StorageBackend = "s3" },
		"tight interval":     func(c *Config) { c.FlushInterval = 10 * time.Millisecond },
		"zero mem window":    func(c *Config) { c.MemMessages = 0 },
		"negative cap":       func(c *Config) { c.MaxMessagesPerChat = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
