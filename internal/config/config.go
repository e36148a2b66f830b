package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	log "github.com/sirupsen/logrus"
)

type ReplyMode string

const (
	ReplyMeme ReplyMode = "meme"
	ReplyText ReplyMode = "text"
)

type StorageBackend string

const (
	BackendFile   StorageBackend = "file"
	BackendSQLite StorageBackend = "sqlite"
)

type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required"`

	// Trigger policy
	TriggerWords  []string `env:"TRIGGER_WORDS" envSeparator:":" envDefault:"макс:max"`
	TriggerChance int      `env:"TRIGGER_CHANCE" envDefault:"80"`
	AmbientChance int      `env:"AMBIENT_CHANCE" envDefault:"8"`

	// Replies
	ReplyMode          ReplyMode `env:"REPLY_MODE" envDefault:"meme"`
	MemMessages        int       `env:"MEM_MESSAGES" envDefault:"5"`
	TypingDelay        bool      `env:"TYPING_DELAY" envDefault:"true"`
	SendRatePerMinute  int       `env:"SEND_RATE_PER_MINUTE" envDefault:"20"`
	MemesDir           string    `env:"MEMES_DIR" envDefault:"memes"`
	FontPath           string    `env:"FONT_PATH"`
	MaxMessagesPerChat int       `env:"MAX_MESSAGES" envDefault:"10000"`

	// Cool-down
	DisableDefault time.Duration `env:"DISABLE_DEFAULT" envDefault:"168h"`
	DisableMin     time.Duration `env:"DISABLE_MIN" envDefault:"2m"`
	Locale         string        `env:"LOCALE" envDefault:"ru"`

	// Storage
	StorageBackend StorageBackend `env:"STORAGE_BACKEND" envDefault:"file"`
	StorageDir     string         `env:"STORAGE_DIR" envDefault:"db"`
	SQLitePath     string         `env:"SQLITE_PATH" envDefault:"data/chatter.db"`
	FlushInterval  time.Duration  `env:"FLUSH_INTERVAL" envDefault:"5s"`

	// Observability
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFilePath string `env:"LOG_FILE_PATH" envDefault:"logs/bot.log"`
	MetricsAddr string `env:"METRICS_ADDR"`
}

func New() *Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

// Parse reads the environment and validates the result.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.TriggerChance < 0 || c.TriggerChance > 100 {
		return fmt.Errorf("TRIGGER_CHANCE must be within 0..100, got %d", c.TriggerChance)
	}
	if c.AmbientChance < 0 || c.AmbientChance > 100 {
		return fmt.Errorf("AMBIENT_CHANCE must be within 0..100, got %d", c.AmbientChance)
	}
	switch c.ReplyMode {
	case ReplyMeme, ReplyText:
	default:
		return fmt.Errorf("unknown REPLY_MODE: %s", c.ReplyMode)
	}
	switch c.StorageBackend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND: %s", c.StorageBackend)
	}
	if c.FlushInterval < time.Second {
		return fmt.Errorf("FLUSH_INTERVAL must be at least 1s, got %s", c.FlushInterval)
	}
	if c.MemMessages <= 0 {
		return fmt.Errorf("MEM_MESSAGES must be positive, got %d", c.MemMessages)
	}
	if c.MaxMessagesPerChat < 0 {
		return fmt.Errorf("MAX_MESSAGES must not be negative, got %d", c.MaxMessagesPerChat)
	}
	return nil
}
