package bot

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Log output formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// Config holds the bot configuration loaded from environment variables.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,notEmpty"`

	// GuildID registers commands in a single guild instead of globally.
	// Guild commands update instantly, which is handy during development.
	GuildID string `env:"DISCORD_GUILD_ID"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// LoadConfig loads configuration from environment variables.
// Returns an error if required fields are missing.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != LogFormatJSON && cfg.LogFormat != LogFormatConsole {
		return nil, fmt.Errorf("unsupported LOG_FORMAT %q", cfg.LogFormat)
	}
	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	return cfg, nil
}
