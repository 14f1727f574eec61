package music_player

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sglre6355/melodybot/internal/modules/music_player/domain"
)

// Voice backends.
const (
	BackendLavalink = "lavalink"
	BackendNative   = "native"
)

// Volume stores.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds the music player module configuration.
type Config struct {
	VoiceBackend string `env:"VOICE_BACKEND" envDefault:"lavalink"`

	LavalinkAddress  string `env:"LAVALINK_ADDRESS"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE"`

	FFmpegPath string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	YtdlpPath          string `env:"YTDLP_PATH"`
	YtdlpDefaultSearch string `env:"YTDLP_DEFAULT_SEARCH" envDefault:"scsearch"`
	YtdlpFormat        string `env:"YTDLP_FORMAT"`

	ResolveRatePerSecond float64 `env:"RESOLVE_RATE_PER_SECOND" envDefault:"2"`
	ResolveBurst         int     `env:"RESOLVE_BURST"           envDefault:"4"`
	SearchLimit          int     `env:"SEARCH_LIMIT"            envDefault:"10"`

	AutoDisconnectDelay time.Duration `env:"AUTO_DISCONNECT_DELAY" envDefault:"60s"`
	SelectionTimeout    time.Duration `env:"SELECTION_TIMEOUT"     envDefault:"60s"`
	DefaultBaseVolume   int           `env:"DEFAULT_BASE_VOLUME"   envDefault:"20"`

	VolumeStore   string `env:"VOLUME_STORE"   envDefault:"memory"`
	SQLitePath    string `env:"SQLITE_PATH"    envDefault:"melodybot.db"`
	RedisAddress  string `env:"REDIS_ADDRESS"  envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`
}

// loadConfig parses and validates the module configuration.
func loadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.VoiceBackend = strings.ToLower(c.VoiceBackend)
	switch c.VoiceBackend {
	case BackendLavalink:
		if c.LavalinkAddress == "" || c.LavalinkPassword == "" {
			return fmt.Errorf("LAVALINK_ADDRESS and LAVALINK_PASSWORD are required for the %s backend",
				BackendLavalink)
		}
	case BackendNative:
	default:
		return fmt.Errorf("unsupported VOICE_BACKEND %q", c.VoiceBackend)
	}

	c.VolumeStore = strings.ToLower(c.VolumeStore)
	switch c.VolumeStore {
	case StoreMemory, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("unsupported VOLUME_STORE %q", c.VolumeStore)
	}

	if _, err := domain.NewVolume(c.DefaultBaseVolume, domain.DefaultMultiplierPercent); err != nil {
		return fmt.Errorf("invalid DEFAULT_BASE_VOLUME %d: %w", c.DefaultBaseVolume, err)
	}
	if c.AutoDisconnectDelay <= 0 {
		return fmt.Errorf("AUTO_DISCONNECT_DELAY must be positive, got %s", c.AutoDisconnectDelay)
	}
	if c.SelectionTimeout <= 0 {
		return fmt.Errorf("SELECTION_TIMEOUT must be positive, got %s", c.SelectionTimeout)
	}
	if c.ResolveRatePerSecond < 0 {
		return fmt.Errorf("RESOLVE_RATE_PER_SECOND must not be negative, got %v", c.ResolveRatePerSecond)
	}
	return nil
}

// defaultSource is the search source used for plain terms.
func (c *Config) defaultSource() domain.SearchSource {
	return domain.ParseSearchSource(c.YtdlpDefaultSearch)
}
