package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/disgoorg/snowflake/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/melodybot/internal/modules/music_player/domain"
)

const volumeKeyPrefix = "melodybot:volume:"

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// RedisVolumeStore persists volumes as JSON values in Redis.
type RedisVolumeStore struct {
	client *redis.Client
}

type storedVolume struct {
	BasePercent       int `json:"base"`
	MultiplierPercent int `json:"multiplier"`
}

// NewRedisVolumeStore connects to Redis and verifies the connection.
func NewRedisVolumeStore(ctx context.Context, config RedisConfig) (*RedisVolumeStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisVolumeStore{client: client}, nil
}

// Load returns the volume stored for the guild.
func (s *RedisVolumeStore) Load(ctx context.Context, guildID snowflake.ID) (domain.Volume, bool, error) {
	data, err := s.client.Get(ctx, volumeKey(guildID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Volume{}, false, nil
	}
	if err != nil {
		return domain.Volume{}, false, fmt.Errorf("failed to load volume: %w", err)
	}

	v, err := decodeVolume(data)
	if err != nil {
		return domain.Volume{}, false, fmt.Errorf("stored volume for guild %s is invalid: %w", guildID, err)
	}
	return v, true, nil
}

// Save stores the volume for the guild. Values never expire.
func (s *RedisVolumeStore) Save(ctx context.Context, guildID snowflake.ID, volume domain.Volume) error {
	data, err := encodeVolume(volume)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, volumeKey(guildID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save volume: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *RedisVolumeStore) Close() error {
	return s.client.Close()
}

func volumeKey(guildID snowflake.ID) string {
	return volumeKeyPrefix + guildID.String()
}

func encodeVolume(v domain.Volume) ([]byte, error) {
	return json.Marshal(storedVolume{
		BasePercent:       v.BasePercent(),
		MultiplierPercent: v.MultiplierPercent(),
	})
}

func decodeVolume(data []byte) (domain.Volume, error) {
	var sv storedVolume
	if err := json.Unmarshal(data, &sv); err != nil {
		return domain.Volume{}, err
	}
	return domain.NewVolume(sv.BasePercent, sv.MultiplierPercent)
}

// Ensure RedisVolumeStore implements ports.VolumeStore.
var _ ports.VolumeStore = (*RedisVolumeStore)(nil)
