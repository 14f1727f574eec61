package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/melodybot/internal/modules/music_player/domain"
)

// VolumeStore persists per-guild volume settings.
type VolumeStore interface {
	// Load returns the stored volume for the guild. ok is false when
	// nothing has been stored yet.
	Load(ctx context.Context, guildID snowflake.ID) (volume domain.Volume, ok bool, err error)

	// Save stores the volume for the guild.
	Save(ctx context.Context, guildID snowflake.ID, volume domain.Volume) error

	// Close releases the underlying connection.
	Close() error
}
