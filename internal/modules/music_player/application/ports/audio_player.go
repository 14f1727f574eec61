package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// PlayRequest describes a stream to start playing.
type PlayRequest struct {
	StreamURL string
	Volume    float64 // effective gain, 1.0 is unity

	// OnFinished is invoked exactly once, from the player's own goroutine,
	// when the stream ends for any reason. err is nil unless playback failed.
	OnFinished func(err error)
}

// AudioPlayer defines the interface for audio playback operations.
type AudioPlayer interface {
	// Play starts playback of the given stream.
	Play(ctx context.Context, guildID snowflake.ID, req PlayRequest) error

	// Stop stops the current playback. The pending OnFinished callback still fires.
	Stop(ctx context.Context, guildID snowflake.ID) error

	// Pause pauses the current playback.
	Pause(ctx context.Context, guildID snowflake.ID) error

	// Resume resumes the paused playback.
	Resume(ctx context.Context, guildID snowflake.ID) error

	// SetVolume changes the gain of the current playback.
	SetVolume(ctx context.Context, guildID snowflake.ID, volume float64) error
}
