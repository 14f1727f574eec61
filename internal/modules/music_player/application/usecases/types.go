package usecases

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/melodybot/internal/modules/music_player/domain"
)

// Re-export domain types for presentation layer use.
// This allows presentation to depend only on usecases without importing domain directly.

// Track is an alias for domain.Track.
type Track = domain.Track

// Volume is an alias for domain.Volume.
type Volume = domain.Volume

// PlayerStatus is an alias for domain.PlayerStatus.
type PlayerStatus = domain.PlayerStatus

// SearchCandidate is an alias for ports.SearchCandidate.
type SearchCandidate = ports.SearchCandidate

// SearchSource is an alias for domain.SearchSource.
type SearchSource = domain.SearchSource

// Search sources.
const (
	SourceSoundCloud   = domain.SourceSoundCloud
	SourceYouTube      = domain.SourceYouTube
	SourceYouTubeMusic = domain.SourceYouTubeMusic
)

// Helpers shared with the presentation layer.
var (
	ParseSearchSource  = domain.ParseSearchSource
	ParseQueuePosition = domain.ParseQueuePosition
	FormatDuration     = domain.FormatDuration
)

// Player statuses.
const (
	StatusIdle      = domain.StatusIdle
	StatusConnected = domain.StatusConnected
	StatusPlaying   = domain.StatusPlaying
	StatusPaused    = domain.StatusPaused
)

// JoinInput contains the input for the Join use case.
type JoinInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID
	VoiceChannelID        snowflake.ID // 0 means the user's current channel

	// KeepChannel leaves an existing connection where it is and only
	// updates the notification channel.
	KeepChannel bool
}

// JoinOutput contains the result of the Join use case.
type JoinOutput struct {
	VoiceChannelID snowflake.ID
	Moved          bool
}

// EnqueueInput contains the input for the Enqueue use case.
type EnqueueInput struct {
	GuildID               snowflake.ID
	Query                 string
	Source                domain.SearchSource
	RequesterID           snowflake.ID
	RequesterName         string
	NotificationChannelID snowflake.ID
}

// EnqueueOutput contains the result of the Enqueue use case.
type EnqueueOutput struct {
	Track    Track
	Position int  // 1-based position in the pending queue
	Starting bool // the track is picked up immediately
}

// QueueSnapshot is a read-only view of a guild's player.
type QueueSnapshot struct {
	Status         PlayerStatus
	VoiceChannelID snowflake.ID
	Current        *Track
	Loading        *Track
	Tracks         []Track
	Volume         Volume
}

// VolumeOutput reports the volume after a change.
type VolumeOutput struct {
	Volume  Volume
	Applied bool // the new gain was pushed to a loaded track
}

// SearchInput contains the input for the Search use case.
type SearchInput struct {
	Query  string
	Source domain.SearchSource
	Limit  int
}

// SearchOutput contains the result of the Search use case.
type SearchOutput struct {
	Source     domain.SearchSource
	Candidates []SearchCandidate
}

// OpenSelectionInput describes a new selection prompt.
type OpenSelectionInput struct {
	GuildID     snowflake.ID
	ChannelID   snowflake.ID
	RequesterID snowflake.ID
	Candidates  []SearchCandidate

	// OnExpire runs on the timer goroutine when nobody picked in time.
	OnExpire func()
}

// PickInput contains the input for picking from a selection prompt.
type PickInput struct {
	PromptID string
	UserID   snowflake.ID
	Index    int // 0-based
}

// PickOutput contains the picked candidate and where the prompt lived.
type PickOutput struct {
	Candidate SearchCandidate
	GuildID   snowflake.ID
	ChannelID snowflake.ID
}

// ControllerConfig tunes the queue controller.
type ControllerConfig struct {
	AutoDisconnectDelay time.Duration
	DefaultVolume       domain.Volume
	ResolveTimeout      time.Duration
	VoiceTimeout        time.Duration
}

func (c ControllerConfig) withDefaults() ControllerConfig {
	if c.AutoDisconnectDelay <= 0 {
		c.AutoDisconnectDelay = 60 * time.Second
	}
	if c.DefaultVolume == (domain.Volume{}) {
		c.DefaultVolume = domain.DefaultVolume()
	}
	if c.ResolveTimeout <= 0 {
		c.ResolveTimeout = 30 * time.Second
	}
	if c.VoiceTimeout <= 0 {
		c.VoiceTimeout = 15 * time.Second
	}
	return c
}
