package ports

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// NowPlayingInfo contains information for the "Now Playing" notification.
type NowPlayingInfo struct {
	Title              string
	Artist             string
	Duration           string
	URI                string
	ArtworkURL         string
	SourceName         string
	IsLive             bool
	VolumePercent      int
	RequesterName      string
	RequesterAvatarURL string
	EnqueuedAt         time.Time
}

// NotificationSender defines the interface for sending notifications to Discord channels.
type NotificationSender interface {
	// SendNowPlaying sends a "Now Playing" embed to the channel and returns the message ID.
	SendNowPlaying(channelID snowflake.ID, info *NowPlayingInfo) (snowflake.ID, error)

	// DeleteMessage deletes a message from the channel.
	DeleteMessage(channelID, messageID snowflake.ID) error

	// SendInfo sends an informational embed to the channel.
	SendInfo(channelID snowflake.ID, title, message string) error

	// SendError sends an error message embed to the channel.
	SendError(channelID snowflake.ID, message string) error
}
