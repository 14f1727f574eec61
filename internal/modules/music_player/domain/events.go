package domain

import (
	"github.com/disgoorg/snowflake/v2"
)

// Event is a notification published by the queue controller.
type Event interface {
	EventGuildID() snowflake.ID
}

// TrackStartedEvent is published when a track starts playing.
type TrackStartedEvent struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID
	Track                 Track
	Volume                Volume
}

// TrackFailedEvent is published when a track is dropped because it could
// not be resolved or its playback failed.
type TrackFailedEvent struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID
	Track                 Track
	Err                   error
}

// AutoDisconnectedEvent is published when the bot leaves an empty voice channel.
type AutoDisconnectedEvent struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID
	VoiceChannelID        snowflake.ID
}

// QueueFinishedEvent is published when the last queued track has finished.
type QueueFinishedEvent struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID
}

func (e TrackStartedEvent) EventGuildID() snowflake.ID     { return e.GuildID }
func (e TrackFailedEvent) EventGuildID() snowflake.ID      { return e.GuildID }
func (e AutoDisconnectedEvent) EventGuildID() snowflake.ID { return e.GuildID }
func (e QueueFinishedEvent) EventGuildID() snowflake.ID    { return e.GuildID }
