package domain

import (
	"github.com/disgoorg/snowflake/v2"
)

// PlayerStatus is the voice/playback state of a guild player.
type PlayerStatus int

const (
	StatusIdle      PlayerStatus = iota // Not connected to voice
	StatusConnected                     // Connected, nothing loaded
	StatusPlaying
	StatusPaused
)

// String returns a human-readable representation of the status.
func (s PlayerStatus) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "idle"
	}
}

// IsConnected reports whether the status implies a voice connection.
func (s PlayerStatus) IsConnected() bool {
	return s != StatusIdle
}

// HasTrack reports whether a track is loaded (playing or paused).
func (s PlayerStatus) HasTrack() bool {
	return s == StatusPlaying || s == StatusPaused
}

// PlayerState represents the playback state of a guild.
// It enforces the state machine transitions; it performs no I/O.
type PlayerState struct {
	guildID               snowflake.ID
	status                PlayerStatus
	voiceChannelID        snowflake.ID // Voice channel the bot is connected to
	notificationChannelID snowflake.ID // Text channel for notifications
	current               *Track
	volume                Volume
	Queue                 PlaybackQueue
}

// NewPlayerState creates an idle PlayerState for the given guild.
func NewPlayerState(guildID snowflake.ID, volume Volume) *PlayerState {
	return &PlayerState{
		guildID: guildID,
		status:  StatusIdle,
		volume:  volume,
		Queue:   NewPlaybackQueue(),
	}
}

// GetGuildID returns the guild ID.
func (p *PlayerState) GetGuildID() snowflake.ID {
	return p.guildID
}

// Status returns the current status.
func (p *PlayerState) Status() PlayerStatus {
	return p.status
}

// GetVoiceChannelID returns the connected voice channel, or 0 when idle.
func (p *PlayerState) GetVoiceChannelID() snowflake.ID {
	return p.voiceChannelID
}

// GetNotificationChannelID returns the text channel used for notifications.
func (p *PlayerState) GetNotificationChannelID() snowflake.ID {
	return p.notificationChannelID
}

// SetNotificationChannelID updates the text channel used for notifications.
func (p *PlayerState) SetNotificationChannelID(channelID snowflake.ID) {
	if channelID != 0 {
		p.notificationChannelID = channelID
	}
}

// Current returns a copy of the track currently loaded, or nil.
func (p *PlayerState) Current() *Track {
	if p.current == nil {
		return nil
	}
	track := *p.current
	return &track
}

// Volume returns the guild volume.
func (p *PlayerState) Volume() Volume {
	return p.volume
}

// SetVolume replaces the guild volume.
func (p *PlayerState) SetVolume(v Volume) {
	p.volume = v
}

// Connected records a voice connection (or a move) to channelID.
// Idle becomes Connected; other states are kept.
func (p *PlayerState) Connected(channelID snowflake.ID) {
	p.voiceChannelID = channelID
	if p.status == StatusIdle {
		p.status = StatusConnected
	}
}

// Disconnected clears the queue and the current track and returns to Idle.
func (p *PlayerState) Disconnected() {
	p.Queue.Clear()
	p.current = nil
	p.voiceChannelID = 0
	p.status = StatusIdle
}

// StartPlaying marks track as the current track.
func (p *PlayerState) StartPlaying(track Track) error {
	if !p.status.IsConnected() {
		return ErrNotConnected
	}
	p.current = &track
	p.status = StatusPlaying
	return nil
}

// FinishCurrent drops the current track, leaving the player Connected.
func (p *PlayerState) FinishCurrent() {
	p.current = nil
	if p.status.IsConnected() {
		p.status = StatusConnected
	}
}

// Pause transitions Playing to Paused.
func (p *PlayerState) Pause() error {
	switch p.status {
	case StatusIdle:
		return ErrNotConnected
	case StatusConnected:
		return ErrNothingPlaying
	case StatusPaused:
		return ErrAlreadyPaused
	}
	p.status = StatusPaused
	return nil
}

// Resume transitions Paused to Playing.
func (p *PlayerState) Resume() error {
	switch p.status {
	case StatusIdle:
		return ErrNotConnected
	case StatusConnected:
		return ErrNothingPlaying
	case StatusPlaying:
		return ErrNotPaused
	}
	p.status = StatusPlaying
	return nil
}

// CanSkip reports whether the current track may be skipped.
// Skipping is only valid while Playing.
func (p *PlayerState) CanSkip() error {
	switch p.status {
	case StatusIdle:
		return ErrNotConnected
	case StatusPlaying:
		return nil
	case StatusPaused:
		return ErrInvalidState
	default:
		return ErrNothingPlaying
	}
}

// Stop clears the queue and the current track, leaving the player Connected.
// It returns the number of pending tracks that were removed.
func (p *PlayerState) Stop() (int, error) {
	if !p.status.IsConnected() {
		return 0, ErrNotConnected
	}
	n := p.Queue.Clear()
	p.current = nil
	p.status = StatusConnected
	return n, nil
}
