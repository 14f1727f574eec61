package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

// VoiceStateListener reacts to voice channel occupancy changes.
type VoiceStateListener interface {
	HandleVoiceStateChange(guildID snowflake.ID)
	HandleBotVoiceStateChange(guildID, channelID snowflake.ID)
}

// EventHandlers handles Discord gateway events for the music player.
type EventHandlers struct {
	botID    snowflake.ID
	listener VoiceStateListener
}

// NewEventHandlers creates a new EventHandlers.
func NewEventHandlers(botID snowflake.ID, listener VoiceStateListener) *EventHandlers {
	return &EventHandlers{
		botID:    botID,
		listener: listener,
	}
}

// HandleVoiceStateUpdate forwards voice state updates. Updates for the bot
// itself report moves and disconnects done outside the bot; every update
// may change how many listeners are left.
func (h *EventHandlers) HandleVoiceStateUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	if event.VoiceState == nil {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	if event.UserID == h.botID.String() {
		// An empty channel ID means the bot was disconnected.
		var channelID snowflake.ID
		if event.ChannelID != "" {
			channelID, err = snowflake.Parse(event.ChannelID)
			if err != nil {
				slog.Error("failed to parse channel ID in voice state update", "error", err)
				return
			}
		}
		h.listener.HandleBotVoiceStateChange(guildID, channelID)
	}

	h.listener.HandleVoiceStateChange(guildID)
}
