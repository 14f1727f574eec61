package infrastructure

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/ports"
)

// VoiceStateProvider answers voice state questions from the gateway state cache.
type VoiceStateProvider struct {
	state *discordgo.State
}

// NewVoiceStateProvider creates a new VoiceStateProvider.
func NewVoiceStateProvider(session *discordgo.Session) *VoiceStateProvider {
	return &VoiceStateProvider{
		state: session.State,
	}
}

// GetUserVoiceChannel returns the voice channel ID that the user is currently in.
// Returns 0 if the user is not in a voice channel.
func (v *VoiceStateProvider) GetUserVoiceChannel(
	guildID, userID snowflake.ID,
) (snowflake.ID, error) {
	vs, err := v.state.VoiceState(guildID.String(), userID.String())
	if err != nil || vs.ChannelID == "" {
		// discordgo reports a missing voice state as an error.
		return 0, nil
	}

	channelID, err := snowflake.Parse(vs.ChannelID)
	if err != nil {
		return 0, err
	}
	return channelID, nil
}

// CountChannelMembers returns how many users, the bot included, are connected to the channel.
func (v *VoiceStateProvider) CountChannelMembers(guildID, channelID snowflake.ID) (int, error) {
	guild, err := v.state.Guild(guildID.String())
	if err != nil {
		return 0, fmt.Errorf("guild %s not in state: %w", guildID, err)
	}

	v.state.RLock()
	defer v.state.RUnlock()

	count := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID.String() {
			count++
		}
	}
	return count, nil
}

// Ensure VoiceStateProvider implements ports.VoiceStateProvider.
var _ ports.VoiceStateProvider = (*VoiceStateProvider)(nil)
