package discord

import "github.com/bwmarrin/discordgo"

// SelectCustomIDPrefix prefixes the custom ID of search result menus.
const SelectCustomIDPrefix = "music_select"

// Commands returns all slash commands for the music player module.
func Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "join",
			Description: "Join a voice channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionChannel,
					Name:        "channel",
					Description: "Voice channel to join (defaults to your current channel)",
					Required:    false,
					ChannelTypes: []discordgo.ChannelType{
						discordgo.ChannelTypeGuildVoice,
						discordgo.ChannelTypeGuildStageVoice,
					},
				},
			},
		},
		{
			Name:        "leave",
			Description: "Leave the voice channel and clear the queue",
		},
		{
			Name:        "play",
			Description: "Play a track from a URL or search term, or a queued track by number",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "query",
					Description:  "URL, search term, or queue position",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		{
			Name:        "search",
			Description: "Search for tracks and pick one from the results",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "query",
					Description: "Search term",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "source",
					Description: "Where to search",
					Required:    false,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "SoundCloud", Value: "scsearch"},
						{Name: "YouTube", Value: "ytsearch"},
						{Name: "YouTube Music", Value: "ytmsearch"},
					},
				},
			},
		},
		{
			Name:        "stop",
			Description: "Stop playback and clear the queue",
		},
		{
			Name:        "pause",
			Description: "Pause playback",
		},
		{
			Name:        "resume",
			Description: "Resume playback",
		},
		{
			Name:        "skip",
			Description: "Skip the current track",
		},
		{
			Name:        "queue",
			Description: "Manage the queue",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "Show the current queue",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "page",
							Description: "Page number",
							Required:    false,
							MinValue:    floatPtr(1),
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a track from the queue",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionInteger,
							Name:         "position",
							Description:  "Position of the track to remove (as shown in queue list)",
							Required:     true,
							MinValue:     floatPtr(1),
							Autocomplete: true,
						},
					},
				},
			},
		},
		{
			Name:        "volume",
			Description: "Show or change the playback volume",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Set the volume for this session",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "percent",
							Description: "0-200, relative to the server base volume",
							Required:    true,
							MinValue:    floatPtr(0),
							MaxValue:    200,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "base",
					Description: "Set the server base volume (requires Manage Server)",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "percent",
							Description: "0-100",
							Required:    true,
							MinValue:    floatPtr(0),
							MaxValue:    100,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "status",
					Description: "Show the current volume",
				},
			},
		},
	}
}

func floatPtr(f float64) *float64 {
	return &f
}
