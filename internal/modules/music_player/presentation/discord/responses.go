package discord

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/melodybot/internal/bot"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/usecases"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorError   = 0xE74C3C
	colorInfo    = 0x3498DB
)

const maxLabelLength = 100

var errGuildOnly = errors.New("this command can only be used in a server")

// userErrors maps errors that are safe to show to the message users see.
// Order matters: specific errors come before the ones they wrap.
var userErrors = []struct {
	err     error
	message string
}{
	{usecases.ErrNothingPlaying, "Nothing is playing right now."},
	{usecases.ErrAlreadyPaused, "Playback is already paused."},
	{usecases.ErrNotPaused, "Playback is not paused."},
	{usecases.ErrInvalidState, "That is not possible right now."},
	{usecases.ErrUserNotInVoice, "You must be in a voice channel."},
	{usecases.ErrNotConnected, "I am not connected to a voice channel."},
	{usecases.ErrEmptyQueue, "The queue is empty."},
	{usecases.ErrInvalidIndex, "There is no track at that position."},
	{usecases.ErrVolumeOutOfRange, "That volume is out of range."},
	{usecases.ErrResolutionFailed, "Could not load that track."},
	{usecases.ErrNoResults, "No results found."},
	{usecases.ErrUnsupportedSource, "Searching that source is not supported."},
	{usecases.ErrSelectionExpired, "This selection has expired."},
	{usecases.ErrNotRequester, "Only the user who searched can pick a track."},
	{usecases.ErrMissingPermission, "You need the Manage Server permission to do that."},
	{usecases.ErrControllerClosed, "The music player is shutting down."},
}

// errorMessage returns the user-facing text for err. Unknown errors are
// logged and reported generically.
func errorMessage(err error) string {
	for _, known := range userErrors {
		if errors.Is(err, known.err) {
			return known.message
		}
	}
	slog.Error("unexpected music player error", "error", err)
	return "Something went wrong while processing your request."
}

// respondInvalid reports a malformed interaction.
func respondInvalid(r bot.Responder, err error) error {
	return respondError(r, capitalize(err.Error())+".")
}

func successEmbed(description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Description: description,
		Color:       colorSuccess,
	}
}

func errorEmbed(message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Error",
		Description: message,
		Color:       colorError,
	}
}

func respondEmbed(r bot.Responder, embed *discordgo.MessageEmbed) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

func respondError(r bot.Responder, message string) error {
	return respondEmbed(r, errorEmbed(message))
}

func respondEphemeral(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{errorEmbed(message)},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
}

func respondDeferred(r bot.Responder) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func editEmbed(r bot.Responder, embed *discordgo.MessageEmbed) error {
	return r.Edit(&discordgo.WebhookEdit{
		Embeds: &[]*discordgo.MessageEmbed{embed},
	})
}

func editError(r bot.Responder, message string) error {
	return r.Edit(&discordgo.WebhookEdit{
		Embeds:     &[]*discordgo.MessageEmbed{errorEmbed(message)},
		Components: &[]discordgo.MessageComponent{},
	})
}

// interactionIDs parses the guild, user and channel of a guild interaction.
func interactionIDs(i *discordgo.InteractionCreate) (guildID, userID, channelID snowflake.ID, err error) {
	if i.Member == nil || i.Member.User == nil {
		return 0, 0, 0, errGuildOnly
	}
	if guildID, err = snowflake.Parse(i.GuildID); err != nil {
		return 0, 0, 0, errors.New("invalid guild")
	}
	if userID, err = snowflake.Parse(i.Member.User.ID); err != nil {
		return 0, 0, 0, errors.New("invalid user")
	}
	if channelID, err = snowflake.Parse(i.ChannelID); err != nil {
		return 0, 0, 0, errors.New("invalid channel")
	}
	return guildID, userID, channelID, nil
}

// memberName returns the name the member is shown with in the guild.
func memberName(m *discordgo.Member) string {
	if m == nil || m.User == nil {
		return ""
	}
	if m.Nick != "" {
		return m.Nick
	}
	if m.User.GlobalName != "" {
		return m.User.GlobalName
	}
	return m.User.Username
}

var linkTextEscaper = strings.NewReplacer("[", "\\[", "]", "\\]", "*", "\\*", "_", "\\_")

// trackLink renders a track as a markdown link when it has a URL.
func trackLink(t usecases.Track) string {
	title := linkTextEscaper.Replace(t.Title)
	if strings.HasPrefix(t.SourceRef, "http") {
		return fmt.Sprintf("[%s](%s)", title, t.SourceRef)
	}
	return "**" + title + "**"
}

func enqueuedEmbed(out *usecases.EnqueueOutput) *discordgo.MessageEmbed {
	t := out.Track

	description := fmt.Sprintf("Added %s to the queue at position %d.", trackLink(t), out.Position)
	if out.Starting {
		description = fmt.Sprintf("Starting %s.", trackLink(t))
	}

	embed := &discordgo.MessageEmbed{
		Description: description,
		Color:       t.Source().Color(),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Duration", Value: t.FormattedDuration(), Inline: true},
			{Name: "Source", Value: t.Source().DisplayName(), Inline: true},
		},
	}
	if t.RequesterName != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Requested by " + t.RequesterName}
	}
	if t.ArtworkURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: t.ArtworkURL}
	}
	return embed
}

// truncate shortens s to at most maxLen runes.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func optionString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

func optionInt(options []*discordgo.ApplicationCommandInteractionDataOption, name string) (int, bool) {
	for _, opt := range options {
		if opt.Name == name {
			return int(opt.IntValue()), true
		}
	}
	return 0, false
}
