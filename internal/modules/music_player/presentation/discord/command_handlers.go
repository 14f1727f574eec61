package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/melodybot/internal/bot"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/usecases"
)

const (
	// requestTimeout bounds commands that resolve media or touch voice.
	requestTimeout = 45 * time.Second

	queuePageSize = 10
)

// MusicPlayer is the playback surface the handlers drive.
type MusicPlayer interface {
	Join(ctx context.Context, input usecases.JoinInput) (*usecases.JoinOutput, error)
	Leave(ctx context.Context, guildID snowflake.ID) error
	Enqueue(ctx context.Context, input usecases.EnqueueInput) (*usecases.EnqueueOutput, error)
	PlayNext(ctx context.Context, guildID snowflake.ID, position int) (*usecases.Track, error)
	Pause(ctx context.Context, guildID snowflake.ID) error
	Resume(ctx context.Context, guildID snowflake.ID) error
	Stop(ctx context.Context, guildID snowflake.ID) (int, error)
	Skip(ctx context.Context, guildID snowflake.ID) (*usecases.Track, error)
	Remove(ctx context.Context, guildID snowflake.ID, position int) (*usecases.Track, error)
	Snapshot(ctx context.Context, guildID snowflake.ID) (*usecases.QueueSnapshot, error)
	SetMultiplier(ctx context.Context, guildID snowflake.ID, percent int) (*usecases.VolumeOutput, error)
	SetBase(ctx context.Context, guildID snowflake.ID, percent int) (*usecases.VolumeOutput, error)
	VolumeStatus(ctx context.Context, guildID snowflake.ID) (usecases.Volume, error)
}

// TrackSearch lists search candidates.
type TrackSearch interface {
	Search(ctx context.Context, input usecases.SearchInput) (*usecases.SearchOutput, error)
}

// CommandHandlers holds all the command handlers.
type CommandHandlers struct {
	player        MusicPlayer
	search        TrackSearch
	selections    *usecases.SelectionService
	defaultSource usecases.SearchSource
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(
	player MusicPlayer,
	search TrackSearch,
	selections *usecases.SelectionService,
	defaultSource usecases.SearchSource,
) *CommandHandlers {
	return &CommandHandlers{
		player:        player,
		search:        search,
		selections:    selections,
		defaultSource: defaultSource,
	}
}

// HandleJoin handles the /join command.
func (h *CommandHandlers) HandleJoin(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, userID, channelID, err := interactionIDs(i)
	if err != nil {
		return respondInvalid(r, err)
	}

	var voiceChannelID snowflake.ID
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "channel" {
			voiceChannelID, err = snowflake.Parse(fmt.Sprint(opt.Value))
			if err != nil {
				return respondError(r, "Invalid voice channel.")
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	output, err := h.player.Join(ctx, usecases.JoinInput{
		GuildID:               guildID,
		UserID:                userID,
		NotificationChannelID: channelID,
		VoiceChannelID:        voiceChannelID,
	})
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	verb := "Connected to"
	if output.Moved {
		verb = "Moved to"
	}
	return respondEmbed(r, successEmbed(fmt.Sprintf("%s <#%d>.", verb, output.VoiceChannelID)))
}

// HandleLeave handles the /leave command.
func (h *CommandHandlers) HandleLeave(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, _, _, err := interactionIDs(i)
	if err != nil {
		return respondInvalid(r, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := h.player.Leave(ctx, guildID); err != nil {
		return respondError(r, errorMessage(err))
	}

	return respondEmbed(r, successEmbed("Disconnected."))
}

// HandlePlay handles the /play command. A bare number plays that queued
// track next; anything else is resolved and appended, joining the
// requester's channel first if needed.
func (h *CommandHandlers) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, userID, channelID, err := interactionIDs(i)
	if err != nil {
		return respondInvalid(r, err)
	}

	query := strings.TrimSpace(optionString(i.ApplicationCommandData().Options, "query"))
	if query == "" {
		return respondError(r, "Please provide a URL or search term.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if position, ok := usecases.ParseQueuePosition(query); ok {
		track, err := h.player.PlayNext(ctx, guildID, position)
		if err != nil {
			return respondError(r, errorMessage(err))
		}
		return respondEmbed(r, successEmbed(fmt.Sprintf("Playing %s next.", trackLink(*track))))
	}

	// Resolution can take longer than the interaction deadline.
	if err := respondDeferred(r); err != nil {
		return err
	}

	out, err := h.joinAndEnqueue(ctx, i.Member, guildID, userID, channelID, query)
	if err != nil {
		return editError(r, errorMessage(err))
	}
	return editEmbed(r, enqueuedEmbed(out))
}

// joinAndEnqueue connects to the requester's channel when the bot is not
// connected yet and appends query to the queue.
func (h *CommandHandlers) joinAndEnqueue(
	ctx context.Context,
	member *discordgo.Member,
	guildID, userID, channelID snowflake.ID,
	query string,
) (*usecases.EnqueueOutput, error) {
	_, err := h.player.Join(ctx, usecases.JoinInput{
		GuildID:               guildID,
		UserID:                userID,
		NotificationChannelID: channelID,
		KeepChannel:           true,
	})
	if err != nil {
		return nil, err
	}

	return h.player.Enqueue(ctx, usecases.EnqueueInput{
		GuildID:               guildID,
		Query:                 query,
		Source:                h.defaultSource,
		RequesterID:           userID,
		RequesterName:         memberName(member),
		NotificationChannelID: channelID,
	})
}

// HandleStop handles the /stop command.
func (h *CommandHandlers) HandleStop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, _, _, err := interactionIDs(i)
	if err != nil {
		return respondInvalid(r, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	cleared, err := h.player.Stop(ctx, guildID)
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	description := "Stopped playback."
	if cleared > 0 {
		description = fmt.Sprintf("Stopped playback and cleared %d queued %s.", cleared, plural(cleared, "track"))
	}
	return respondEmbed(r, successEmbed(description))
}

// HandlePause handles the /pause command.
func (h *CommandHandlers) HandlePause(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, _, _, err := interactionIDs(i)
	if err != nil {
		return respondInvalid(r, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := h.player.Pause(ctx, guildID); err != nil {
		return respondError(r, errorMessage(err))
	}
	return respondEmbed(r, successEmbed("Paused playback."))
}

// HandleResume handles the /resume command.
func (h *CommandHandlers) HandleResume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, _, _, err := interactionIDs(i)
	if err != nil {
		return respondInvalid(r, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := h.player.Resume(ctx, guildID); err != nil {
		return respondError(r, errorMessage(err))
	}
	return respondEmbed(r, successEmbed("Resumed playback."))
}

// HandleSkip handles the /skip command.
func (h *CommandHandlers) HandleSkip(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, _, _, err := interactionIDs(i)
	if err != nil {
		return respondInvalid(r, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	skipped, err := h.player.Skip(ctx, guildID)
	if err != nil {
		return respondError(r, errorMessage(err))
	}
	return respondEmbed(r, successEmbed(fmt.Sprintf("Skipped %s.", trackLink(*skipped))))
}

// HandleQueue handles the /queue command and its subcommands.
func (h *CommandHandlers) HandleQueue(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, "Please specify a subcommand.")
	}

	sub := options[0]
	switch sub.Name {
	case "list":
		return h.handleQueueList(s, i, r, sub.Options)
	case "remove":
		return h.handleQueueRemove(s, i, r, sub.Options)
	default:
		return respondError(r, "Unknown subcommand.")
	}
}

func (h *CommandHandlers) handleQueueList(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	guildID, _, _, err := interactionIDs(i)
	if err != nil {
		return respondInvalid(r, err)
	}

	snap, err := h.player.Snapshot(context.Background(), guildID)
	if err != nil {
		return respondError(r, errorMessage(err))
	}

	page, _ := optionInt(options, "page")
	return respondEmbed(r, queueEmbed(snap, page))
}

// queueEmbed renders one page of the pending queue under the current track.
func queueEmbed(snap *usecases.QueueSnapshot, page int) *discordgo.MessageEmbed {
	totalPages := max(1, (len(snap.Tracks)+queuePageSize-1)/queuePageSize)
	page = max(1, min(page, totalPages))

	embed := &discordgo.MessageEmbed{
		Title: "Queue",
		Color: colorInfo,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Page %d/%d · %d %s · Volume %d%%",
				page, totalPages, len(snap.Tracks), plural(len(snap.Tracks), "track"),
				snap.Volume.EffectivePercent()),
		},
	}

	if snap.Current == nil && snap.Loading == nil && len(snap.Tracks) == 0 {
		embed.Description = "Queue is empty."
		return embed
	}

	var sb strings.Builder
	switch {
	case snap.Current != nil:
		heading := "Now Playing"
		if snap.Status == usecases.StatusPaused {
			heading = "Paused"
		}
		fmt.Fprintf(&sb, "### %s\n", heading)
		writeTrackLine(&sb, 0, *snap.Current)
	case snap.Loading != nil:
		sb.WriteString("### Loading\n")
		writeTrackLine(&sb, 0, *snap.Loading)
	}

	start := (page - 1) * queuePageSize
	end := min(start+queuePageSize, len(snap.Tracks))
	if start < end {
		sb.WriteString("### Up Next\n")
		for idx := start; idx < end; idx++ {
			writeTrackLine(&sb, idx+1, snap.Tracks[idx])
		}
	}

	embed.Description = sb.String()
	return embed
}

func (h *CommandHandlers) handleQueueRemove(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) error {
	guildID, _, _, err := interactionIDs(i)
	if err != nil {
		return respondInvalid(r, err)
	}

	position, _ := optionInt(options, "position")

	removed, err := h.player.Remove(context.Background(), guildID, position)
	if err != nil {
		return respondError(r, errorMessage(err))
	}
	return respondEmbed(r, successEmbed(fmt.Sprintf("Removed %s.", trackLink(*removed))))
}

// HandleVolume handles the /volume command and its subcommands.
func (h *CommandHandlers) HandleVolume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, _, _, err := interactionIDs(i)
	if err != nil {
		return respondInvalid(r, err)
	}

	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, "Please specify a subcommand.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	sub := options[0]
	percent, _ := optionInt(sub.Options, "percent")

	switch sub.Name {
	case "set":
		out, err := h.player.SetMultiplier(ctx, guildID, percent)
		if err != nil {
			return respondError(r, errorMessage(err))
		}
		return respondEmbed(r, successEmbed(fmt.Sprintf(
			"Volume set to %d%% (effective %d%%).",
			out.Volume.MultiplierPercent(), out.Volume.EffectivePercent(),
		)))

	case "base":
		if i.Member.Permissions&discordgo.PermissionManageGuild == 0 {
			return respondError(r, errorMessage(usecases.ErrMissingPermission))
		}
		out, err := h.player.SetBase(ctx, guildID, percent)
		if err != nil {
			return respondError(r, errorMessage(err))
		}
		return respondEmbed(r, successEmbed(fmt.Sprintf(
			"Server base volume set to %d%% (effective %d%%).",
			out.Volume.BasePercent(), out.Volume.EffectivePercent(),
		)))

	case "status":
		v, err := h.player.VolumeStatus(ctx, guildID)
		if err != nil {
			return respondError(r, errorMessage(err))
		}
		return respondEmbed(r, &discordgo.MessageEmbed{
			Title: "Volume",
			Color: colorInfo,
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Base", Value: fmt.Sprintf("%d%%", v.BasePercent()), Inline: true},
				{Name: "Multiplier", Value: fmt.Sprintf("%d%%", v.MultiplierPercent()), Inline: true},
				{Name: "Effective", Value: fmt.Sprintf("%d%%", v.EffectivePercent()), Inline: true},
			},
		})

	default:
		return respondError(r, "Unknown subcommand.")
	}
}

// writeTrackLine writes a single track line to the string builder.
// Escapes period to prevent Discord markdown list formatting.
func writeTrackLine(sb *strings.Builder, displayIndex int, track usecases.Track) {
	if displayIndex > 0 {
		fmt.Fprintf(sb, "%d\\. ", displayIndex)
	}
	fmt.Fprintf(sb, "%s - %s `%s`\n", trackLink(track), track.Artist, track.FormattedDuration())
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
