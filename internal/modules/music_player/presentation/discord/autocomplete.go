package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/melodybot/internal/bot"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/usecases"
)

const (
	// autocompleteTimeout keeps suggestions inside Discord's response window.
	autocompleteTimeout = 2500 * time.Millisecond
	maxChoices          = 25
	minSuggestQuery     = 2
)

// Suggester provides quick search suggestions.
type Suggester interface {
	Search(ctx context.Context, query string, limit int) ([]usecases.SearchCandidate, error)
}

// AutocompleteHandler handles autocomplete requests.
type AutocompleteHandler struct {
	player    MusicPlayer
	suggester Suggester
}

// NewAutocompleteHandler creates a new AutocompleteHandler. suggester may be nil.
func NewAutocompleteHandler(player MusicPlayer, suggester Suggester) *AutocompleteHandler {
	return &AutocompleteHandler{
		player:    player,
		suggester: suggester,
	}
}

// HandlePlay suggests tracks for the play command's query.
func (h *AutocompleteHandler) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" && opt.Focused {
			query = strings.TrimSpace(opt.StringValue())
			break
		}
	}

	// URLs and queue positions are played as typed.
	if _, isPosition := usecases.ParseQueuePosition(query); h.suggester == nil ||
		len([]rune(query)) < minSuggestQuery || isPosition || strings.HasPrefix(query, "http") {
		return respondChoices(r, nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), autocompleteTimeout)
	defer cancel()

	candidates, err := h.suggester.Search(ctx, query, maxChoices)
	if err != nil {
		slog.Debug("autocomplete search failed", "query", query, "error", err)
		return respondChoices(r, nil)
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(candidates))
	for _, c := range candidates {
		if c.Reference == "" || len(c.Reference) > maxLabelLength {
			continue
		}
		name := c.Title
		if c.Artist != "" {
			name = fmt.Sprintf("%s - %s", c.Title, c.Artist)
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncate("🎵 "+name, maxLabelLength),
			Value: c.Reference,
		})
		if len(choices) == maxChoices {
			break
		}
	}
	return respondChoices(r, choices)
}

// HandleQueueRemove suggests positions for the queue remove command.
func (h *AutocompleteHandler) HandleQueueRemove(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		slog.Warn("failed to parse guild ID in autocomplete", "error", err, "guildID", i.GuildID)
		return respondChoices(r, nil)
	}

	snap, err := h.player.Snapshot(context.Background(), guildID)
	if err != nil {
		return respondChoices(r, nil)
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, min(len(snap.Tracks), maxChoices))
	for idx, track := range snap.Tracks {
		if idx == maxChoices {
			break
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("%d. %s", idx+1, truncate(track.Title, 90)),
			Value: idx + 1,
		})
	}
	return respondChoices(r, choices)
}

func respondChoices(r bot.Responder, choices []*discordgo.ApplicationCommandOptionChoice) error {
	if choices == nil {
		choices = []*discordgo.ApplicationCommandOptionChoice{}
	}
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
}
