package discord

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/melodybot/internal/bot"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/usecases"
)

// HandleSearch handles the /search command. Results are offered in a
// select menu that only the requester can use.
func (h *CommandHandlers) HandleSearch(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, userID, channelID, err := interactionIDs(i)
	if err != nil {
		return respondInvalid(r, err)
	}

	options := i.ApplicationCommandData().Options
	query := strings.TrimSpace(optionString(options, "query"))
	if query == "" {
		return respondError(r, "Please provide a search term.")
	}
	source := h.defaultSource
	if raw := optionString(options, "source"); raw != "" {
		source = usecases.ParseSearchSource(raw)
	}

	if err := respondDeferred(r); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	out, err := h.search.Search(ctx, usecases.SearchInput{Query: query, Source: source})
	if err != nil {
		return editError(r, errorMessage(err))
	}

	promptID, err := h.selections.Open(usecases.OpenSelectionInput{
		GuildID:     guildID,
		ChannelID:   channelID,
		RequesterID: userID,
		Candidates:  out.Candidates,
		OnExpire: func() {
			_ = r.Edit(&discordgo.WebhookEdit{
				Embeds: &[]*discordgo.MessageEmbed{{
					Description: "Selection expired.",
					Color:       colorInfo,
				}},
				Components: &[]discordgo.MessageComponent{},
			})
		},
	})
	if err != nil {
		return editError(r, errorMessage(err))
	}

	embed, components := searchResults(query, out, promptID, h.selections.Timeout().Seconds())
	if err := r.Edit(&discordgo.WebhookEdit{
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &components,
	}); err != nil {
		h.selections.Cancel(promptID)
		return err
	}
	return nil
}

// searchResults builds the result embed and the select menu for a prompt.
func searchResults(
	query string,
	out *usecases.SearchOutput,
	promptID string,
	timeoutSeconds float64,
) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	menuOptions := make([]discordgo.SelectMenuOption, len(out.Candidates))
	for idx, c := range out.Candidates {
		menuOptions[idx] = discordgo.SelectMenuOption{
			Label:       truncate(fmt.Sprintf("%d. %s", idx+1, c.Title), maxLabelLength),
			Description: truncate(fmt.Sprintf("%s | %s", c.Artist, usecases.FormatDuration(c.Duration, c.IsLive)), maxLabelLength),
			Value:       strconv.Itoa(idx),
		}
	}

	embed := &discordgo.MessageEmbed{
		Title:       truncate("Results for "+query, 256),
		Description: fmt.Sprintf("Pick a track below within %.0f seconds.", timeoutSeconds),
		Color:       colorInfo,
	}
	if art := out.Candidates[0].ArtworkURL; art != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: art}
	}

	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					CustomID:    SelectCustomIDPrefix + ":" + promptID,
					Placeholder: "Choose a track",
					Options:     menuOptions,
				},
			},
		},
	}
	return embed, components
}

// HandleSelect handles picks from a search result menu.
func (h *CommandHandlers) HandleSelect(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, userID, channelID, err := interactionIDs(i)
	if err != nil {
		return respondInvalid(r, err)
	}

	data := i.MessageComponentData()
	promptID, ok := strings.CutPrefix(data.CustomID, SelectCustomIDPrefix+":")
	if !ok || len(data.Values) == 0 {
		return respondEphemeral(r, "Invalid selection.")
	}
	index, err := strconv.Atoi(data.Values[0])
	if err != nil {
		return respondEphemeral(r, "Invalid selection.")
	}

	picked, err := h.selections.Pick(usecases.PickInput{
		PromptID: promptID,
		UserID:   userID,
		Index:    index,
	})
	if err != nil {
		// Other users get a private rejection and the menu stays.
		return respondEphemeral(r, errorMessage(err))
	}

	err = r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{{
				Description: fmt.Sprintf("Loading **%s**...", linkTextEscaper.Replace(picked.Candidate.Title)),
				Color:       colorInfo,
			}},
			Components: []discordgo.MessageComponent{},
		},
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	out, err := h.joinAndEnqueue(ctx, i.Member, guildID, userID, channelID, picked.Candidate.Reference)
	if err != nil {
		return editError(r, errorMessage(err))
	}
	return editEmbed(r, enqueuedEmbed(out))
}
