package discord

import (
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/melodybot/internal/bot"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/usecases"
)

func searchOutput() *usecases.SearchOutput {
	return &usecases.SearchOutput{
		Source: usecases.SourceYouTube,
		Candidates: []usecases.SearchCandidate{
			{
				Title:      "First",
				Artist:     "Band",
				Reference:  "https://www.youtube.com/watch?v=first",
				ArtworkURL: "https://i.ytimg.com/vi/first/hqdefault.jpg",
				Duration:   3*time.Minute + 5*time.Second,
			},
			{
				Title:     strings.Repeat("long ", 40),
				Artist:    "Band",
				Reference: "https://www.youtube.com/watch?v=second",
				IsLive:    true,
			},
		},
	}
}

// openPrompt runs /search and returns the custom ID of the result menu.
func openPrompt(t *testing.T, h *CommandHandlers, search *mockSearch) string {
	t.Helper()
	r := &bot.MockResponder{}

	i := commandInteraction("search", stringOption("query", "band"), stringOption("source", "ytsearch"))
	if err := h.HandleSearch(nil, i, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if search.input.Source != usecases.SourceYouTube {
		t.Errorf("expected YouTube source, got %q", search.input.Source)
	}

	edit := r.Edited()
	if edit == nil || edit.Components == nil || len(*edit.Components) != 1 {
		t.Fatal("expected a select menu")
	}
	row, ok := (*edit.Components)[0].(discordgo.ActionsRow)
	if !ok {
		t.Fatalf("expected an actions row, got %T", (*edit.Components)[0])
	}
	menu, ok := row.Components[0].(discordgo.SelectMenu)
	if !ok {
		t.Fatalf("expected a select menu, got %T", row.Components[0])
	}
	return menu.CustomID
}

func TestHandleSearch_BuildsMenu(t *testing.T) {
	search := &mockSearch{output: searchOutput()}
	h := newTestHandlers(&mockPlayer{}, search)
	r := &bot.MockResponder{}

	i := commandInteraction("search", stringOption("query", "band"))
	if err := h.HandleSearch(nil, i, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if search.input.Source != usecases.SourceSoundCloud {
		t.Errorf("expected default source, got %q", search.input.Source)
	}
	if h.selections.OpenCount() != 1 {
		t.Errorf("expected one open prompt, got %d", h.selections.OpenCount())
	}

	embed := editEmbedOf(t, r.Edited())
	if embed.Thumbnail == nil || embed.Thumbnail.URL != "https://i.ytimg.com/vi/first/hqdefault.jpg" {
		t.Errorf("expected first result artwork, got %+v", embed.Thumbnail)
	}

	row := (*r.Edited().Components)[0].(discordgo.ActionsRow)
	menu := row.Components[0].(discordgo.SelectMenu)

	if !strings.HasPrefix(menu.CustomID, SelectCustomIDPrefix+":") {
		t.Errorf("unexpected custom ID %q", menu.CustomID)
	}
	if len(menu.Options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(menu.Options))
	}
	if menu.Options[0].Label != "1. First" {
		t.Errorf("unexpected label %q", menu.Options[0].Label)
	}
	if menu.Options[0].Description != "Band | 3:05" {
		t.Errorf("unexpected description %q", menu.Options[0].Description)
	}
	if menu.Options[0].Value != "0" {
		t.Errorf("unexpected value %q", menu.Options[0].Value)
	}
	if n := len([]rune(menu.Options[1].Label)); n > maxLabelLength {
		t.Errorf("label has %d runes", n)
	}
	if menu.Options[1].Description != "Band | LIVE" {
		t.Errorf("unexpected description %q", menu.Options[1].Description)
	}
}

func TestHandleSearch_NoResults(t *testing.T) {
	search := &mockSearch{err: usecases.ErrNoResults}
	h := newTestHandlers(&mockPlayer{}, search)
	r := &bot.MockResponder{}

	if err := h.HandleSearch(nil, commandInteraction("search", stringOption("query", "zzz")), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	embed := editEmbedOf(t, r.Edited())
	if embed.Description != "No results found." {
		t.Errorf("unexpected message %q", embed.Description)
	}
	if h.selections.OpenCount() != 0 {
		t.Error("expected no prompt to be opened")
	}
}

func TestHandleSelect(t *testing.T) {
	t.Run("other users are rejected privately", func(t *testing.T) {
		search := &mockSearch{output: searchOutput()}
		player := &mockPlayer{}
		h := newTestHandlers(player, search)
		customID := openPrompt(t, h, search)

		r := &bot.MockResponder{}
		if err := h.HandleSelect(nil, componentInteraction("99", customID, "0"), r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if r.LastResponse.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
			t.Error("expected an ephemeral response")
		}
		if len(player.enqueues) != 0 {
			t.Error("expected nothing to be enqueued")
		}
		if h.selections.OpenCount() != 1 {
			t.Error("expected the prompt to stay open")
		}
	})

	t.Run("requester pick enqueues the candidate", func(t *testing.T) {
		search := &mockSearch{output: searchOutput()}
		player := &mockPlayer{}
		h := newTestHandlers(player, search)
		customID := openPrompt(t, h, search)

		r := &bot.MockResponder{}
		if err := h.HandleSelect(nil, componentInteraction(testUserID, customID, "1"), r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if r.LastResponse.Type != discordgo.InteractionResponseUpdateMessage {
			t.Errorf("expected message update, got %d", r.LastResponse.Type)
		}
		if len(r.LastResponse.Data.Components) != 0 {
			t.Error("expected the menu to be removed")
		}
		if len(player.enqueues) != 1 {
			t.Fatalf("expected one enqueue, got %d", len(player.enqueues))
		}
		if got := player.enqueues[0].Query; got != "https://www.youtube.com/watch?v=second" {
			t.Errorf("expected the picked reference, got %q", got)
		}
		if h.selections.OpenCount() != 0 {
			t.Error("expected the prompt to be closed")
		}
		editEmbedOf(t, r.Edited())
	})

	t.Run("expired prompt", func(t *testing.T) {
		h := newTestHandlers(&mockPlayer{}, &mockSearch{})
		r := &bot.MockResponder{}

		i := componentInteraction(testUserID, SelectCustomIDPrefix+":missing", "0")
		if err := h.HandleSelect(nil, i, r); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		embed := responseEmbed(t, r.LastResponse)
		if embed.Description != "This selection has expired." {
			t.Errorf("unexpected message %q", embed.Description)
		}
	})
}

func TestSelectionExpiryEditsMessage(t *testing.T) {
	search := &mockSearch{output: searchOutput()}
	h := NewCommandHandlers(&mockPlayer{}, search, usecases.NewSelectionService(50*time.Millisecond), usecases.SourceSoundCloud)
	r := &bot.MockResponder{}

	if err := h.HandleSearch(nil, commandInteraction("search", stringOption("query", "band")), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		edit := r.Edited()
		if edit != nil && edit.Embeds != nil && (*edit.Embeds)[0].Description == "Selection expired." {
			if edit.Components == nil || len(*edit.Components) != 0 {
				t.Error("expected the menu to be removed")
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the prompt to expire")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
