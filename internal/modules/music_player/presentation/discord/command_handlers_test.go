package discord

import (
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/melodybot/internal/bot"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/usecases"
)

func newTestHandlers(player *mockPlayer, search *mockSearch) *CommandHandlers {
	return NewCommandHandlers(player, search, usecases.NewSelectionService(0), usecases.SourceSoundCloud)
}

func TestHandlePlay_QueuePositionPlaysNext(t *testing.T) {
	player := &mockPlayer{}
	h := newTestHandlers(player, &mockSearch{})
	r := &bot.MockResponder{}

	err := h.HandlePlay(nil, commandInteraction("play", stringOption("query", "3")), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if player.lastCall() != "playnext" || player.position != 3 {
		t.Errorf("expected PlayNext(3), got %q(%d)", player.lastCall(), player.position)
	}
	if len(player.enqueues) != 0 {
		t.Error("expected nothing to be enqueued")
	}
	embed := responseEmbed(t, r.LastResponse)
	if !strings.Contains(embed.Description, "Queued") {
		t.Errorf("expected description to name the track, got %q", embed.Description)
	}
}

func TestHandlePlay_EnqueuesAndAutoJoins(t *testing.T) {
	player := &mockPlayer{}
	h := newTestHandlers(player, &mockSearch{})
	r := &bot.MockResponder{}

	err := h.HandlePlay(nil, commandInteraction("play", stringOption("query", "lofi beats")), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r.LastResponse.Type != discordgo.InteractionResponseDeferredChannelMessageWithSource {
		t.Errorf("expected deferred response, got %d", r.LastResponse.Type)
	}
	if len(player.joins) != 1 || !player.joins[0].KeepChannel {
		t.Fatalf("expected one join keeping the current channel, got %+v", player.joins)
	}
	if len(player.enqueues) != 1 {
		t.Fatalf("expected one enqueue, got %d", len(player.enqueues))
	}

	input := player.enqueues[0]
	if input.Query != "lofi beats" {
		t.Errorf("expected query %q, got %q", "lofi beats", input.Query)
	}
	if input.Source != usecases.SourceSoundCloud {
		t.Errorf("expected default source, got %q", input.Source)
	}
	if input.RequesterName != "Listener" {
		t.Errorf("expected requester nickname, got %q", input.RequesterName)
	}

	embed := editEmbedOf(t, r.Edited())
	if !strings.Contains(embed.Description, "Starting") {
		t.Errorf("expected starting message, got %q", embed.Description)
	}
	if embed.Footer == nil || embed.Footer.Text != "Requested by Listener" {
		t.Errorf("unexpected footer %+v", embed.Footer)
	}
}

func TestHandlePlay_Errors(t *testing.T) {
	tests := []struct {
		name    string
		player  *mockPlayer
		wantMsg string
	}{
		{
			name:    "user not in voice",
			player:  &mockPlayer{joinErr: usecases.ErrUserNotInVoice},
			wantMsg: "You must be in a voice channel.",
		},
		{
			name:    "resolution failed",
			player:  &mockPlayer{enqueueErr: errors.Join(usecases.ErrResolutionFailed, errors.New("403"))},
			wantMsg: "Could not load that track.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandlers(tt.player, &mockSearch{})
			r := &bot.MockResponder{}

			err := h.HandlePlay(nil, commandInteraction("play", stringOption("query", "song")), r)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			embed := editEmbedOf(t, r.Edited())
			if embed.Description != tt.wantMsg {
				t.Errorf("expected %q, got %q", tt.wantMsg, embed.Description)
			}
			if embed.Color != colorError {
				t.Errorf("expected error color, got %x", embed.Color)
			}
		})
	}
}

func TestHandlePlay_OutsideGuild(t *testing.T) {
	h := newTestHandlers(&mockPlayer{}, &mockSearch{})
	r := &bot.MockResponder{}
	i := commandInteraction("play", stringOption("query", "song"))
	i.Member = nil

	if err := h.HandlePlay(nil, i, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	embed := responseEmbed(t, r.LastResponse)
	if embed.Description != "This command can only be used in a server." {
		t.Errorf("unexpected message %q", embed.Description)
	}
}

func TestPlaybackCommands(t *testing.T) {
	tests := []struct {
		name     string
		handle   func(h *CommandHandlers) bot.InteractionHandler
		err      error
		wantCall string
		wantMsg  string
	}{
		{
			name:     "pause",
			handle:   func(h *CommandHandlers) bot.InteractionHandler { return h.HandlePause },
			wantCall: "pause",
			wantMsg:  "Paused playback.",
		},
		{
			name:     "pause while idle",
			handle:   func(h *CommandHandlers) bot.InteractionHandler { return h.HandlePause },
			err:      usecases.ErrNothingPlaying,
			wantCall: "pause",
			wantMsg:  "Nothing is playing right now.",
		},
		{
			name:     "resume when not paused",
			handle:   func(h *CommandHandlers) bot.InteractionHandler { return h.HandleResume },
			err:      usecases.ErrNotPaused,
			wantCall: "resume",
			wantMsg:  "Playback is not paused.",
		},
		{
			name:     "stop",
			handle:   func(h *CommandHandlers) bot.InteractionHandler { return h.HandleStop },
			wantCall: "stop",
			wantMsg:  "Stopped playback and cleared 2 queued tracks.",
		},
		{
			name:     "skip",
			handle:   func(h *CommandHandlers) bot.InteractionHandler { return h.HandleSkip },
			wantCall: "skip",
			wantMsg:  "Skipped [Current](https://soundcloud.com/a/current).",
		},
		{
			name:     "leave when not connected",
			handle:   func(h *CommandHandlers) bot.InteractionHandler { return h.HandleLeave },
			err:      usecases.ErrNotConnected,
			wantCall: "leave",
			wantMsg:  "I am not connected to a voice channel.",
		},
		{
			name:     "unexpected error",
			handle:   func(h *CommandHandlers) bot.InteractionHandler { return h.HandleLeave },
			err:      errors.New("boom"),
			wantCall: "leave",
			wantMsg:  "Something went wrong while processing your request.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := &mockPlayer{err: tt.err}
			h := newTestHandlers(player, &mockSearch{})
			r := &bot.MockResponder{}

			if err := tt.handle(h)(nil, commandInteraction(tt.name), r); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if player.lastCall() != tt.wantCall {
				t.Errorf("expected call %q, got %q", tt.wantCall, player.lastCall())
			}
			embed := responseEmbed(t, r.LastResponse)
			if embed.Description != tt.wantMsg {
				t.Errorf("expected %q, got %q", tt.wantMsg, embed.Description)
			}
		})
	}
}

func TestHandleQueueRemove(t *testing.T) {
	player := &mockPlayer{}
	h := newTestHandlers(player, &mockSearch{})
	r := &bot.MockResponder{}

	i := commandInteraction("queue", subcommand("remove", intOption("position", 2)))
	if err := h.HandleQueue(nil, i, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if player.lastCall() != "remove" || player.position != 2 {
		t.Errorf("expected Remove(2), got %q(%d)", player.lastCall(), player.position)
	}
	embed := responseEmbed(t, r.LastResponse)
	if !strings.Contains(embed.Description, "Removed") {
		t.Errorf("unexpected description %q", embed.Description)
	}
}

func TestQueueEmbed(t *testing.T) {
	tracks := make([]usecases.Track, 12)
	for idx := range tracks {
		tracks[idx] = usecases.Track{Title: "T" + string(rune('a'+idx)), SourceRef: "term"}
	}
	current := usecases.Track{Title: "Now", SourceRef: "https://soundcloud.com/a/now"}

	tests := []struct {
		name         string
		snap         *usecases.QueueSnapshot
		page         int
		wantContains []string
		wantMissing  []string
		wantFooter   string
	}{
		{
			name:         "empty",
			snap:         &usecases.QueueSnapshot{},
			wantContains: []string{"Queue is empty."},
			wantFooter:   "Page 1/1",
		},
		{
			name:         "first page",
			snap:         &usecases.QueueSnapshot{Status: usecases.StatusPlaying, Current: &current, Tracks: tracks},
			page:         1,
			wantContains: []string{"### Now Playing", "[Now](https://soundcloud.com/a/now)", "1\\. **Ta**", "10\\. **Tj**"},
			wantMissing:  []string{"**Tk**"},
			wantFooter:   "Page 1/2",
		},
		{
			name:         "second page",
			snap:         &usecases.QueueSnapshot{Status: usecases.StatusPaused, Current: &current, Tracks: tracks},
			page:         2,
			wantContains: []string{"### Paused", "11\\. **Tk**", "12\\. **Tl**"},
			wantMissing:  []string{"**Ta**"},
			wantFooter:   "Page 2/2",
		},
		{
			name:         "page beyond the end",
			snap:         &usecases.QueueSnapshot{Tracks: tracks[:2]},
			page:         5,
			wantContains: []string{"1\\. **Ta**"},
			wantFooter:   "Page 1/1",
		},
		{
			name:         "loading",
			snap:         &usecases.QueueSnapshot{Loading: &current},
			wantContains: []string{"### Loading"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embed := queueEmbed(tt.snap, tt.page)
			for _, want := range tt.wantContains {
				if !strings.Contains(embed.Description, want) {
					t.Errorf("expected description to contain %q, got:\n%s", want, embed.Description)
				}
			}
			for _, missing := range tt.wantMissing {
				if strings.Contains(embed.Description, missing) {
					t.Errorf("expected description not to contain %q", missing)
				}
			}
			if tt.wantFooter != "" && !strings.HasPrefix(embed.Footer.Text, tt.wantFooter) {
				t.Errorf("expected footer to start with %q, got %q", tt.wantFooter, embed.Footer.Text)
			}
		})
	}
}

func TestHandleVolume(t *testing.T) {
	tests := []struct {
		name        string
		sub         *discordgo.ApplicationCommandInteractionDataOption
		permissions int64
		wantCall    string
		wantPercent int
		wantMsg     string
	}{
		{
			name:        "set multiplier",
			sub:         subcommand("set", intOption("percent", 150)),
			wantCall:    "multiplier",
			wantPercent: 150,
			wantMsg:     "Volume set to 150% (effective 30%).",
		},
		{
			name:        "base requires permission",
			sub:         subcommand("base", intOption("percent", 50)),
			wantCall:    "",
			wantMsg:     "You need the Manage Server permission to do that.",
		},
		{
			name:        "base with permission",
			sub:         subcommand("base", intOption("percent", 50)),
			permissions: discordgo.PermissionManageGuild,
			wantCall:    "base",
			wantPercent: 50,
			wantMsg:     "Server base volume set to 50% (effective 50%).",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			player := &mockPlayer{}
			h := newTestHandlers(player, &mockSearch{})
			r := &bot.MockResponder{}

			i := commandInteraction("volume", tt.sub)
			i.Member.Permissions = tt.permissions
			if err := h.HandleVolume(nil, i, r); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if player.lastCall() != tt.wantCall {
				t.Errorf("expected call %q, got %q", tt.wantCall, player.lastCall())
			}
			if tt.wantCall != "" && player.percent != tt.wantPercent {
				t.Errorf("expected percent %d, got %d", tt.wantPercent, player.percent)
			}
			embed := responseEmbed(t, r.LastResponse)
			if embed.Description != tt.wantMsg {
				t.Errorf("expected %q, got %q", tt.wantMsg, embed.Description)
			}
		})
	}
}

func TestHandleVolume_Status(t *testing.T) {
	v := usecases.Volume{}
	_ = v.SetBasePercent(20)
	_ = v.SetMultiplierPercent(150)
	player := &mockPlayer{volume: v}
	h := newTestHandlers(player, &mockSearch{})
	r := &bot.MockResponder{}

	if err := h.HandleVolume(nil, commandInteraction("volume", subcommand("status")), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	embed := responseEmbed(t, r.LastResponse)
	want := []string{"20%", "150%", "30%"}
	if len(embed.Fields) != len(want) {
		t.Fatalf("expected %d fields, got %d", len(want), len(embed.Fields))
	}
	for idx, field := range embed.Fields {
		if field.Value != want[idx] {
			t.Errorf("field %s: expected %q, got %q", field.Name, want[idx], field.Value)
		}
	}
}

func TestErrorMessage_WrappedErrors(t *testing.T) {
	err := errors.Join(errors.New("context"), usecases.ErrInvalidIndex)
	if got := errorMessage(err); got != "There is no track at that position." {
		t.Errorf("unexpected message %q", got)
	}
}

func TestTrackLink(t *testing.T) {
	tests := []struct {
		track usecases.Track
		want  string
	}{
		{usecases.Track{Title: "A", SourceRef: "https://x.test/a"}, "[A](https://x.test/a)"},
		{usecases.Track{Title: "[Live] B", SourceRef: "https://x.test/b"}, "[\\[Live\\] B](https://x.test/b)"},
		{usecases.Track{Title: "C", SourceRef: "c"}, "**C**"},
	}
	for _, tt := range tests {
		if got := trackLink(tt.track); got != tt.want {
			t.Errorf("trackLink(%q) = %q, want %q", tt.track.Title, got, tt.want)
		}
	}
}
