package discord

import (
	"context"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/usecases"
)

const (
	testGuildID   = "1"
	testUserID    = "2"
	testChannelID = "3"
)

type mockPlayer struct {
	mu sync.Mutex

	joinErr    error
	enqueueErr error
	err        error // returned by the remaining operations

	joins    []usecases.JoinInput
	enqueues []usecases.EnqueueInput
	calls    []string
	position int
	percent  int

	snapshot *usecases.QueueSnapshot
	volume   usecases.Volume
}

func (m *mockPlayer) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockPlayer) Join(_ context.Context, input usecases.JoinInput) (*usecases.JoinOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joins = append(m.joins, input)
	if m.joinErr != nil {
		return nil, m.joinErr
	}
	channelID := input.VoiceChannelID
	if channelID == 0 {
		channelID = 4
	}
	return &usecases.JoinOutput{VoiceChannelID: channelID}, nil
}

func (m *mockPlayer) Leave(_ context.Context, _ snowflake.ID) error {
	m.record("leave")
	return m.err
}

func (m *mockPlayer) Enqueue(_ context.Context, input usecases.EnqueueInput) (*usecases.EnqueueOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enqueues = append(m.enqueues, input)
	if m.enqueueErr != nil {
		return nil, m.enqueueErr
	}
	return &usecases.EnqueueOutput{
		Track: usecases.Track{
			Title:         "Song",
			Artist:        "Artist",
			SourceRef:     "https://soundcloud.com/a/song",
			SourceName:    "soundcloud",
			RequesterName: input.RequesterName,
		},
		Position: 1,
		Starting: true,
	}, nil
}

func (m *mockPlayer) PlayNext(_ context.Context, _ snowflake.ID, position int) (*usecases.Track, error) {
	m.record("playnext")
	m.position = position
	if m.err != nil {
		return nil, m.err
	}
	return &usecases.Track{Title: "Queued", SourceRef: "https://soundcloud.com/a/queued"}, nil
}

func (m *mockPlayer) Pause(_ context.Context, _ snowflake.ID) error {
	m.record("pause")
	return m.err
}

func (m *mockPlayer) Resume(_ context.Context, _ snowflake.ID) error {
	m.record("resume")
	return m.err
}

func (m *mockPlayer) Stop(_ context.Context, _ snowflake.ID) (int, error) {
	m.record("stop")
	return 2, m.err
}

func (m *mockPlayer) Skip(_ context.Context, _ snowflake.ID) (*usecases.Track, error) {
	m.record("skip")
	if m.err != nil {
		return nil, m.err
	}
	return &usecases.Track{Title: "Current", SourceRef: "https://soundcloud.com/a/current"}, nil
}

func (m *mockPlayer) Remove(_ context.Context, _ snowflake.ID, position int) (*usecases.Track, error) {
	m.record("remove")
	m.position = position
	if m.err != nil {
		return nil, m.err
	}
	return &usecases.Track{Title: "Removed", SourceRef: "https://soundcloud.com/a/removed"}, nil
}

func (m *mockPlayer) Snapshot(_ context.Context, _ snowflake.ID) (*usecases.QueueSnapshot, error) {
	m.record("snapshot")
	if m.err != nil {
		return nil, m.err
	}
	if m.snapshot == nil {
		return &usecases.QueueSnapshot{}, nil
	}
	return m.snapshot, nil
}

func (m *mockPlayer) SetMultiplier(_ context.Context, _ snowflake.ID, percent int) (*usecases.VolumeOutput, error) {
	m.record("multiplier")
	m.percent = percent
	if m.err != nil {
		return nil, m.err
	}
	v := usecases.Volume{}
	if err := v.SetBasePercent(20); err != nil {
		return nil, err
	}
	if err := v.SetMultiplierPercent(percent); err != nil {
		return nil, err
	}
	return &usecases.VolumeOutput{Volume: v}, nil
}

func (m *mockPlayer) SetBase(_ context.Context, _ snowflake.ID, percent int) (*usecases.VolumeOutput, error) {
	m.record("base")
	m.percent = percent
	if m.err != nil {
		return nil, m.err
	}
	v := usecases.Volume{}
	if err := v.SetBasePercent(percent); err != nil {
		return nil, err
	}
	if err := v.SetMultiplierPercent(100); err != nil {
		return nil, err
	}
	return &usecases.VolumeOutput{Volume: v}, nil
}

func (m *mockPlayer) VolumeStatus(_ context.Context, _ snowflake.ID) (usecases.Volume, error) {
	m.record("volume")
	return m.volume, m.err
}

func (m *mockPlayer) lastCall() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return ""
	}
	return m.calls[len(m.calls)-1]
}

type mockSearch struct {
	input  usecases.SearchInput
	output *usecases.SearchOutput
	err    error
}

func (m *mockSearch) Search(_ context.Context, input usecases.SearchInput) (*usecases.SearchOutput, error) {
	m.input = input
	return m.output, m.err
}

type mockSuggester struct {
	candidates []usecases.SearchCandidate
	err        error
	calls      int
}

func (m *mockSuggester) Search(_ context.Context, _ string, _ int) ([]usecases.SearchCandidate, error) {
	m.calls++
	return m.candidates, m.err
}

type mockListener struct {
	occupancy []snowflake.ID
	bot       []snowflake.ID
}

func (m *mockListener) HandleVoiceStateChange(guildID snowflake.ID) {
	m.occupancy = append(m.occupancy, guildID)
}

func (m *mockListener) HandleBotVoiceStateChange(_, channelID snowflake.ID) {
	m.bot = append(m.bot, channelID)
}

func testMember() *discordgo.Member {
	return &discordgo.Member{
		Nick: "Listener",
		User: &discordgo.User{ID: testUserID, Username: "listener"},
	}
}

func commandInteraction(
	name string,
	options ...*discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   testGuildID,
			ChannelID: testChannelID,
			Member:    testMember(),
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: options,
			},
		},
	}
}

func componentInteraction(userID, customID string, values ...string) *discordgo.InteractionCreate {
	member := testMember()
	member.User.ID = userID
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionMessageComponent,
			GuildID:   testGuildID,
			ChannelID: testChannelID,
			Member:    member,
			Data: discordgo.MessageComponentInteractionData{
				CustomID: customID,
				Values:   values,
			},
		},
	}
}

func stringOption(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func intOption(name string, value int) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionInteger,
		Value: float64(value),
	}
}

func subcommand(
	name string,
	options ...*discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:    name,
		Type:    discordgo.ApplicationCommandOptionSubCommand,
		Options: options,
	}
}

func responseEmbed(t *testing.T, resp *discordgo.InteractionResponse) *discordgo.MessageEmbed {
	t.Helper()
	if resp == nil || resp.Data == nil || len(resp.Data.Embeds) == 0 {
		t.Fatal("expected an embed response")
	}
	return resp.Data.Embeds[0]
}

func editEmbedOf(t *testing.T, edit *discordgo.WebhookEdit) *discordgo.MessageEmbed {
	t.Helper()
	if edit == nil || edit.Embeds == nil || len(*edit.Embeds) == 0 {
		t.Fatal("expected an embed edit")
	}
	return (*edit.Embeds)[0]
}
