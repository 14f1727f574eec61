package usecases

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/melodybot/internal/modules/music_player/domain"
)

const (
	testGuildID       = snowflake.ID(1)
	testUserID        = snowflake.ID(2)
	testTextChannelID = snowflake.ID(3)
	testVoiceChannel  = snowflake.ID(4)
	testOtherChannel  = snowflake.ID(5)

	refPrefix = "https://soundcloud.com/test/"
)

type mockResolver struct {
	mu      sync.Mutex
	failing map[string]error
	calls   map[string]int
}

func newMockResolver() *mockResolver {
	return &mockResolver{
		failing: make(map[string]error),
		calls:   make(map[string]int),
	}
}

// Resolve maps a term "x" to refPrefix+"x" and resolves either form to "stream:x".
func (m *mockResolver) Resolve(_ context.Context, query *domain.SearchQuery) (*ports.ResolvedMedia, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls[query.Query]++
	if err, ok := m.failing[query.Query]; ok {
		return nil, err
	}

	name := strings.TrimPrefix(query.Query, refPrefix)
	return &ports.ResolvedMedia{
		Title:        name,
		Artist:       "Artist",
		CanonicalRef: refPrefix + name,
		StreamURL:    "stream:" + name,
		SourceName:   "soundcloud",
		Duration:     3 * time.Minute,
	}, nil
}

func (m *mockResolver) fail(query string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing[query] = err
}

func (m *mockResolver) callCount(query string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[query]
}

type mockAudioPlayer struct {
	mu        sync.Mutex
	playErr   error
	stopErr   error
	pauseErr  error
	resumeErr error

	plays   []ports.PlayRequest
	current *ports.PlayRequest
	stops   int
	volumes []float64
}

func (m *mockAudioPlayer) Play(_ context.Context, _ snowflake.ID, req ports.PlayRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playErr != nil {
		return m.playErr
	}
	m.plays = append(m.plays, req)
	m.current = &req
	return nil
}

// Stop reports the finish asynchronously, like the real players do.
func (m *mockAudioPlayer) Stop(_ context.Context, _ snowflake.ID) error {
	m.mu.Lock()
	m.stops++
	if m.stopErr != nil {
		m.mu.Unlock()
		return m.stopErr
	}
	cur := m.current
	m.current = nil
	m.mu.Unlock()

	if cur != nil {
		go cur.OnFinished(nil)
	}
	return nil
}

func (m *mockAudioPlayer) Pause(_ context.Context, _ snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pauseErr
}

func (m *mockAudioPlayer) Resume(_ context.Context, _ snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resumeErr
}

func (m *mockAudioPlayer) SetVolume(_ context.Context, _ snowflake.ID, volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volumes = append(m.volumes, volume)
	return nil
}

// finish ends the current stream as if it ran out.
func (m *mockAudioPlayer) finish(err error) {
	m.mu.Lock()
	cur := m.current
	m.current = nil
	m.mu.Unlock()

	if cur != nil {
		cur.OnFinished(err)
	}
}

func (m *mockAudioPlayer) playCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.plays)
}

func (m *mockAudioPlayer) lastPlay() ports.PlayRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.plays) == 0 {
		return ports.PlayRequest{}
	}
	return m.plays[len(m.plays)-1]
}

func (m *mockAudioPlayer) appliedVolumes() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.volumes...)
}

type mockVoiceConnection struct {
	mu       sync.Mutex
	joinErr  error
	leaveErr error
	joins    []snowflake.ID
	moves    []snowflake.ID
	leaves   int
}

func (m *mockVoiceConnection) JoinChannel(_ context.Context, _, channelID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.joinErr != nil {
		return m.joinErr
	}
	m.joins = append(m.joins, channelID)
	return nil
}

func (m *mockVoiceConnection) MoveChannel(_ context.Context, _, channelID snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.joinErr != nil {
		return m.joinErr
	}
	m.moves = append(m.moves, channelID)
	return nil
}

func (m *mockVoiceConnection) LeaveChannel(_ context.Context, _ snowflake.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaves++
	return m.leaveErr
}

func (m *mockVoiceConnection) leaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaves
}

type mockVoiceState struct {
	mu           sync.Mutex
	userChannels map[snowflake.ID]snowflake.ID
	members      map[snowflake.ID]int
}

func newMockVoiceState() *mockVoiceState {
	return &mockVoiceState{
		userChannels: map[snowflake.ID]snowflake.ID{testUserID: testVoiceChannel},
		members:      make(map[snowflake.ID]int),
	}
}

func (m *mockVoiceState) GetUserVoiceChannel(_, userID snowflake.ID) (snowflake.ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userChannels[userID], nil
}

// CountChannelMembers defaults to the bot plus one listener.
func (m *mockVoiceState) CountChannelMembers(_, channelID snowflake.ID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.members[channelID]; ok {
		return n, nil
	}
	return 2, nil
}

func (m *mockVoiceState) setMembers(channelID snowflake.ID, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[channelID] = n
}

type mockVolumeStore struct {
	mu      sync.Mutex
	volumes map[snowflake.ID]domain.Volume
}

func newMockVolumeStore() *mockVolumeStore {
	return &mockVolumeStore{volumes: make(map[snowflake.ID]domain.Volume)}
}

func (m *mockVolumeStore) Load(_ context.Context, guildID snowflake.ID) (domain.Volume, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.volumes[guildID]
	return v, ok, nil
}

func (m *mockVolumeStore) Save(_ context.Context, guildID snowflake.ID, v domain.Volume) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volumes[guildID] = v
	return nil
}

func (m *mockVolumeStore) Close() error { return nil }

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (m *mockPublisher) Publish(event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) count(sample domain.Event) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if reflect.TypeOf(e) == reflect.TypeOf(sample) {
			n++
		}
	}
	return n
}

type mockSearcher struct {
	results []ports.SearchCandidate
	err     error
	limit   int
}

func (m *mockSearcher) Search(_ context.Context, _ string, limit int) ([]ports.SearchCandidate, error) {
	m.limit = limit
	return m.results, m.err
}

type testController struct {
	*QueueController
	resolver   *mockResolver
	player     *mockAudioPlayer
	voice      *mockVoiceConnection
	voiceState *mockVoiceState
	volumes    *mockVolumeStore
	publisher  *mockPublisher
}

func newTestController(t *testing.T, config ControllerConfig) *testController {
	t.Helper()
	tc := &testController{
		resolver:   newMockResolver(),
		player:     &mockAudioPlayer{},
		voice:      &mockVoiceConnection{},
		voiceState: newMockVoiceState(),
		volumes:    newMockVolumeStore(),
		publisher:  &mockPublisher{},
	}
	tc.QueueController = NewQueueController(
		tc.resolver,
		tc.voice,
		tc.player,
		tc.voiceState,
		tc.volumes,
		tc.publisher,
		config,
	)
	t.Cleanup(tc.Close)
	return tc
}

func (tc *testController) connect(t *testing.T) {
	t.Helper()
	_, err := tc.Join(context.Background(), JoinInput{
		GuildID:               testGuildID,
		UserID:                testUserID,
		NotificationChannelID: testTextChannelID,
	})
	if err != nil {
		t.Fatalf("failed to join: %v", err)
	}
}

func (tc *testController) enqueue(t *testing.T, query string) *EnqueueOutput {
	t.Helper()
	out, err := tc.Enqueue(context.Background(), EnqueueInput{
		GuildID:               testGuildID,
		Query:                 query,
		Source:                domain.SourceSoundCloud,
		RequesterID:           testUserID,
		RequesterName:         "tester",
		NotificationChannelID: testTextChannelID,
	})
	if err != nil {
		t.Fatalf("failed to enqueue %q: %v", query, err)
	}
	return out
}

func (tc *testController) snapshot(t *testing.T) *QueueSnapshot {
	t.Helper()
	snap, err := tc.Snapshot(context.Background(), testGuildID)
	if err != nil {
		t.Fatalf("failed to take snapshot: %v", err)
	}
	return snap
}

// waitFor polls the snapshot until cond holds.
func (tc *testController) waitFor(t *testing.T, desc string, cond func(*QueueSnapshot) bool) *QueueSnapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := tc.snapshot(t)
		if cond(snap) {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s: status=%v current=%v queue=%v",
				desc, snap.Status, snap.Current, titles(snap.Tracks))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func playing(title string) func(*QueueSnapshot) bool {
	return func(s *QueueSnapshot) bool {
		return s.Status == StatusPlaying && s.Current != nil && s.Current.Title == title
	}
}

func titles(tracks []Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Title
	}
	return out
}
