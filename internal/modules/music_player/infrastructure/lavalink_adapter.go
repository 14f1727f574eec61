package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/ports"
)

// voiceConnectionTimeout bounds how long a join or move waits for the gateway.
const voiceConnectionTimeout = 10 * time.Second

var (
	// ErrNoLavalinkNode is returned when no Lavalink node is available.
	ErrNoLavalinkNode = errors.New("no available Lavalink node")

	// ErrTrackLoadFailed is returned when Lavalink cannot load or play a stream.
	ErrTrackLoadFailed = errors.New("lavalink failed to load the stream")
)

// pendingVoiceConnection is a join or move waiting on its gateway updates.
type pendingVoiceConnection struct {
	mu             sync.Mutex
	needServer     bool
	hasVoiceState  bool
	hasVoiceServer bool
	ready          chan struct{}
}

// onEvent records one gateway update and closes ready when nothing else is owed.
func (p *pendingVoiceConnection) onEvent(isVoiceState bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if isVoiceState {
		p.hasVoiceState = true
	} else {
		p.hasVoiceServer = true
	}

	if p.hasVoiceState && (p.hasVoiceServer || !p.needServer) {
		select {
		case <-p.ready:
			// Already closed
		default:
			close(p.ready)
		}
	}
}

// voiceEventBuffer pairs a guild's voice state with its voice server so the
// node only ever sees a complete session, whichever half arrives first.
type voiceEventBuffer struct {
	mu sync.Mutex

	hasVoiceState bool
	channelID     *snowflake.ID
	sessionID     string

	hasVoiceServer bool
	token          string
	endpoint       string
}

// setVoiceState reports whether the pair is complete.
func (b *voiceEventBuffer) setVoiceState(channelID *snowflake.ID, sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceState = true
	b.channelID = channelID
	b.sessionID = sessionID

	return b.hasVoiceState && b.hasVoiceServer
}

// setVoiceServer reports whether the pair is complete.
func (b *voiceEventBuffer) setVoiceServer(token, endpoint string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceServer = true
	b.token = token
	b.endpoint = endpoint

	return b.hasVoiceState && b.hasVoiceServer
}

// take empties the buffer for the next session.
func (b *voiceEventBuffer) take() (channelID *snowflake.ID, sessionID, token, endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	channelID, sessionID, token, endpoint = b.channelID, b.sessionID, b.token, b.endpoint
	b.hasVoiceState, b.channelID, b.sessionID = false, nil, ""
	b.hasVoiceServer, b.token, b.endpoint = false, "", ""
	return
}

// lavalinkPlayback is the stream currently handed to a Lavalink player.
type lavalinkPlayback struct {
	encoded    string
	onFinished func(error)
	err        error
}

// LavalinkAdapter plays audio through a Lavalink node using DisGoLink.
type LavalinkAdapter struct {
	link    disgolink.Client
	session *discordgo.Session
	botID   snowflake.ID

	pendingMu sync.Mutex
	pending   map[snowflake.ID]*pendingVoiceConnection

	// voiceBuffers holds the half-received voice session of each guild.
	voiceBufferMu sync.Mutex
	voiceBuffers  map[snowflake.ID]*voiceEventBuffer

	playbackMu sync.Mutex
	playbacks  map[snowflake.ID]*lavalinkPlayback
}

// LavalinkConfig describes the node the adapter connects to.
type LavalinkConfig struct {
	Address  string
	Password string
	Secure   bool
}

// NewLavalinkAdapter creates a new LavalinkAdapter and connects to the node.
func NewLavalinkAdapter(
	ctx context.Context,
	session *discordgo.Session,
	config LavalinkConfig,
) (*LavalinkAdapter, error) {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot ID: %w", err)
	}

	adapter := &LavalinkAdapter{
		session:      session,
		botID:        botID,
		pending:      make(map[snowflake.ID]*pendingVoiceConnection),
		voiceBuffers: make(map[snowflake.ID]*voiceEventBuffer),
		playbacks:    make(map[snowflake.ID]*lavalinkPlayback),
	}

	adapter.link = disgolink.New(botID,
		disgolink.WithListenerFunc(adapter.onTrackStart),
		disgolink.WithListenerFunc(adapter.onTrackEnd),
		disgolink.WithListenerFunc(adapter.onTrackException),
		disgolink.WithListenerFunc(adapter.onTrackStuck),
	)

	node, err := adapter.link.AddNode(ctx, disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   config.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return adapter, nil
}

// Close disconnects from all Lavalink nodes.
func (c *LavalinkAdapter) Close() {
	c.link.Close()
}

// JoinChannel returns once the gateway has handed over a full voice session.
func (c *LavalinkAdapter) JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	return c.updateVoiceChannel(ctx, guildID, channelID, true)
}

// MoveChannel moves the bot to another channel in the same guild. Discord
// does not always send a new voice server, so only the state update is awaited.
func (c *LavalinkAdapter) MoveChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	return c.updateVoiceChannel(ctx, guildID, channelID, false)
}

func (c *LavalinkAdapter) updateVoiceChannel(
	ctx context.Context,
	guildID, channelID snowflake.ID,
	needServer bool,
) error {
	pending := &pendingVoiceConnection{
		needServer: needServer,
		ready:      make(chan struct{}),
	}

	c.pendingMu.Lock()
	c.pending[guildID] = pending
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, guildID)
		c.pendingMu.Unlock()
	}()

	err := c.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}

	select {
	case <-pending.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting for voice connection: %w", ctx.Err())
	case <-time.After(voiceConnectionTimeout):
		return fmt.Errorf("timeout waiting for voice connection")
	}
}

// LeaveChannel destroys the player and disconnects from the voice channel.
func (c *LavalinkAdapter) LeaveChannel(ctx context.Context, guildID snowflake.ID) error {
	c.takePlayback(guildID)

	if player := c.link.ExistingPlayer(guildID); player != nil {
		if err := player.Destroy(ctx); err != nil {
			slog.Warn("failed to destroy player", "guild", guildID, "error", err)
		}
	}

	err := c.session.ChannelVoiceJoinManual(guildID.String(), "", false, false)
	if err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// Play loads the stream on the node and starts it at the requested volume.
func (c *LavalinkAdapter) Play(ctx context.Context, guildID snowflake.ID, req ports.PlayRequest) error {
	node := c.link.BestNode()
	if node == nil {
		return ErrNoLavalinkNode
	}

	result, err := node.LoadTracks(ctx, req.StreamURL)
	if err != nil {
		return fmt.Errorf("failed to load stream: %w", err)
	}
	track, err := firstTrack(result)
	if err != nil {
		return err
	}

	c.playbackMu.Lock()
	c.playbacks[guildID] = &lavalinkPlayback{encoded: track.Encoded, onFinished: req.OnFinished}
	c.playbackMu.Unlock()

	player := c.link.Player(guildID)
	err = player.Update(ctx,
		lavalink.WithEncodedTrack(track.Encoded),
		lavalink.WithVolume(lavalinkVolume(req.Volume)),
		lavalink.WithPaused(false),
	)
	if err != nil {
		c.takePlayback(guildID)
		return fmt.Errorf("failed to play track: %w", err)
	}

	return nil
}

// Stop stops the current playback. Lavalink reports the end as "stopped",
// which fires the pending finish callback.
func (c *LavalinkAdapter) Stop(ctx context.Context, guildID snowflake.ID) error {
	player := c.link.Player(guildID)

	if err := player.Update(ctx, lavalink.WithNullTrack()); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}

	return nil
}

// Pause pauses the current playback.
func (c *LavalinkAdapter) Pause(ctx context.Context, guildID snowflake.ID) error {
	player := c.link.Player(guildID)

	if err := player.Update(ctx, lavalink.WithPaused(true)); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}

	return nil
}

// Resume resumes the current playback.
func (c *LavalinkAdapter) Resume(ctx context.Context, guildID snowflake.ID) error {
	player := c.link.Player(guildID)

	if err := player.Update(ctx, lavalink.WithPaused(false)); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}

	return nil
}

// SetVolume changes the gain of the current playback.
func (c *LavalinkAdapter) SetVolume(ctx context.Context, guildID snowflake.ID, volume float64) error {
	player := c.link.Player(guildID)

	if err := player.Update(ctx, lavalink.WithVolume(lavalinkVolume(volume))); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}

	return nil
}

// lavalinkVolume converts a gain (1.0 is unity) to Lavalink's 0-1000 scale.
func lavalinkVolume(gain float64) int {
	v := int(math.Round(gain * 100))
	return max(0, min(v, 1000))
}

func firstTrack(result *lavalink.LoadResult) (lavalink.Track, error) {
	switch data := result.Data.(type) {
	case lavalink.Track:
		return data, nil
	case lavalink.Search:
		if len(data) > 0 {
			return data[0], nil
		}
	case lavalink.Playlist:
		if len(data.Tracks) > 0 {
			return data.Tracks[0], nil
		}
	case lavalink.Exception:
		return lavalink.Track{}, fmt.Errorf("%w: %s", ErrTrackLoadFailed, data.Message)
	}
	return lavalink.Track{}, ErrTrackLoadFailed
}

// OnVoiceServerUpdate feeds a gateway voice server update into the adapter.
func (c *LavalinkAdapter) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	buffer := c.voiceBuffer(guildID)
	if buffer.setVoiceServer(event.Token, event.Endpoint) {
		c.forwardBufferedVoiceEvents(guildID, buffer)
	}

	c.signalPending(guildID, false)
}

// OnVoiceStateUpdate feeds the bot's own gateway voice state into the adapter.
func (c *LavalinkAdapter) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	if event.UserID != c.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	var channelID *snowflake.ID
	if event.ChannelID != "" {
		id, err := snowflake.Parse(event.ChannelID)
		if err != nil {
			slog.Error("failed to parse channel ID in voice state update", "error", err)
			return
		}
		channelID = &id
	}

	// Disconnects are forwarded immediately.
	if channelID == nil {
		c.link.OnVoiceStateUpdate(context.Background(), guildID, nil, event.SessionID)
		c.clearVoiceBuffer(guildID)
		return
	}

	buffer := c.voiceBuffer(guildID)
	if buffer.setVoiceState(channelID, event.SessionID) {
		c.forwardBufferedVoiceEvents(guildID, buffer)
	} else if c.link.ExistingPlayer(guildID) != nil {
		// A move within the guild keeps the voice server.
		c.link.OnVoiceStateUpdate(context.Background(), guildID, channelID, event.SessionID)
	}

	c.signalPending(guildID, true)
}

func (c *LavalinkAdapter) signalPending(guildID snowflake.ID, isVoiceState bool) {
	c.pendingMu.Lock()
	pending := c.pending[guildID]
	c.pendingMu.Unlock()

	if pending != nil {
		pending.onEvent(isVoiceState)
	}
}

func (c *LavalinkAdapter) voiceBuffer(guildID snowflake.ID) *voiceEventBuffer {
	c.voiceBufferMu.Lock()
	defer c.voiceBufferMu.Unlock()

	buffer, exists := c.voiceBuffers[guildID]
	if !exists {
		buffer = &voiceEventBuffer{}
		c.voiceBuffers[guildID] = buffer
	}
	return buffer
}

func (c *LavalinkAdapter) clearVoiceBuffer(guildID snowflake.ID) {
	c.voiceBufferMu.Lock()
	defer c.voiceBufferMu.Unlock()
	delete(c.voiceBuffers, guildID)
}

func (c *LavalinkAdapter) forwardBufferedVoiceEvents(guildID snowflake.ID, buffer *voiceEventBuffer) {
	channelID, sessionID, token, endpoint := buffer.take()

	slog.Debug("forwarding buffered voice events to Lavalink",
		"guild", guildID,
		"channel", channelID,
		"hasSessionID", sessionID != "",
	)

	c.link.OnVoiceStateUpdate(context.Background(), guildID, channelID, sessionID)
	c.link.OnVoiceServerUpdate(context.Background(), guildID, token, endpoint)
}

func (c *LavalinkAdapter) takePlayback(guildID snowflake.ID) *lavalinkPlayback {
	c.playbackMu.Lock()
	defer c.playbackMu.Unlock()
	p := c.playbacks[guildID]
	delete(c.playbacks, guildID)
	return p
}

func (c *LavalinkAdapter) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)
}

func (c *LavalinkAdapter) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	slog.Debug("track ended", "guild", player.GuildID(), "reason", event.Reason)

	if event.Reason == lavalink.TrackEndReasonReplaced {
		return
	}

	guildID := player.GuildID()
	c.playbackMu.Lock()
	p, ok := c.playbacks[guildID]
	if !ok || p.encoded != event.Track.Encoded {
		c.playbackMu.Unlock()
		return
	}
	delete(c.playbacks, guildID)
	c.playbackMu.Unlock()

	err := p.err
	if err == nil && event.Reason == lavalink.TrackEndReasonLoadFailed {
		err = ErrTrackLoadFailed
	}
	if p.onFinished != nil {
		p.onFinished(err)
	}
}

func (c *LavalinkAdapter) onTrackException(player disgolink.Player, event lavalink.TrackExceptionEvent) {
	slog.Warn("track exception", "guild", player.GuildID(), "error", event.Exception.Message)
	c.recordError(player.GuildID(), event.Track.Encoded,
		fmt.Errorf("%w: %s", ErrTrackLoadFailed, event.Exception.Message))
}

func (c *LavalinkAdapter) onTrackStuck(player disgolink.Player, event lavalink.TrackStuckEvent) {
	slog.Warn("track stuck", "guild", player.GuildID(), "threshold", event.Threshold)
	c.recordError(player.GuildID(), event.Track.Encoded, errors.New("playback stalled"))

	// Ending the track fires the finish callback with the recorded error.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := player.Update(ctx, lavalink.WithNullTrack()); err != nil {
		slog.Warn("failed to stop stuck track", "guild", player.GuildID(), "error", err)
	}
}

func (c *LavalinkAdapter) recordError(guildID snowflake.ID, encoded string, err error) {
	c.playbackMu.Lock()
	defer c.playbackMu.Unlock()
	if p, ok := c.playbacks[guildID]; ok && p.encoded == encoded {
		p.err = err
	}
}

var (
	_ ports.AudioPlayer     = (*LavalinkAdapter)(nil)
	_ ports.VoiceConnection = (*LavalinkAdapter)(nil)
)
