package usecases

import (
	"context"
	"log/slog"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/melodybot/internal/modules/music_player/domain"
)

// QueueController owns every guild's player. Each guild is served by its
// own goroutine, so operations on one guild are serialized while different
// guilds proceed concurrently.
type QueueController struct {
	resolver   ports.MediaResolver
	voice      ports.VoiceConnection
	player     ports.AudioPlayer
	voiceState ports.VoiceStateProvider
	volumes    ports.VolumeStore
	publisher  ports.EventPublisher
	config     ControllerConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	players map[snowflake.ID]*guildPlayer
}

// NewQueueController creates a new QueueController.
func NewQueueController(
	resolver ports.MediaResolver,
	voice ports.VoiceConnection,
	player ports.AudioPlayer,
	voiceState ports.VoiceStateProvider,
	volumes ports.VolumeStore,
	publisher ports.EventPublisher,
	config ControllerConfig,
) *QueueController {
	ctx, cancel := context.WithCancel(context.Background())
	return &QueueController{
		resolver:   resolver,
		voice:      voice,
		player:     player,
		voiceState: voiceState,
		volumes:    volumes,
		publisher:  publisher,
		config:     config.withDefaults(),
		ctx:        ctx,
		cancel:     cancel,
		players:    make(map[snowflake.ID]*guildPlayer),
	}
}

// Close stops every guild goroutine. Voice connections are left to the
// adapters' own shutdown.
func (c *QueueController) Close() {
	c.cancel()
	c.wg.Wait()
}

// guild returns the player for guildID, starting it on first use.
func (c *QueueController) guild(guildID snowflake.ID) *guildPlayer {
	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.players[guildID]; ok {
		return p
	}

	p := newGuildPlayer(c, guildID)
	c.players[guildID] = p
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		p.run()
	}()
	return p
}

// Join connects the bot to a voice channel, or moves it there when it is
// already connected elsewhere. The queue survives a move.
func (c *QueueController) Join(ctx context.Context, input JoinInput) (*JoinOutput, error) {
	channelID := input.VoiceChannelID
	if channelID == 0 {
		userChannel, err := c.voiceState.GetUserVoiceChannel(input.GuildID, input.UserID)
		if err != nil {
			return nil, err
		}
		channelID = userChannel
	}

	var out *JoinOutput
	err := c.guild(input.GuildID).do(ctx, func(p *guildPlayer) error {
		var err error
		out, err = p.join(ctx, channelID, input.NotificationChannelID, input.KeepChannel)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Leave stops playback, clears the queue and disconnects.
func (c *QueueController) Leave(ctx context.Context, guildID snowflake.ID) error {
	return c.guild(guildID).do(ctx, func(p *guildPlayer) error {
		return p.leave(ctx)
	})
}

// Enqueue resolves input.Query and appends the resulting track.
// Resolution happens on the caller's goroutine; a failure leaves the queue untouched.
func (c *QueueController) Enqueue(ctx context.Context, input EnqueueInput) (*EnqueueOutput, error) {
	query := domain.NewSearchQuery(input.Query, input.Source)
	if !query.IsValid() {
		return nil, ErrResolutionFailed
	}

	media, err := c.resolver.Resolve(ctx, query)
	if err != nil {
		slog.Warn("failed to resolve query", "guild", input.GuildID, "query", input.Query, "error", err)
		return nil, wrapResolution(err)
	}

	track := trackFromMedia(media, input)
	if !track.IsValid() {
		return nil, ErrResolutionFailed
	}

	var out *EnqueueOutput
	err = c.guild(input.GuildID).do(ctx, func(p *guildPlayer) error {
		var err error
		out, err = p.enqueue(track, input.NotificationChannelID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PlayNext moves the pending track at position (1-based) to the front and
// starts it, interrupting the current track if there is one.
func (c *QueueController) PlayNext(ctx context.Context, guildID snowflake.ID, position int) (*Track, error) {
	var track *Track
	err := c.guild(guildID).do(ctx, func(p *guildPlayer) error {
		t, err := p.playNext(ctx, position)
		track = t
		return err
	})
	if err != nil {
		return nil, err
	}
	return track, nil
}

// Pause pauses the current track.
func (c *QueueController) Pause(ctx context.Context, guildID snowflake.ID) error {
	return c.guild(guildID).do(ctx, func(p *guildPlayer) error {
		return p.pause(ctx)
	})
}

// Resume resumes the paused track.
func (c *QueueController) Resume(ctx context.Context, guildID snowflake.ID) error {
	return c.guild(guildID).do(ctx, func(p *guildPlayer) error {
		return p.resume(ctx)
	})
}

// Stop halts playback and clears the queue. It returns how many pending
// tracks were dropped.
func (c *QueueController) Stop(ctx context.Context, guildID snowflake.ID) (int, error) {
	var cleared int
	err := c.guild(guildID).do(ctx, func(p *guildPlayer) error {
		n, err := p.stop(ctx)
		cleared = n
		return err
	})
	return cleared, err
}

// Skip ends the current track; the next one starts when the player reports it finished.
func (c *QueueController) Skip(ctx context.Context, guildID snowflake.ID) (*Track, error) {
	var skipped *Track
	err := c.guild(guildID).do(ctx, func(p *guildPlayer) error {
		t, err := p.skip(ctx)
		skipped = t
		return err
	})
	if err != nil {
		return nil, err
	}
	return skipped, nil
}

// Remove deletes the pending track at position (1-based).
func (c *QueueController) Remove(ctx context.Context, guildID snowflake.ID, position int) (*Track, error) {
	var removed *Track
	err := c.guild(guildID).do(ctx, func(p *guildPlayer) error {
		if !p.state.Status().IsConnected() {
			return ErrNotConnected
		}
		t, err := p.state.Queue.Remove(position)
		if err != nil {
			return err
		}
		removed = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Snapshot returns a copy of the guild's player state.
func (c *QueueController) Snapshot(ctx context.Context, guildID snowflake.ID) (*QueueSnapshot, error) {
	var snap *QueueSnapshot
	err := c.guild(guildID).do(ctx, func(p *guildPlayer) error {
		snap = p.snapshot()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// SetMultiplier sets the per-session volume multiplier (0-200 percent).
func (c *QueueController) SetMultiplier(ctx context.Context, guildID snowflake.ID, percent int) (*VolumeOutput, error) {
	return c.setVolume(ctx, guildID, func(v *domain.Volume) error {
		return v.SetMultiplierPercent(percent)
	})
}

// SetBase sets the server base volume (0-100 percent).
func (c *QueueController) SetBase(ctx context.Context, guildID snowflake.ID, percent int) (*VolumeOutput, error) {
	return c.setVolume(ctx, guildID, func(v *domain.Volume) error {
		return v.SetBasePercent(percent)
	})
}

func (c *QueueController) setVolume(
	ctx context.Context,
	guildID snowflake.ID,
	change func(*domain.Volume) error,
) (*VolumeOutput, error) {
	var out *VolumeOutput
	err := c.guild(guildID).do(ctx, func(p *guildPlayer) error {
		var err error
		out, err = p.changeVolume(ctx, change)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VolumeStatus returns the guild's current volume.
func (c *QueueController) VolumeStatus(ctx context.Context, guildID snowflake.ID) (Volume, error) {
	var v Volume
	err := c.guild(guildID).do(ctx, func(p *guildPlayer) error {
		v = p.state.Volume()
		return nil
	})
	return v, err
}

// HandleVoiceStateChange is called for every voice state update in a guild.
// If the bot ends up alone, it leaves once the auto-disconnect delay passes
// and nobody has come back.
func (c *QueueController) HandleVoiceStateChange(guildID snowflake.ID) {
	c.mu.Lock()
	p, ok := c.players[guildID]
	c.mu.Unlock()
	if !ok {
		return
	}
	p.post(func() { p.checkOccupancy() })
}

// HandleBotVoiceStateChange is called when the bot's own voice state changes
// outside of the controller, e.g. a moderator moved or kicked it.
// channelID is 0 when the bot was disconnected.
func (c *QueueController) HandleBotVoiceStateChange(guildID, channelID snowflake.ID) {
	c.mu.Lock()
	p, ok := c.players[guildID]
	c.mu.Unlock()
	if !ok {
		return
	}
	p.post(func() { p.externalVoiceChange(channelID) })
}

func trackFromMedia(media *ports.ResolvedMedia, input EnqueueInput) domain.Track {
	ref := media.CanonicalRef
	if ref == "" {
		ref = input.Query
	}
	return domain.Track{
		Title:           media.Title,
		Artist:          media.Artist,
		SourceRef:       ref,
		Duration:        media.Duration,
		ArtworkURL:      media.ArtworkURL,
		SourceName:      media.SourceName,
		IsLive:          media.IsLive,
		RequesterID:     input.RequesterID,
		RequesterName:   input.RequesterName,
		OriginChannelID: input.NotificationChannelID,
	}
}
