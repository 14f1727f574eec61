package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/melodybot/internal/modules/music_player/domain"
)

const mailboxSize = 64

// guildPlayer is the actor for a single guild. Every field below is owned
// by the run goroutine; other goroutines reach it only through the mailbox.
type guildPlayer struct {
	c       *QueueController
	guildID snowflake.ID
	mailbox chan func()

	state *domain.PlayerState

	// loading is set while the head track's stream is being resolved.
	loading   bool
	pending   *domain.Track
	loadToken uint64

	// playToken identifies the PlayRequest whose finish we are waiting for.
	playToken uint64

	aloneCheckPending bool

	// leaveEchoes counts our own voice disconnects whose gateway update has
	// not arrived yet.
	leaveEchoes int
}

func newGuildPlayer(c *QueueController, guildID snowflake.ID) *guildPlayer {
	return &guildPlayer{
		c:       c,
		guildID: guildID,
		mailbox: make(chan func(), mailboxSize),
		state:   domain.NewPlayerState(guildID, c.config.DefaultVolume),
	}
}

func (p *guildPlayer) run() {
	p.loadVolume()
	for {
		select {
		case <-p.c.ctx.Done():
			return
		case fn := <-p.mailbox:
			fn()
		}
	}
}

// do runs fn on the actor and waits for its result.
func (p *guildPlayer) do(ctx context.Context, fn func(*guildPlayer) error) error {
	done := make(chan error, 1)
	msg := func() { done <- fn(p) }

	select {
	case p.mailbox <- msg:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.c.ctx.Done():
		return ErrControllerClosed
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.c.ctx.Done():
		return ErrControllerClosed
	}
}

// post queues fn without waiting. It never blocks the caller, which may be
// an adapter goroutine the actor is itself waiting on.
func (p *guildPlayer) post(fn func()) {
	select {
	case p.mailbox <- fn:
		return
	default:
	}
	go func() {
		select {
		case p.mailbox <- fn:
		case <-p.c.ctx.Done():
		}
	}()
}

func (p *guildPlayer) loadVolume() {
	if p.c.volumes == nil {
		return
	}
	ctx, cancel := context.WithTimeout(p.c.ctx, 5*time.Second)
	defer cancel()

	v, ok, err := p.c.volumes.Load(ctx, p.guildID)
	if err != nil {
		slog.Warn("failed to load stored volume", "guild", p.guildID, "error", err)
		return
	}
	if ok {
		p.state.SetVolume(v)
	}
}

func (p *guildPlayer) join(
	ctx context.Context,
	channelID, notificationChannelID snowflake.ID,
	keep bool,
) (*JoinOutput, error) {
	status := p.state.Status()
	current := p.state.GetVoiceChannelID()

	if status.IsConnected() && (keep || channelID == current) {
		p.state.SetNotificationChannelID(notificationChannelID)
		return &JoinOutput{VoiceChannelID: current}, nil
	}
	if channelID == 0 {
		return nil, ErrUserNotInVoice
	}

	vctx, cancel := context.WithTimeout(ctx, p.c.config.VoiceTimeout)
	defer cancel()

	moved := status.IsConnected()
	var err error
	if moved {
		err = p.c.voice.MoveChannel(vctx, p.guildID, channelID)
	} else {
		err = p.c.voice.JoinChannel(vctx, p.guildID, channelID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}

	p.state.Connected(channelID)
	p.state.SetNotificationChannelID(notificationChannelID)
	slog.Info("joined voice channel", "guild", p.guildID, "channel", channelID, "moved", moved)

	p.checkOccupancy()
	return &JoinOutput{VoiceChannelID: channelID, Moved: moved}, nil
}

func (p *guildPlayer) leave(ctx context.Context) error {
	if !p.state.Status().IsConnected() {
		return ErrNotConnected
	}
	return p.disconnect(ctx, true)
}

// disconnect halts playback and tears down the voice connection. The state
// is reset even when the adapter reports an error. expectEcho is set when
// the gateway will still report the disconnect back to us.
func (p *guildPlayer) disconnect(ctx context.Context, expectEcho bool) error {
	p.halt(ctx)
	p.state.Disconnected()

	if err := p.c.voice.LeaveChannel(ctx, p.guildID); err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	if expectEcho {
		p.leaveEchoes++
	}
	return nil
}

// halt stops the audio source and discards in-flight loads and finish events.
func (p *guildPlayer) halt(ctx context.Context) {
	hadTrack := p.state.Status().HasTrack()

	p.loadToken++
	p.playToken++
	p.loading = false
	p.pending = nil

	if hadTrack {
		if err := p.c.player.Stop(ctx, p.guildID); err != nil {
			slog.Warn("failed to stop playback", "guild", p.guildID, "error", err)
		}
	}
}

func (p *guildPlayer) enqueue(track domain.Track, notificationChannelID snowflake.ID) (*EnqueueOutput, error) {
	if !p.state.Status().IsConnected() {
		return nil, ErrNotConnected
	}

	track.EnqueuedAt = time.Now()
	p.state.SetNotificationChannelID(notificationChannelID)
	p.state.Queue.Enqueue(track)

	out := &EnqueueOutput{Track: track, Position: p.state.Queue.Len()}
	if p.state.Status() == domain.StatusConnected && !p.loading {
		out.Starting = true
		p.advance()
	}
	return out, nil
}

func (p *guildPlayer) playNext(ctx context.Context, position int) (*domain.Track, error) {
	if !p.state.Status().IsConnected() {
		return nil, ErrNotConnected
	}

	track, err := p.state.Queue.PlayNext(position)
	if err != nil {
		return nil, err
	}

	if p.state.Status().HasTrack() {
		// The finish event of the interrupted track advances to the moved one.
		if err := p.c.player.Stop(ctx, p.guildID); err != nil {
			return nil, err
		}
	} else {
		p.advance()
	}
	return &track, nil
}

func (p *guildPlayer) pause(ctx context.Context) error {
	if err := p.state.Pause(); err != nil {
		return err
	}
	if err := p.c.player.Pause(ctx, p.guildID); err != nil {
		_ = p.state.Resume()
		return err
	}
	return nil
}

func (p *guildPlayer) resume(ctx context.Context) error {
	if err := p.state.Resume(); err != nil {
		return err
	}
	if err := p.c.player.Resume(ctx, p.guildID); err != nil {
		_ = p.state.Pause()
		return err
	}
	return nil
}

func (p *guildPlayer) stop(ctx context.Context) (int, error) {
	if !p.state.Status().IsConnected() {
		return 0, ErrNotConnected
	}
	p.halt(ctx)
	return p.state.Stop()
}

func (p *guildPlayer) skip(ctx context.Context) (*domain.Track, error) {
	if err := p.state.CanSkip(); err != nil {
		return nil, err
	}
	current := p.state.Current()
	if err := p.c.player.Stop(ctx, p.guildID); err != nil {
		return nil, err
	}
	return current, nil
}

func (p *guildPlayer) changeVolume(ctx context.Context, change func(*domain.Volume) error) (*VolumeOutput, error) {
	v := p.state.Volume()
	if err := change(&v); err != nil {
		return nil, err
	}
	p.state.SetVolume(v)

	if p.c.volumes != nil {
		if err := p.c.volumes.Save(ctx, p.guildID, v); err != nil {
			slog.Warn("failed to persist volume", "guild", p.guildID, "error", err)
		}
	}

	out := &VolumeOutput{Volume: v}
	if p.state.Status().HasTrack() {
		if err := p.c.player.SetVolume(ctx, p.guildID, v.Effective()); err != nil {
			slog.Warn("failed to apply volume", "guild", p.guildID, "error", err)
		} else {
			out.Applied = true
		}
	}
	return out, nil
}

func (p *guildPlayer) snapshot() *QueueSnapshot {
	snap := &QueueSnapshot{
		Status:         p.state.Status(),
		VoiceChannelID: p.state.GetVoiceChannelID(),
		Current:        p.state.Current(),
		Tracks:         p.state.Queue.Snapshot(),
		Volume:         p.state.Volume(),
	}
	if p.pending != nil {
		t := *p.pending
		snap.Loading = &t
	}
	return snap
}

// advance starts loading the head of the queue. It is a no-op unless the
// player is Connected with nothing in flight.
func (p *guildPlayer) advance() {
	if p.loading || p.state.Status() != domain.StatusConnected {
		return
	}
	track, err := p.state.Queue.PopHead()
	if err != nil {
		return
	}

	p.loadToken++
	p.loading = true
	p.pending = &track
	go p.resolveStream(p.loadToken, track)
}

// resolveStream runs off the actor. Stream URLs expire, so every track is
// resolved again right before it plays.
func (p *guildPlayer) resolveStream(token uint64, track domain.Track) {
	ctx, cancel := context.WithTimeout(p.c.ctx, p.c.config.ResolveTimeout)
	defer cancel()

	media, err := p.c.resolver.Resolve(ctx, domain.NewSearchQuery(track.SourceRef, domain.SourceDirect))
	p.post(func() { p.streamResolved(token, track, media, err) })
}

func (p *guildPlayer) streamResolved(token uint64, track domain.Track, media *ports.ResolvedMedia, err error) {
	if token != p.loadToken {
		slog.Debug("discarding stale stream", "guild", p.guildID, "track", track.Title)
		return
	}
	p.loading = false
	p.pending = nil

	if p.state.Status() != domain.StatusConnected {
		return
	}
	if err != nil {
		p.fail(track, wrapResolution(err))
		p.next()
		return
	}
	p.start(track, media)
}

func (p *guildPlayer) start(track domain.Track, media *ports.ResolvedMedia) {
	p.playToken++
	token := p.playToken

	ctx, cancel := context.WithTimeout(p.c.ctx, p.c.config.VoiceTimeout)
	defer cancel()

	volume := p.state.Volume()
	req := ports.PlayRequest{
		StreamURL: media.StreamURL,
		Volume:    volume.Effective(),
		OnFinished: func(err error) {
			p.post(func() { p.playbackFinished(token, err) })
		},
	}
	if err := p.c.player.Play(ctx, p.guildID, req); err != nil {
		p.fail(track, err)
		p.next()
		return
	}

	if media.IsLive {
		track.IsLive = true
	}
	if track.Duration == 0 {
		track.Duration = media.Duration
	}
	if err := p.state.StartPlaying(track); err != nil {
		slog.Error("failed to mark track as playing", "guild", p.guildID, "error", err)
		return
	}

	slog.Info("track started", "guild", p.guildID, "track", track.Title)
	p.publish(domain.TrackStartedEvent{
		GuildID:               p.guildID,
		NotificationChannelID: p.notificationChannel(track),
		Track:                 track,
		Volume:                volume,
	})
}

func (p *guildPlayer) playbackFinished(token uint64, err error) {
	if token != p.playToken || !p.state.Status().HasTrack() {
		return
	}

	finished := p.state.Current()
	p.state.FinishCurrent()
	if err != nil && finished != nil {
		p.fail(*finished, err)
	}
	p.next()
}

// next advances, or reports that the queue ran dry.
func (p *guildPlayer) next() {
	if p.state.Queue.IsEmpty() {
		if !p.loading {
			p.publish(domain.QueueFinishedEvent{
				GuildID:               p.guildID,
				NotificationChannelID: p.state.GetNotificationChannelID(),
			})
		}
		return
	}
	p.advance()
}

func (p *guildPlayer) fail(track domain.Track, err error) {
	slog.Warn("dropping track", "guild", p.guildID, "track", track.Title, "error", err)
	p.publish(domain.TrackFailedEvent{
		GuildID:               p.guildID,
		NotificationChannelID: p.notificationChannel(track),
		Track:                 track,
		Err:                   err,
	})
}

// checkOccupancy schedules a delayed re-check when the bot is alone.
func (p *guildPlayer) checkOccupancy() {
	if !p.state.Status().IsConnected() || p.aloneCheckPending || !p.alone() {
		return
	}
	p.aloneCheckPending = true
	time.AfterFunc(p.c.config.AutoDisconnectDelay, func() {
		p.post(p.recheckOccupancy)
	})
}

func (p *guildPlayer) recheckOccupancy() {
	p.aloneCheckPending = false
	if !p.state.Status().IsConnected() || !p.alone() {
		return
	}

	channelID := p.state.GetVoiceChannelID()
	notificationChannelID := p.state.GetNotificationChannelID()

	ctx, cancel := context.WithTimeout(p.c.ctx, p.c.config.VoiceTimeout)
	defer cancel()
	if err := p.disconnect(ctx, true); err != nil {
		slog.Warn("auto-disconnect failed", "guild", p.guildID, "error", err)
	}

	slog.Info("left empty voice channel", "guild", p.guildID, "channel", channelID)
	p.publish(domain.AutoDisconnectedEvent{
		GuildID:               p.guildID,
		NotificationChannelID: notificationChannelID,
		VoiceChannelID:        channelID,
	})
}

func (p *guildPlayer) alone() bool {
	count, err := p.c.voiceState.CountChannelMembers(p.guildID, p.state.GetVoiceChannelID())
	if err != nil {
		slog.Warn("failed to count voice channel members", "guild", p.guildID, "error", err)
		return false
	}
	return count <= 1
}

func (p *guildPlayer) externalVoiceChange(channelID snowflake.ID) {
	if channelID == 0 && p.leaveEchoes > 0 {
		p.leaveEchoes--
		return
	}
	if !p.state.Status().IsConnected() {
		return
	}

	if channelID == 0 {
		slog.Info("disconnected from voice externally", "guild", p.guildID)
		ctx, cancel := context.WithTimeout(p.c.ctx, p.c.config.VoiceTimeout)
		defer cancel()
		if err := p.disconnect(ctx, false); err != nil {
			slog.Debug("cleanup after external disconnect failed", "guild", p.guildID, "error", err)
		}
		return
	}

	if channelID != p.state.GetVoiceChannelID() {
		p.state.Connected(channelID)
		p.checkOccupancy()
	}
}

func (p *guildPlayer) notificationChannel(track domain.Track) snowflake.ID {
	if id := p.state.GetNotificationChannelID(); id != 0 {
		return id
	}
	return track.OriginChannelID
}

func (p *guildPlayer) publish(event domain.Event) {
	if p.c.publisher == nil {
		return
	}
	if err := p.c.publisher.Publish(event); err != nil {
		slog.Error("failed to publish event", "guild", p.guildID, "error", err)
	}
}

func wrapResolution(err error) error {
	if errors.Is(err, ErrResolutionFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrResolutionFailed, err)
}
