package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/melodybot/internal/modules/music_player/domain"
)

type nowPlayingMessage struct {
	channelID snowflake.ID
	messageID snowflake.ID
}

// NotificationEventHandler turns player events into Discord messages.
// It keeps track of the last "Now Playing" message per guild so it can be
// removed once the track is over.
type NotificationEventHandler struct {
	subscriber       ports.EventSubscriber
	notifier         ports.NotificationSender
	userInfoProvider ports.UserInfoProvider

	mu         sync.Mutex
	nowPlaying map[snowflake.ID]nowPlayingMessage
}

// NewNotificationEventHandler creates a new NotificationEventHandler.
func NewNotificationEventHandler(
	subscriber ports.EventSubscriber,
	notifier ports.NotificationSender,
	userInfoProvider ports.UserInfoProvider,
) *NotificationEventHandler {
	return &NotificationEventHandler{
		subscriber:       subscriber,
		notifier:         notifier,
		userInfoProvider: userInfoProvider,
		nowPlaying:       make(map[snowflake.ID]nowPlayingMessage),
	}
}

// Start registers event handlers with the subscriber.
func (h *NotificationEventHandler) Start() error {
	subscriptions := []struct {
		eventType reflect.Type
		handler   func(context.Context, domain.Event)
	}{
		{
			reflect.TypeFor[domain.TrackStartedEvent](),
			func(ctx context.Context, e domain.Event) {
				h.handleTrackStarted(ctx, e.(domain.TrackStartedEvent))
			},
		},
		{
			reflect.TypeFor[domain.TrackFailedEvent](),
			func(ctx context.Context, e domain.Event) {
				h.handleTrackFailed(ctx, e.(domain.TrackFailedEvent))
			},
		},
		{
			reflect.TypeFor[domain.QueueFinishedEvent](),
			func(ctx context.Context, e domain.Event) {
				h.handleQueueFinished(ctx, e.(domain.QueueFinishedEvent))
			},
		},
		{
			reflect.TypeFor[domain.AutoDisconnectedEvent](),
			func(ctx context.Context, e domain.Event) {
				h.handleAutoDisconnected(ctx, e.(domain.AutoDisconnectedEvent))
			},
		},
	}

	for _, s := range subscriptions {
		if err := h.subscriber.Subscribe(s.eventType, s.handler); err != nil {
			return err
		}
	}

	slog.Debug("notification event handlers properly registered")

	return nil
}

func (h *NotificationEventHandler) handleTrackStarted(_ context.Context, event domain.TrackStartedEvent) {
	h.clearNowPlaying(event.GuildID)

	if event.NotificationChannelID == 0 {
		return
	}

	track := event.Track
	requesterName := track.RequesterName
	var requesterAvatarURL string
	if h.userInfoProvider != nil && track.RequesterID != 0 {
		userInfo, err := h.userInfoProvider.GetUserInfo(event.GuildID, track.RequesterID)
		if err != nil {
			slog.Warn("failed to fetch requester info for now playing",
				"guild", event.GuildID,
				"requester", track.RequesterID,
				"error", err,
			)
		} else {
			requesterName = userInfo.DisplayName
			requesterAvatarURL = userInfo.AvatarURL
		}
	}
	if requesterName == "" {
		requesterName = "Unknown"
	}

	slog.Debug("sending now playing notification", "guild", event.GuildID, "track", track.Title)

	messageID, err := h.notifier.SendNowPlaying(event.NotificationChannelID, &ports.NowPlayingInfo{
		Title:              track.Title,
		Artist:             track.Artist,
		Duration:           track.FormattedDuration(),
		URI:                track.SourceRef,
		ArtworkURL:         track.ArtworkURL,
		SourceName:         track.SourceName,
		IsLive:             track.IsLive,
		VolumePercent:      event.Volume.EffectivePercent(),
		RequesterName:      requesterName,
		RequesterAvatarURL: requesterAvatarURL,
		EnqueuedAt:         track.EnqueuedAt,
	})
	if err != nil {
		slog.Error("failed to send now playing notification", "guild", event.GuildID, "error", err)
		return
	}

	h.mu.Lock()
	h.nowPlaying[event.GuildID] = nowPlayingMessage{
		channelID: event.NotificationChannelID,
		messageID: messageID,
	}
	h.mu.Unlock()
}

func (h *NotificationEventHandler) handleTrackFailed(_ context.Context, event domain.TrackFailedEvent) {
	if event.NotificationChannelID == 0 {
		return
	}

	message := fmt.Sprintf("Could not play **%s**.", event.Track.Title)
	if errors.Is(event.Err, domain.ErrResolutionFailed) {
		message = fmt.Sprintf("Could not load **%s**, skipping it.", event.Track.Title)
	}

	if err := h.notifier.SendError(event.NotificationChannelID, message); err != nil {
		slog.Warn("failed to send track failure notification", "guild", event.GuildID, "error", err)
	}
}

func (h *NotificationEventHandler) handleQueueFinished(_ context.Context, event domain.QueueFinishedEvent) {
	h.clearNowPlaying(event.GuildID)
}

func (h *NotificationEventHandler) handleAutoDisconnected(_ context.Context, event domain.AutoDisconnectedEvent) {
	h.clearNowPlaying(event.GuildID)

	if event.NotificationChannelID == 0 {
		return
	}
	err := h.notifier.SendInfo(
		event.NotificationChannelID,
		"Disconnected",
		"Nobody is listening anymore, so I left the voice channel.",
	)
	if err != nil {
		slog.Warn("failed to send auto-disconnect notification", "guild", event.GuildID, "error", err)
	}
}

// clearNowPlaying deletes the guild's last "Now Playing" message, if any.
func (h *NotificationEventHandler) clearNowPlaying(guildID snowflake.ID) {
	h.mu.Lock()
	msg, ok := h.nowPlaying[guildID]
	delete(h.nowPlaying, guildID)
	h.mu.Unlock()

	if !ok {
		return
	}

	slog.Debug("deleting now playing message", "guild", guildID, "message_id", msg.messageID)
	if err := h.notifier.DeleteMessage(msg.channelID, msg.messageID); err != nil {
		slog.Warn("failed to delete now playing message", "guild", guildID, "error", err)
	}
}
