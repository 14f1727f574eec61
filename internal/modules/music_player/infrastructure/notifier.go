package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/melodybot/internal/modules/music_player/domain"
)

// Embed colors.
const (
	colorRed  = 0xE74C3C
	colorBlue = 0x3498DB
)

// Notifier sends notifications to Discord channels.
type Notifier struct {
	session    *discordgo.Session
	httpClient *http.Client
}

// NewNotifier creates a new Notifier.
func NewNotifier(session *discordgo.Session) *Notifier {
	return &Notifier{
		session: session,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// SendNowPlaying sends a "Now Playing" embed to the channel and returns the message ID.
func (n *Notifier) SendNowPlaying(
	channelID snowflake.ID,
	info *ports.NowPlayingInfo,
) (snowflake.ID, error) {
	embed := nowPlayingEmbed(info)

	source := domain.ParseTrackSource(info.SourceName)
	if thumbnailURL := n.bestThumbnail(source, info.URI, info.ArtworkURL); thumbnailURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: thumbnailURL}
	}

	msg, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	if err != nil {
		return 0, err
	}
	messageID, err := snowflake.Parse(msg.ID)
	if err != nil {
		return 0, err
	}
	return messageID, nil
}

// DeleteMessage deletes a message from the channel.
func (n *Notifier) DeleteMessage(channelID, messageID snowflake.ID) error {
	return n.session.ChannelMessageDelete(channelID.String(), messageID.String())
}

// SendInfo sends an informational embed to the channel.
func (n *Notifier) SendInfo(channelID snowflake.ID, title, message string) error {
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: message,
		Color:       colorBlue,
	}

	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	return err
}

// SendError sends an error message embed to the channel.
func (n *Notifier) SendError(channelID snowflake.ID, message string) error {
	embed := &discordgo.MessageEmbed{
		Description: message,
		Color:       colorRed,
	}

	_, err := n.session.ChannelMessageSendEmbed(channelID.String(), embed)
	return err
}

func nowPlayingEmbed(info *ports.NowPlayingInfo) *discordgo.MessageEmbed {
	source := domain.ParseTrackSource(info.SourceName)

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name: "Now Playing on " + source.DisplayName(),
		},
		Title: info.Title,
		URL:   info.URI,
		Color: source.Color(),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Artist",
				Value:  fallback(info.Artist, "Unknown"),
				Inline: true,
			},
			{
				Name:   "Duration",
				Value:  info.Duration,
				Inline: true,
			},
			{
				Name:   "Volume",
				Value:  fmt.Sprintf("%d%%", info.VolumePercent),
				Inline: true,
			},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text:    fmt.Sprintf("Requested by %s", info.RequesterName),
			IconURL: info.RequesterAvatarURL,
		},
	}
	if !info.EnqueuedAt.IsZero() {
		embed.Timestamp = info.EnqueuedAt.UTC().Format(time.RFC3339)
	}
	return embed
}

// bestThumbnail upgrades YouTube artwork to the highest resolution that
// exists. Other sources keep the artwork reported by the resolver.
func (n *Notifier) bestThumbnail(source domain.TrackSource, uri, fallbackURL string) string {
	switch source {
	case domain.TrackSourceYouTube, domain.TrackSourceYouTubeMusic:
		if id := youTubeVideoID(uri); id != "" {
			return n.youTubeThumbnail(id, fallbackURL)
		}
	case domain.TrackSourceSoundCloud:
		// SoundCloud serves a larger variant of the same artwork.
		return strings.Replace(fallbackURL, "-large.", "-t500x500.", 1)
	}
	return fallbackURL
}

// youTubeThumbnail tries to find the highest quality YouTube thumbnail available.
func (n *Notifier) youTubeThumbnail(videoID, fallbackURL string) string {
	qualities := []string{"maxresdefault", "sddefault", "hqdefault", "mqdefault"}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, quality := range qualities {
		u := fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", videoID, quality)
		if n.urlExists(ctx, u) {
			return u
		}
	}

	return fallbackURL
}

// urlExists checks if a URL returns a successful response using a HEAD request.
func (n *Notifier) urlExists(ctx context.Context, u string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return false
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// youTubeVideoID extracts the video ID from watch, short and music URLs.
func youTubeVideoID(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	switch host := strings.TrimPrefix(u.Host, "www."); host {
	case "youtu.be":
		return strings.Trim(u.Path, "/")
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		if rest, ok := strings.CutPrefix(u.Path, "/shorts/"); ok {
			return rest
		}
	}
	return ""
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Ensure Notifier implements ports.NotificationSender.
var _ ports.NotificationSender = (*Notifier)(nil)
