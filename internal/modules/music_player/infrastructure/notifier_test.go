package infrastructure

import (
	"testing"
	"time"

	"github.com/sglre6355/melodybot/internal/modules/music_player/application/ports"
)

func TestYouTubeVideoID(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://music.youtube.com/watch?v=abc123&list=RD", "abc123"},
		{"https://www.youtube.com/shorts/xyz", "xyz"},
		{"https://soundcloud.com/artist/track", ""},
		{"::not a url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			if got := youTubeVideoID(tt.uri); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNowPlayingEmbed(t *testing.T) {
	info := &ports.NowPlayingInfo{
		Title:         "Song",
		Duration:      "3:00",
		URI:           "https://soundcloud.com/artist/song",
		SourceName:    "soundcloud",
		VolumePercent: 30,
		RequesterName: "Nick",
		EnqueuedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	embed := nowPlayingEmbed(info)

	if embed.Author.Name != "Now Playing on SoundCloud" {
		t.Errorf("unexpected author %q", embed.Author.Name)
	}
	if embed.Color != 0xFF5500 {
		t.Errorf("expected SoundCloud color, got %#x", embed.Color)
	}
	if embed.Fields[0].Value != "Unknown" {
		t.Errorf("expected unknown artist placeholder, got %q", embed.Fields[0].Value)
	}
	if embed.Fields[2].Value != "30%" {
		t.Errorf("expected volume 30%%, got %q", embed.Fields[2].Value)
	}
	if embed.Footer.Text != "Requested by Nick" {
		t.Errorf("unexpected footer %q", embed.Footer.Text)
	}
	if embed.Timestamp != "2024-01-02T03:04:05Z" {
		t.Errorf("unexpected timestamp %q", embed.Timestamp)
	}
}
