package domain

import (
	"testing"
	"time"
)

func TestTrack_FormattedDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		isLive   bool
		expected string
	}{
		{"zero duration", 0, false, "N/A"},
		{"seconds only", 45 * time.Second, false, "0:45"},
		{"minutes and seconds", 3*time.Minute + 5*time.Second, false, "3:05"},
		{"over an hour", time.Hour + 2*time.Minute + 3*time.Second, false, "1:02:03"},
		{"live stream", 10 * time.Minute, true, "LIVE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track := &Track{Duration: tt.duration, IsLive: tt.isLive}
			if got := track.FormattedDuration(); got != tt.expected {
				t.Errorf("FormattedDuration() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestTrack_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		track Track
		want  bool
	}{
		{"complete", Track{Title: "Song", SourceRef: "https://soundcloud.com/a/b"}, true},
		{"missing title", Track{SourceRef: "https://soundcloud.com/a/b"}, false},
		{"missing reference", Track{Title: "Song"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.track.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestParseTrackSource(t *testing.T) {
	tests := map[string]TrackSource{
		"soundcloud":        TrackSourceSoundCloud,
		"SoundCloud:search": TrackSourceSoundCloud,
		"youtube":           TrackSourceYouTube,
		"youtube:tab":       TrackSourceYouTube,
		"youtube:music":     TrackSourceYouTubeMusic,
		"Bandcamp":          TrackSourceBandcamp,
		"generic":           TrackSourceOther,
	}

	for name, expected := range tests {
		if got := ParseTrackSource(name); got != expected {
			t.Errorf("ParseTrackSource(%q) = %q, expected %q", name, got, expected)
		}
	}
}
