package domain

import "strings"

// TrackSource represents the origin platform of a track.
type TrackSource string

const (
	TrackSourceSoundCloud   TrackSource = "soundcloud"
	TrackSourceYouTube      TrackSource = "youtube"
	TrackSourceYouTubeMusic TrackSource = "youtube_music"
	TrackSourceBandcamp     TrackSource = "bandcamp"
	TrackSourceOther        TrackSource = "other"
)

// ParseTrackSource converts an extractor name (as reported by yt-dlp) to a TrackSource.
func ParseTrackSource(name string) TrackSource {
	switch n := strings.ToLower(name); {
	case strings.HasPrefix(n, "soundcloud"):
		return TrackSourceSoundCloud
	case strings.HasPrefix(n, "youtube:music"), n == "youtube_music":
		return TrackSourceYouTubeMusic
	case strings.HasPrefix(n, "youtube"):
		return TrackSourceYouTube
	case strings.HasPrefix(n, "bandcamp"):
		return TrackSourceBandcamp
	default:
		return TrackSourceOther
	}
}

// Color returns the embed accent color for the source.
func (s TrackSource) Color() int {
	switch s {
	case TrackSourceSoundCloud:
		return 0xFF5500
	case TrackSourceYouTube, TrackSourceYouTubeMusic:
		return 0xFF0000
	case TrackSourceBandcamp:
		return 0x1DA0C3
	default:
		return 0x5865F2
	}
}

// DisplayName returns a human-readable platform name.
func (s TrackSource) DisplayName() string {
	switch s {
	case TrackSourceSoundCloud:
		return "SoundCloud"
	case TrackSourceYouTube:
		return "YouTube"
	case TrackSourceYouTubeMusic:
		return "YouTube Music"
	case TrackSourceBandcamp:
		return "Bandcamp"
	default:
		return "Web"
	}
}
