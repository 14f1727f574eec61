package domain

import (
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Track represents a queued or playing audio track.
// Tracks are treated as immutable once enqueued.
type Track struct {
	Title           string
	Artist          string
	SourceRef       string // canonical URL, stable across re-resolution
	Duration        time.Duration
	ArtworkURL      string
	SourceName      string // e.g. "soundcloud", "youtube"
	IsLive          bool
	RequesterID     snowflake.ID
	RequesterName   string
	OriginChannelID snowflake.ID // text channel the request came from
	EnqueuedAt      time.Time
}

// Source returns the parsed TrackSource for this track.
func (t *Track) Source() TrackSource {
	return ParseTrackSource(t.SourceName)
}

// IsValid returns true if the track has the minimum required fields.
func (t *Track) IsValid() bool {
	return t.SourceRef != "" && t.Title != ""
}

// FormattedDuration returns the duration as a human-readable string (m:ss or h:mm:ss).
func (t *Track) FormattedDuration() string {
	return FormatDuration(t.Duration, t.IsLive)
}

// FormatDuration renders d as m:ss or h:mm:ss, or "LIVE" for streams.
func FormatDuration(d time.Duration, live bool) string {
	if live {
		return "LIVE"
	}
	if d <= 0 {
		return "N/A"
	}

	totalSeconds := int(d.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return strconv.Itoa(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return strconv.Itoa(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
