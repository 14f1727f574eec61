package domain

import (
	"strconv"
	"strings"
)

// SearchSource represents the yt-dlp search prefix used for plain terms.
type SearchSource string

const (
	// SourceSoundCloud searches SoundCloud.
	SourceSoundCloud SearchSource = "scsearch"
	// SourceYouTube searches YouTube.
	SourceYouTube SearchSource = "ytsearch"
	// SourceYouTubeMusic searches YouTube Music.
	SourceYouTubeMusic SearchSource = "ytmsearch"
	// SourceDirect indicates a direct URL (no search prefix).
	SourceDirect SearchSource = ""
)

// ParseSearchSource converts user/config input to a SearchSource.
// Unknown values fall back to SoundCloud.
func ParseSearchSource(s string) SearchSource {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ytsearch", "youtube", "yt":
		return SourceYouTube
	case "ytmsearch", "ytmusic", "youtube_music", "ytm":
		return SourceYouTubeMusic
	default:
		return SourceSoundCloud
	}
}

// SearchQuery represents a query for resolving or searching tracks.
type SearchQuery struct {
	Query  string       // The search term or URL
	Source SearchSource // The search source
	IsURL  bool         // Whether the query is a direct URL
}

// NewSearchQuery creates a SearchQuery from user input.
// URLs are used as-is; anything else is searched on source.
func NewSearchQuery(input string, source SearchSource) *SearchQuery {
	input = strings.TrimSpace(input)

	if isURL(input) {
		return &SearchQuery{
			Query:  input,
			Source: SourceDirect,
			IsURL:  true,
		}
	}

	if source == SourceDirect {
		source = SourceSoundCloud
	}

	return &SearchQuery{
		Query:  input,
		Source: source,
		IsURL:  false,
	}
}

// YtdlpQuery returns the argument passed to yt-dlp, asking for at most
// limit results when the query is a search.
func (q *SearchQuery) YtdlpQuery(limit int) string {
	if q.IsURL {
		return q.Query
	}
	if limit < 1 {
		limit = 1
	}
	return string(q.Source) + strconv.Itoa(limit) + ":" + q.Query
}

// IsValid returns true if the query is not empty.
func (q *SearchQuery) IsValid() bool {
	return q.Query != ""
}

// ParseQueuePosition reports whether input is a bare queue position such
// as "3", as accepted by /play.
func ParseQueuePosition(input string) (int, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, false
	}
	for _, r := range input {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(input)
	if err != nil {
		return 0, false
	}
	return n, true
}

// isURL checks if the input looks like a URL.
func isURL(input string) bool {
	return strings.HasPrefix(input, "http://") ||
		strings.HasPrefix(input, "https://") ||
		strings.HasPrefix(input, "www.")
}
