package ports

import (
	"context"
	"time"

	"github.com/sglre6355/melodybot/internal/modules/music_player/domain"
)

// ResolvedMedia describes a playable stream.
// StreamURL is short-lived and must not be cached past first use;
// CanonicalRef is stable and is what gets stored in the queue.
type ResolvedMedia struct {
	Title        string
	Artist       string
	CanonicalRef string
	StreamURL    string
	ArtworkURL   string
	SourceName   string // extractor name, e.g. "soundcloud"
	Duration     time.Duration
	IsLive       bool
}

// SearchCandidate is a single search result offered to the user.
type SearchCandidate struct {
	Title      string
	Artist     string
	Reference  string // canonical URL passed back to Resolve when picked
	ArtworkURL string
	Duration   time.Duration
	IsLive     bool
}

// MediaResolver turns search terms and URLs into playable streams.
// Implementations perform network I/O and may be slow.
type MediaResolver interface {
	// Resolve returns a fresh stream descriptor for a term or URL.
	Resolve(ctx context.Context, query *domain.SearchQuery) (*ResolvedMedia, error)
}

// TrackSearcher lists candidates for a search term.
type TrackSearcher interface {
	// Search returns at most limit candidates.
	Search(ctx context.Context, query string, limit int) ([]SearchCandidate, error)
}
