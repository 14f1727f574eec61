package usecases

import (
	"context"
	"fmt"

	"github.com/sglre6355/melodybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/melodybot/internal/modules/music_player/domain"
)

// Search result limits.
const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 25
)

// SearchService lists candidates from the configured searchers.
type SearchService struct {
	searchers     map[domain.SearchSource]ports.TrackSearcher
	defaultSource domain.SearchSource
	limit         int
}

// NewSearchService creates a new SearchService. limit is clamped to
// [1, MaxSearchLimit]; zero selects DefaultSearchLimit.
func NewSearchService(
	searchers map[domain.SearchSource]ports.TrackSearcher,
	defaultSource domain.SearchSource,
	limit int,
) *SearchService {
	return &SearchService{
		searchers:     searchers,
		defaultSource: defaultSource,
		limit:         clampLimit(limit),
	}
}

// Search runs the query against the searcher for input.Source.
func (s *SearchService) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	source := input.Source
	if source == domain.SourceDirect {
		source = s.defaultSource
	}

	searcher, ok := s.searchers[source]
	if !ok {
		return nil, ErrUnsupportedSource
	}

	limit := s.limit
	if input.Limit > 0 {
		limit = clampLimit(input.Limit)
	}

	candidates, err := searcher.Search(ctx, input.Query, limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoResults
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return &SearchOutput{Source: source, Candidates: candidates}, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultSearchLimit
	case limit > MaxSearchLimit:
		return MaxSearchLimit
	default:
		return limit
	}
}
