package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/ports"
	"github.com/sglre6355/melodybot/internal/modules/music_player/domain"
	"golang.org/x/time/rate"
)

// DefaultYtdlpFormat prefers audio-only formats that need no video decoding.
const DefaultYtdlpFormat = "bestaudio[ext=opus]/bestaudio[ext=webm]/bestaudio/best"

const (
	resolveTemplate = "%(url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(webpage_url)s\t%(extractor)s\t%(thumbnail)s\t%(is_live)s"
	searchTemplate  = "%(url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(thumbnail)s"
)

// ErrNoMedia is returned when yt-dlp succeeds but prints nothing usable.
var ErrNoMedia = errors.New("yt-dlp returned no media")

// YtdlpConfig configures the yt-dlp backed resolver.
type YtdlpConfig struct {
	Path          string  // empty means yt-dlp from PATH
	Format        string  // yt-dlp format selector
	RatePerSecond float64 // invocations allowed per second
	Burst         int
}

// YtdlpResolver resolves terms and URLs by running yt-dlp. Invocations are
// throttled so bursts of commands do not get the bot rate limited upstream.
type YtdlpResolver struct {
	path    string
	format  string
	limiter *rate.Limiter
}

// NewYtdlpResolver creates a new YtdlpResolver.
func NewYtdlpResolver(config YtdlpConfig) *YtdlpResolver {
	if config.Format == "" {
		config.Format = DefaultYtdlpFormat
	}
	limit := rate.Inf
	if config.RatePerSecond > 0 {
		limit = rate.Limit(config.RatePerSecond)
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}

	return &YtdlpResolver{
		path:    config.Path,
		format:  config.Format,
		limiter: rate.NewLimiter(limit, config.Burst),
	}
}

func (r *YtdlpResolver) command() *ytdlp.Command {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings().
		IgnoreConfig()
	if r.path != "" {
		cmd.SetExecutable(r.path)
	}
	return cmd
}

// Resolve returns a fresh stream for a term (first search hit) or URL.
func (r *YtdlpResolver) Resolve(ctx context.Context, query *domain.SearchQuery) (*ports.ResolvedMedia, error) {
	if !query.IsValid() {
		return nil, ErrNoMedia
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := r.command().
		Format(r.format).
		NoPlaylist().
		SkipDownload().
		Print(resolveTemplate).
		Run(ctx, query.YtdlpQuery(1))
	if err != nil {
		return nil, fmt.Errorf("yt-dlp failed for %q: %w", query.Query, err)
	}

	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if media, ok := parseResolveLine(line); ok {
			return media, nil
		}
	}
	return nil, ErrNoMedia
}

// Searcher returns a TrackSearcher that runs yt-dlp searches on source.
func (r *YtdlpResolver) Searcher(source domain.SearchSource) ports.TrackSearcher {
	return &ytdlpSearcher{resolver: r, source: source}
}

type ytdlpSearcher struct {
	resolver *YtdlpResolver
	source   domain.SearchSource
}

func (s *ytdlpSearcher) Search(ctx context.Context, query string, limit int) ([]ports.SearchCandidate, error) {
	q := domain.NewSearchQuery(query, s.source)
	if !q.IsValid() {
		return nil, nil
	}
	if err := s.resolver.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := s.resolver.command().
		FlatPlaylist().
		PlaylistItems(fmt.Sprintf("1-%d", limit)).
		Print(searchTemplate).
		Run(ctx, q.YtdlpQuery(limit))
	if err != nil {
		return nil, fmt.Errorf("yt-dlp search failed for %q: %w", query, err)
	}

	return parseSearchLines(res.Stdout), nil
}

func parseResolveLine(line string) (*ports.ResolvedMedia, bool) {
	ps := strings.Split(line, "\t")
	if len(ps) < 8 || field(ps[0]) == "" {
		return nil, false
	}
	return &ports.ResolvedMedia{
		StreamURL:    ps[0],
		Title:        field(ps[1]),
		Artist:       field(ps[2]),
		Duration:     parseSeconds(ps[3]),
		CanonicalRef: field(ps[4]),
		SourceName:   field(ps[5]),
		ArtworkURL:   field(ps[6]),
		IsLive:       ps[7] == "True",
	}, true
}

func parseSearchLines(stdout string) []ports.SearchCandidate {
	var out []ports.SearchCandidate
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		ps := strings.Split(line, "\t")
		if len(ps) < 5 || field(ps[0]) == "" {
			continue
		}
		out = append(out, ports.SearchCandidate{
			Reference:  ps[0],
			Title:      field(ps[1]),
			Artist:     field(ps[2]),
			Duration:   parseSeconds(ps[3]),
			ArtworkURL: field(ps[4]),
		})
	}
	return out
}

// field maps yt-dlp's "NA" placeholder to an empty string.
func field(s string) string {
	s = strings.TrimSpace(s)
	if s == "NA" {
		return ""
	}
	return s
}

func parseSeconds(s string) time.Duration {
	d, err := time.ParseDuration(field(s) + "s")
	if err != nil {
		return 0
	}
	return d.Round(time.Second)
}

// Ensure YtdlpResolver implements ports.MediaResolver.
var _ ports.MediaResolver = (*YtdlpResolver)(nil)
