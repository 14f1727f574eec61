package infrastructure

import (
	"context"
	"time"

	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
	"github.com/sglre6355/melodybot/internal/modules/music_player/application/ports"
)

// YouTubeSearcher searches YouTube through its web API without spawning yt-dlp.
// It is fast enough for autocomplete.
type YouTubeSearcher struct {
	client *ytsearch.Client
}

// NewYouTubeSearcher creates a new YouTubeSearcher.
func NewYouTubeSearcher() *YouTubeSearcher {
	return &YouTubeSearcher{client: ytsearch.NewClient(nil)}
}

// Search returns at most limit videos for query.
func (s *YouTubeSearcher) Search(ctx context.Context, query string, limit int) ([]ports.SearchCandidate, error) {
	res, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	out := make([]ports.SearchCandidate, 0, limit)
	for _, v := range res.Results {
		if len(out) == limit {
			break
		}
		if v.VideoID == "" {
			continue
		}
		// Search results carry no reliable uploader or length; both are
		// filled in when the reference is resolved.
		out = append(out, ports.SearchCandidate{
			Title:      v.Title,
			Reference:  "https://www.youtube.com/watch?v=" + v.VideoID,
			ArtworkURL: "https://i.ytimg.com/vi/" + v.VideoID + "/hqdefault.jpg",
		})
	}
	return out, nil
}

// YouTubeMusicSearcher searches YouTube Music tracks.
type YouTubeMusicSearcher struct{}

// NewYouTubeMusicSearcher creates a new YouTubeMusicSearcher.
func NewYouTubeMusicSearcher() *YouTubeMusicSearcher {
	return &YouTubeMusicSearcher{}
}

// Search returns at most limit tracks for query. The ytmusic client takes
// no context, so cancellation only stops waiting for it.
func (s *YouTubeMusicSearcher) Search(ctx context.Context, query string, limit int) ([]ports.SearchCandidate, error) {
	type result struct {
		tracks []*ytmusic.TrackItem
		err    error
	}
	done := make(chan result, 1)
	go func() {
		r, err := ytmusic.TrackSearch(query).Next()
		if err != nil {
			done <- result{err: err}
			return
		}
		done <- result{tracks: r.Tracks}
	}()

	var r result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r = <-done:
	}
	if r.err != nil {
		return nil, r.err
	}

	out := make([]ports.SearchCandidate, 0, limit)
	for _, t := range r.tracks {
		if len(out) == limit {
			break
		}
		if t.VideoID == "" {
			continue
		}
		c := ports.SearchCandidate{
			Title:     t.Title,
			Reference: "https://music.youtube.com/watch?v=" + t.VideoID,
			Duration:  time.Duration(t.Duration) * time.Second,
		}
		if len(t.Artists) > 0 {
			c.Artist = t.Artists[0].Name
		}
		if len(t.Thumbnails) > 0 {
			c.ArtworkURL = t.Thumbnails[len(t.Thumbnails)-1].URL
		}
		out = append(out, c)
	}
	return out, nil
}

// Ensure the searchers implement ports.TrackSearcher.
var (
	_ ports.TrackSearcher = (*YouTubeSearcher)(nil)
	_ ports.TrackSearcher = (*YouTubeMusicSearcher)(nil)
)
