package domain

import "slices"

// PlaybackQueue holds the tracks waiting to be played in a guild.
// The track that is currently playing is never part of the queue: it is
// removed when playback begins.
// Positions in the public API are 1-based, matching what users see.
type PlaybackQueue struct {
	tracks []Track
}

// NewPlaybackQueue creates a new empty PlaybackQueue.
func NewPlaybackQueue() PlaybackQueue {
	return PlaybackQueue{
		tracks: make([]Track, 0),
	}
}

// Len returns the number of pending tracks.
func (q *PlaybackQueue) Len() int {
	return len(q.tracks)
}

// IsEmpty returns true if there are no pending tracks.
func (q *PlaybackQueue) IsEmpty() bool {
	return q.Len() == 0
}

func (q *PlaybackQueue) isValidPosition(position int) bool {
	return 1 <= position && position <= q.Len()
}

// Enqueue appends a track to the tail of the queue.
func (q *PlaybackQueue) Enqueue(track Track) {
	q.tracks = append(q.tracks, track)
}

// PlayNext moves the track at the given position to the head of the queue
// and returns it. It does not affect the track currently playing.
func (q *PlaybackQueue) PlayNext(position int) (Track, error) {
	if !q.isValidPosition(position) {
		return Track{}, ErrInvalidIndex
	}

	index := position - 1
	track := q.tracks[index]

	// Shift everything before index one slot to the right.
	copy(q.tracks[1:index+1], q.tracks[:index])
	q.tracks[0] = track

	return track, nil
}

// PopHead removes and returns the first track.
func (q *PlaybackQueue) PopHead() (Track, error) {
	if q.IsEmpty() {
		return Track{}, ErrEmptyQueue
	}

	track := q.tracks[0]
	q.tracks[0] = Track{}
	q.tracks = q.tracks[1:]

	return track, nil
}

// Remove removes and returns the track at the given position.
func (q *PlaybackQueue) Remove(position int) (Track, error) {
	if !q.isValidPosition(position) {
		return Track{}, ErrInvalidIndex
	}

	index := position - 1
	track := q.tracks[index]
	q.tracks = slices.Delete(q.tracks, index, index+1)

	return track, nil
}

// Clear removes all pending tracks and returns how many were removed.
func (q *PlaybackQueue) Clear() int {
	n := q.Len()
	q.tracks = make([]Track, 0)
	return n
}

// Snapshot returns a copy of the pending tracks in play order.
func (q *PlaybackQueue) Snapshot() []Track {
	result := make([]Track, q.Len())
	copy(result, q.tracks)
	return result
}
