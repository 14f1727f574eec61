package domain

import (
	"errors"
	"fmt"
)

// Playback errors. Messages are shown to users as-is.
var (
	// ErrResolutionFailed is returned when a term or URL cannot be turned into a playable stream.
	ErrResolutionFailed = errors.New("failed to load the track")

	// ErrEmptyQueue is returned when the queue has no pending tracks.
	ErrEmptyQueue = errors.New("the queue is empty")

	// ErrInvalidIndex is returned when a queue position is out of range.
	ErrInvalidIndex = errors.New("invalid queue position")

	// ErrInvalidState is returned when an operation is not valid in the current playback state.
	ErrInvalidState = errors.New("not possible right now")

	// ErrNotConnected is returned when an operation requires a voice connection.
	ErrNotConnected = errors.New("not connected to a voice channel")

	// ErrVolumeOutOfRange is returned when a volume percentage is outside its allowed range.
	ErrVolumeOutOfRange = errors.New("volume out of range")
)

// Specific invalid-state errors.
var (
	ErrNothingPlaying = fmt.Errorf("%w: nothing is currently playing", ErrInvalidState)
	ErrAlreadyPaused  = fmt.Errorf("%w: playback is already paused", ErrInvalidState)
	ErrNotPaused      = fmt.Errorf("%w: playback is not paused", ErrInvalidState)
)
