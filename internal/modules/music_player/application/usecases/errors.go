package usecases

import (
	"errors"

	"github.com/sglre6355/melodybot/internal/modules/music_player/domain"
)

// Errors returned by the music player use cases.
var (
	// ErrNotConnected is returned when an operation requires the bot to be in a voice channel.
	ErrNotConnected = domain.ErrNotConnected

	// ErrResolutionFailed is returned when a query cannot be turned into a playable track.
	ErrResolutionFailed = domain.ErrResolutionFailed

	// ErrEmptyQueue is returned when the queue has no pending tracks.
	ErrEmptyQueue = domain.ErrEmptyQueue

	// ErrInvalidIndex is returned when an invalid queue position is specified.
	ErrInvalidIndex = domain.ErrInvalidIndex

	// ErrInvalidState is returned when the player is in the wrong state for the operation.
	ErrInvalidState = domain.ErrInvalidState

	// ErrVolumeOutOfRange is returned when a volume percentage is out of bounds.
	ErrVolumeOutOfRange = domain.ErrVolumeOutOfRange

	// ErrUserNotInVoice is returned when the user is not in a voice channel.
	ErrUserNotInVoice = errors.New("you must be in a voice channel")

	// ErrNoResults is returned when a search yields no results.
	ErrNoResults = errors.New("no results found")

	// ErrSelectionExpired is returned when a selection prompt no longer exists.
	ErrSelectionExpired = errors.New("this selection has expired")

	// ErrNotRequester is returned when someone other than the requester picks from a prompt.
	ErrNotRequester = errors.New("only the user who searched can pick a track")

	// ErrUnsupportedSource is returned when no searcher is registered for a source.
	ErrUnsupportedSource = errors.New("searching this source is not supported")

	// ErrControllerClosed is returned after the controller has been shut down.
	ErrControllerClosed = errors.New("music player is shutting down")
)

// Specific invalid-state errors.
var (
	ErrNothingPlaying = domain.ErrNothingPlaying
	ErrAlreadyPaused  = domain.ErrAlreadyPaused
	ErrNotPaused      = domain.ErrNotPaused

	// ErrMissingPermission is returned when the caller lacks a required guild permission.
	ErrMissingPermission = errors.New("you do not have permission to do that")
)
