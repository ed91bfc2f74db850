package storyboard

import "errors"

var (
	// ErrUnbound is returned by mutating actions when no storyboard id is bound.
	// No remote call is made and local state is untouched.
	ErrUnbound = errors.New("storyboard: no storyboard bound")

	ErrSceneNotFound = errors.New("storyboard: scene not found")
	ErrShotNotFound  = errors.New("storyboard: shot not found")

	// ErrStaleLoad marks a load whose response arrived after a newer load or reset.
	ErrStaleLoad = errors.New("storyboard: load superseded")

	ErrEmptyPrompt     = errors.New("storyboard: prompt must not be empty")
	ErrInvalidDuration = errors.New("storyboard: duration out of range")
)
