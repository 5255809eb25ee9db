package pipeline

import "errors"

var (
	// ErrUnknownStatus is returned for a status outside the defined set.
	ErrUnknownStatus = errors.New("unknown pipeline status")

	// ErrInvalidTransition is returned for an edge not in the transition table.
	ErrInvalidTransition = errors.New("invalid pipeline transition")

	// ErrPrecondition marks a structural stage failure (missing artifact,
	// empty required field). Not retried automatically: the topic goes to
	// needs_review until a human intervenes.
	ErrPrecondition = errors.New("stage precondition not met")

	// ErrStatusConflict is returned by TopicStore.TransitionStatus when the
	// topic is no longer in the expected status. A concurrent run claimed it.
	ErrStatusConflict = errors.New("topic status changed concurrently")
)
