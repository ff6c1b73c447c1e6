package conversation

import "errors"

var (
	// ErrStateNotFound is returned when a conversation has no stored state
	ErrStateNotFound = errors.New("conversation state not found")

	// ErrEmptyMessage is returned when a turn carries no user text
	ErrEmptyMessage = errors.New("message is empty")

	// ErrClassifierFailed wraps classifier transport or parse failures;
	// gates treat it as "allow" per the fail-open policy
	ErrClassifierFailed = errors.New("classifier failed")

	// ErrQueueClosed is returned when enqueueing after shutdown
	ErrQueueClosed = errors.New("queue closed")
)
