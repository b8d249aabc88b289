package models

import "errors"

// Sentinel errors shared across services and handlers. Handlers map these
// to HTTP status codes with errors.Is.
var (
	// ErrUnitLocked means the client tried to complete a unit whose
	// predecessor is not done yet. Recoverable by refetching unlock state.
	ErrUnitLocked = errors.New("unit is locked: previous unit not completed")

	// ErrInsufficientBalance means a spend would drive the coin balance
	// below zero. The balance is left untouched.
	ErrInsufficientBalance = errors.New("insufficient coin balance")

	// ErrConflict is an optimistic-concurrency collision on save.
	// The service retries internally a bounded number of times.
	ErrConflict = errors.New("progression record changed concurrently")

	// ErrMalformedContent means a course/quiz/achievement definition failed
	// invariant checks. Never ignored silently.
	ErrMalformedContent = errors.New("malformed content definition")

	ErrRecordNotFound = errors.New("progression record not found")
	ErrUnknownCourse  = errors.New("unknown course")
	ErrUnknownUnit    = errors.New("unknown unit")
	ErrUnknownQuiz    = errors.New("unknown quiz")

	// ErrAnswerCountMismatch means a quiz submission does not align with the
	// question list.
	ErrAnswerCountMismatch = errors.New("answer count does not match question count")
)
