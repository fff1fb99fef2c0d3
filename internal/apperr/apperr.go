// Package apperr defines the domain error taxonomy. Handlers map these to
// HTTP statuses in one place; storage-level conflicts are remapped to the
// same sentinels the application-level pre-checks produce, so callers see a
// single taxonomy regardless of which race path rejected the operation.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrActivePollExists rejects poll creation while another poll is active.
	ErrActivePollExists = errors.New("an active poll already exists")

	// ErrPollNotFound is returned when the target poll does not exist.
	ErrPollNotFound = errors.New("poll not found")

	// ErrPollNotActive rejects operations that require an active poll.
	ErrPollNotActive = errors.New("poll is not active")

	// ErrInvalidOption rejects votes for options outside the poll.
	ErrInvalidOption = errors.New("invalid poll option")

	// ErrDuplicateVote rejects a second vote from the same (poll, session) pair.
	ErrDuplicateVote = errors.New("already voted in this poll")

	// ErrStudentBlocked rejects gated actions from a removed student.
	ErrStudentBlocked = errors.New("student removed from poll")

	// ErrInvalidInput tags request-validation rejections. Construct them
	// with Invalidf so the specific message reaches the client.
	ErrInvalidInput = errors.New("invalid input")
)

// Invalidf builds a validation error carrying its own message that still
// matches ErrInvalidInput under errors.Is.
func Invalidf(format string, args ...any) error {
	return &invalidInput{msg: fmt.Sprintf(format, args...)}
}

type invalidInput struct{ msg string }

func (e *invalidInput) Error() string { return e.msg }

func (e *invalidInput) Is(target error) bool { return target == ErrInvalidInput }

// IsDomain reports whether err belongs to the domain taxonomy, meaning it
// is safe to surface its message to a client.
func IsDomain(err error) bool {
	for _, sentinel := range []error{
		ErrActivePollExists,
		ErrPollNotFound,
		ErrPollNotActive,
		ErrInvalidOption,
		ErrDuplicateVote,
		ErrStudentBlocked,
		ErrInvalidInput,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
