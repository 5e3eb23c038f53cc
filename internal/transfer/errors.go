package transfer

import (
	"errors"
	"strconv"
)

// Validation errors surfaced to the API layer. Order of checks in the engine
// determines which of these wins when several apply at once.
var (
	ErrSenderNotFound   = errors.New("sender account not found")
	ErrReceiverNotFound = errors.New("receiver account not found")
	ErrSameAccount      = errors.New("sender and receiver accounts must differ")
)

// ErrTransferAborted indicates the atomic phase did not complete: the commit
// conflicted on every attempt, or the store failed in a way that leaves the
// outcome unconfirmed. The caller must check the transaction history before
// retrying rather than resubmitting blindly.
type ErrTransferAborted struct {
	Attempts int
	Cause    error
}

func (e ErrTransferAborted) Error() string {
	msg := "transfer aborted after " + strconv.Itoa(e.Attempts) + " attempts"
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e ErrTransferAborted) Unwrap() error {
	return e.Cause
}

// Is matches any ErrTransferAborted regardless of attempt count or cause
func (e ErrTransferAborted) Is(target error) bool {
	_, ok := target.(ErrTransferAborted)
	return ok
}
