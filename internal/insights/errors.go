package insights

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the sentinel for caller-fault failures: empty stack,
// unnamed entries, out-of-range severity. Handlers match it with errors.Is
// and translate it to 400 — no outbound call has been made when it fires.
var ErrInvalidInput = errors.New("invalid input")

// InputError wraps ErrInvalidInput with the specific reason and, where it
// applies, the offending stack index.
type InputError struct {
	Reason string
	Index  int // stack index the reason refers to; meaningful only for per-entry failures
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidInput, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }
