package session

import (
	"errors"
	"fmt"
)

// ErrSessionState marks programming-contract violations: operations invoked
// out of order. Callers should surface these, not swallow them.
var ErrSessionState = errors.New("session state error")

var (
	ErrNotStarted      = fmt.Errorf("%w: no active session", ErrSessionState)
	ErrEmptyTranscript = fmt.Errorf("%w: cannot end a session with an empty transcript", ErrSessionState)
)
