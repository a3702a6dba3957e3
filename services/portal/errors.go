package portal

import (
	"errors"
	"fmt"
	"net"
)

// Kind discriminates sync failures so callers can decide between
// retrying, surfacing a credentials problem, or giving up.
type Kind string

const (
	KindNotConfigured Kind = "not_configured"
	KindCredentials   Kind = "credentials"
	KindAuth          Kind = "auth"
	KindTimeout       Kind = "timeout"
	KindNetwork       Kind = "network"
	KindServer        Kind = "server"
	KindParse         Kind = "parse"
)

// SyncError is the only error type the portal client returns.
type SyncError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *SyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// ErrKind extracts the failure kind, or "" for foreign errors.
func ErrKind(err error) Kind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// Retryable reports whether a later attempt can plausibly succeed.
// Credential and configuration problems count: an operator can fix
// them while the schedule keeps running, so sync is never permanently
// disabled over an auth failure. Only a markup change is terminal;
// errors of unknown provenance are assumed transient.
func Retryable(err error) bool {
	return ErrKind(err) != KindParse
}

// wrapTransport maps an http.Client error to a timeout or network kind.
func wrapTransport(op string, err error) *SyncError {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &SyncError{Kind: KindTimeout, Msg: op + " timed out", Err: err}
	}
	return &SyncError{Kind: KindNetwork, Msg: op + " failed", Err: err}
}
