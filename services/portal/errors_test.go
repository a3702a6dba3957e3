package portal

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrKind(t *testing.T) {
	err := &SyncError{Kind: KindTimeout, Msg: "fetch timed out"}
	if got := ErrKind(err); got != KindTimeout {
		t.Errorf("ErrKind = %q, want %q", got, KindTimeout)
	}

	wrapped := fmt.Errorf("sync: %w", err)
	if got := ErrKind(wrapped); got != KindTimeout {
		t.Errorf("ErrKind through wrapping = %q, want %q", got, KindTimeout)
	}

	if got := ErrKind(errors.New("plain")); got != "" {
		t.Errorf("ErrKind of foreign error = %q, want empty", got)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		kind Kind
		want bool
	}{
		{KindTimeout, true},
		{KindNetwork, true},
		{KindServer, true},
		{KindAuth, true},
		// fixable by the operator without restarting sync
		{KindCredentials, true},
		{KindNotConfigured, true},
		// a markup change fails the same way on every attempt
		{KindParse, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(string(tc.kind), func(t *testing.T) {
			err := &SyncError{Kind: tc.kind, Msg: "x"}
			if got := Retryable(err); got != tc.want {
				t.Errorf("Retryable(%s) = %v, want %v", tc.kind, got, tc.want)
			}
		})
	}

	if !Retryable(errors.New("plain")) {
		t.Error("errors of unknown provenance are assumed transient")
	}
}

func TestSyncErrorMessage(t *testing.T) {
	base := errors.New("connection refused")
	err := &SyncError{Kind: KindNetwork, Msg: "fetching /messages failed", Err: base}
	if !errors.Is(err, base) {
		t.Error("wrapped cause must be reachable via errors.Is")
	}
	want := "network: fetching /messages failed: connection refused"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
