package sync

import (
	"errors"
	"testing"

	"schoolsync_go/services/portal"
)

func TestOutcomeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Outcome
	}{
		{"no error", nil, OutcomeSuccess},
		{"timeout retries", &portal.SyncError{Kind: portal.KindTimeout, Msg: "t"}, OutcomeRetry},
		{"network retries", &portal.SyncError{Kind: portal.KindNetwork, Msg: "n"}, OutcomeRetry},
		{"auth retries", &portal.SyncError{Kind: portal.KindAuth, Msg: "a"}, OutcomeRetry},
		{"credentials retries", &portal.SyncError{Kind: portal.KindCredentials, Msg: "c"}, OutcomeRetry},
		{"parse fails", &portal.SyncError{Kind: portal.KindParse, Msg: "p"}, OutcomeFailure},
		{"not configured retries", &portal.SyncError{Kind: portal.KindNotConfigured, Msg: "nc"}, OutcomeRetry},
		{"foreign error retries", errors.New("boom"), OutcomeRetry},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := outcomeFor(tc.err); got != tc.want {
				t.Errorf("outcomeFor(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}
