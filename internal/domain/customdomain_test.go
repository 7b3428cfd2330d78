package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainStatusCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from DomainStatus
		to   DomainStatus
		want bool
	}{
		{name: "pending to verifying", from: DomainStatusPending, to: DomainStatusVerifying, want: true},
		{name: "pending to failed", from: DomainStatusPending, to: DomainStatusFailed, want: true},
		{name: "pending to verified is illegal", from: DomainStatusPending, to: DomainStatusVerified, want: false},
		{name: "verifying to verified", from: DomainStatusVerifying, to: DomainStatusVerified, want: true},
		{name: "verifying back to pending on challenge", from: DomainStatusVerifying, to: DomainStatusPending, want: true},
		{name: "verified to pending is illegal", from: DomainStatusVerified, to: DomainStatusPending, want: false},
		{name: "verified to verifying is illegal", from: DomainStatusVerified, to: DomainStatusVerifying, want: false},
		{name: "failed to verifying on retry", from: DomainStatusFailed, to: DomainStatusVerifying, want: true},
		{name: "failed to verified is illegal", from: DomainStatusFailed, to: DomainStatusVerified, want: false},
		{name: "same state is a no-op", from: DomainStatusVerified, to: DomainStatusVerified, want: true},
		{name: "disabled reachable from pending", from: DomainStatusPending, to: DomainStatusDisabled, want: true},
		{name: "disabled reachable from verifying", from: DomainStatusVerifying, to: DomainStatusDisabled, want: true},
		{name: "disabled reachable from verified", from: DomainStatusVerified, to: DomainStatusDisabled, want: true},
		{name: "disabled reachable from failed", from: DomainStatusFailed, to: DomainStatusDisabled, want: true},
		{name: "disabled re-enables to pending", from: DomainStatusDisabled, to: DomainStatusPending, want: true},
		{name: "disabled to verified is illegal", from: DomainStatusDisabled, to: DomainStatusVerified, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.from.CanTransition(tc.to))
		})
	}
}

func TestCustomDomainTransition(t *testing.T) {
	t.Parallel()

	t.Run("legal move updates status", func(t *testing.T) {
		t.Parallel()

		d := &CustomDomain{FullDomain: "coach-a.com", Status: DomainStatusPending}
		require.NoError(t, d.Transition(DomainStatusVerifying))
		assert.Equal(t, DomainStatusVerifying, d.Status)
	})

	t.Run("illegal move leaves status untouched", func(t *testing.T) {
		t.Parallel()

		d := &CustomDomain{FullDomain: "coach-a.com", Status: DomainStatusPending}
		err := d.Transition(DomainStatusVerified)
		require.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, DomainStatusPending, d.Status)
	})
}
