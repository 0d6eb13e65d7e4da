package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierOrdering(t *testing.T) {
	assert.Equal(t, 0, TierAmateur.Rank())
	assert.Equal(t, 4, TierChampion.Rank())
	assert.True(t, TierPro.AtLeast(TierSemiPro))
	assert.False(t, TierAmateur.AtLeast(TierPro))
	assert.Equal(t, -1, Tier("Legend").Rank())
}

func TestParseEnumsAreCaseInsensitive(t *testing.T) {
	wc, err := ParseWeightClass(" light heavyweight ")
	require.NoError(t, err)
	assert.Equal(t, LightHeavyweight, wc)

	m, err := ParseFightMethod("tko")
	require.NoError(t, err)
	assert.Equal(t, MethodTKO, m)
}

func TestParseEnumRejectsUnknown(t *testing.T) {
	_, err := ParseFightResult("Forfeit")
	require.Error(t, err)
	assert.Equal(t, "must be one of Win, Loss, Draw", err.Error())
}

func TestKnockoutMethods(t *testing.T) {
	for _, m := range FightMethods {
		assert.Equal(t, m == MethodKO || m == MethodTKO, m.IsKnockout(), m)
	}
}

func TestDisputeTransitions(t *testing.T) {
	assert.True(t, DisputePending.CanTransitionTo(DisputeInReview))
	assert.True(t, DisputePending.CanTransitionTo(DisputeResolved))
	assert.True(t, DisputeInReview.CanTransitionTo(DisputeDismissed))
	assert.False(t, DisputeInReview.CanTransitionTo(DisputePending))
	assert.False(t, DisputeResolved.CanTransitionTo(DisputeDismissed))
	assert.False(t, DisputeDismissed.CanTransitionTo(DisputeInReview))
}

func TestTournamentAcceptsParticipants(t *testing.T) {
	assert.True(t, TournamentUpcoming.AcceptsParticipants())
	assert.False(t, TournamentActive.AcceptsParticipants())
	assert.False(t, TournamentCancelled.AcceptsParticipants())
}
