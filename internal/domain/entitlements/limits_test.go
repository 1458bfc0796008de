package entitlements

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pipevault/internal/domain/plans"
)

func TestLimitsFor(t *testing.T) {
	free := LimitsFor(plans.TierFree)
	require.Equal(t, Limits{Pipes: 5, Tobaccos: 10, PhotosPerItem: 1, SmokingLogs: 10}, free)

	for _, tier := range []plans.Tier{plans.TierPremium, plans.TierPro} {
		l := LimitsFor(tier)
		require.Equal(t, Unlimited, l.Pipes)
		require.Equal(t, Unlimited, l.Tobaccos)
		require.Equal(t, Unlimited, l.PhotosPerItem)
		require.Equal(t, Unlimited, l.SmokingLogs)
	}
}

func TestLimitsAllows(t *testing.T) {
	free := LimitsFor(plans.TierFree)
	require.True(t, free.Allows(ResourcePipes, 4))
	require.False(t, free.Allows(ResourcePipes, 5))
	require.True(t, free.Allows(ResourcePhotosPerItem, 0))
	require.False(t, free.Allows(ResourcePhotosPerItem, 1))
	require.False(t, free.Allows(Resource("cigars"), 0))

	pro := LimitsFor(plans.TierPro)
	require.True(t, pro.Allows(ResourceSmokingLogs, 1_000_000))

	_, ok := pro.For(Resource("cigars"))
	require.False(t, ok)
}
