package plans

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePaidTier(t *testing.T) {
	cases := []struct {
		in   string
		want Tier
		ok   bool
	}{
		{"pro", TierPro, true},
		{"  PRO ", TierPro, true},
		{"Premium", TierPremium, true},
		{"free", TierFree, false},
		{"", TierFree, false},
		{"enterprise", TierFree, false},
	}
	for _, tc := range cases {
		got, ok := ParsePaidTier(tc.in)
		require.Equal(t, tc.want, got, "input %q", tc.in)
		require.Equal(t, tc.ok, ok, "input %q", tc.in)
	}
}

func TestPlanTier(t *testing.T) {
	require.Equal(t, TierFree, PlanTier(nil))
	require.Equal(t, TierPro, PlanTier(&Plan{Tier: "Pro"}))
	// no inference from price
	require.Equal(t, TierFree, PlanTier(&Plan{PriceEUR: 999}))
}

func TestRank(t *testing.T) {
	require.Greater(t, Rank(TierPro), Rank(TierPremium))
	require.Greater(t, Rank(TierPremium), Rank(TierFree))
	require.True(t, IsKnownTier(" free"))
	require.False(t, IsKnownTier("gold"))
}
