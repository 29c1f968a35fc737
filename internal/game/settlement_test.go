package game

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettle(t *testing.T) {
	cases := []struct {
		name     string
		red      int64
		blue     int64
		winner   Side
		feeBps   int64
		expected Settlement
	}{
		{"even pools", coin, coin, SideRed, 200, Settlement{RewardBase: coin, RewardAmount: 1_960_000_000, Treasury: 40_000_000}},
		{"no winners", 0, 5 * coin, SideRed, 200, Settlement{Treasury: 5 * coin}},
		{"only winners", 3 * coin, 0, SideRed, 200, Settlement{RewardBase: 3 * coin, RewardAmount: 2_940_000_000, Treasury: 60_000_000}},
		{"zero fee", 7, 3, SideBlue, 0, Settlement{RewardBase: 3, RewardAmount: 10}},
		{"fee floors", 33, 0, SideRed, 200, Settlement{RewardBase: 33, RewardAmount: 33, Treasury: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Settle(Epoch{RedPool: tc.red, BluePool: tc.blue}, tc.winner, tc.feeBps)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, tc.red+tc.blue, got.RewardAmount+got.Treasury)
		})
	}
}

func TestPayoutNeverExceedsRewardPool(t *testing.T) {
	ep := Epoch{RedPool: 10, BluePool: 3}
	s, err := Settle(ep, SideBlue, 200)
	require.NoError(t, err)
	ep.RewardBase, ep.RewardAmount = s.RewardBase, s.RewardAmount

	var paid int64
	for _, stake := range []int64{1, 1, 1} {
		p, err := Payout(ep, stake)
		require.NoError(t, err)
		assert.Equal(t, int64(4), p)
		paid += p
	}
	assert.LessOrEqual(t, paid, s.RewardAmount)
}

func TestPayoutLargeStakes(t *testing.T) {
	ep := Epoch{RewardBase: math.MaxInt64 / 2, RewardAmount: math.MaxInt64 - 1}
	p, err := Payout(ep, math.MaxInt64/4)
	require.NoError(t, err)
	assert.Greater(t, p, int64(0))

	_, err = mulDiv(math.MaxInt64, math.MaxInt64, 1)
	assert.ErrorIs(t, err, errAmountOverflow)
}

func TestAddAmountOverflow(t *testing.T) {
	_, err := addAmount(math.MaxInt64, 1)
	assert.ErrorIs(t, err, errAmountOverflow)

	n, err := addAmount(2, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}
