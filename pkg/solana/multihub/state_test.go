package multihub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramState_RoundTrip(t *testing.T) {
	expected := ProgramState{
		Admin: mustBase58Decode("HFbUnVv4cestZrUDSx3o9zHWEcvx4Gw2AbHQ5nLhi36b"),
		MintA: mustBase58Decode("2BU1Xgyzqixhjaq9Pa5cNsaa1gSejLeNtDaDRv29qoZm"),
		MintB: mustBase58Decode("4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM"),
		Rates: RateParameters{
			LpContributionBps: 2000,
			AdminFeeBps:       10,
			CashbackBps:       500,
			SwapFeeBps:        30,
			ReferralBps:       50,
		},
	}

	data := expected.Marshal()
	require.Len(t, data, ProgramStateSize)

	var actual ProgramState
	require.NoError(t, actual.Unmarshal(data))
	assert.Equal(t, expected, actual)

	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(data[:len(data)-1]))
}

func TestLiquidityContribution_RoundTrip(t *testing.T) {
	expected := LiquidityContribution{
		User:              mustBase58Decode("HFbUnVv4cestZrUDSx3o9zHWEcvx4Gw2AbHQ5nLhi36b"),
		ContributedAmount: 1_000_000,
		StartTimestamp:    1700000000,
		LastClaimTime:     1700604800,
		TotalClaimed:      52_500,
	}

	data := expected.Marshal()
	require.Len(t, data, LiquidityContributionSize)

	var actual LiquidityContribution
	require.NoError(t, actual.Unmarshal(data))
	assert.Equal(t, expected, actual)

	assert.Equal(t, ErrInvalidAccountData, actual.Unmarshal(append(data, 0)))
}
