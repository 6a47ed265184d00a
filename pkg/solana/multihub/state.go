package multihub

import (
	"crypto/ed25519"
)

const ProgramStateSize = (3*ed25519.PublicKeySize + // admin, mint_a, mint_b
	rateParametersSize) // rates

// ProgramState is the singleton configuration account owned by the
// program. Clients decode it to validate mints and read rates; only
// the program writes it.
type ProgramState struct {
	Admin ed25519.PublicKey
	MintA ed25519.PublicKey
	MintB ed25519.PublicKey
	Rates RateParameters
}

func (s *ProgramState) Unmarshal(data []byte) error {
	if len(data) != ProgramStateSize {
		return ErrInvalidAccountData
	}

	var offset int
	getKey(data, &s.Admin, &offset)
	getKey(data, &s.MintA, &offset)
	getKey(data, &s.MintB, &offset)
	getRates(data, &s.Rates, &offset)
	return nil
}

func (s *ProgramState) Marshal() []byte {
	data := make([]byte, ProgramStateSize)

	var offset int
	putKey(data, s.Admin, &offset)
	putKey(data, s.MintA, &offset)
	putKey(data, s.MintB, &offset)
	putRates(data, s.Rates, &offset)
	return data
}

const LiquidityContributionSize = (ed25519.PublicKeySize + // user
	8 + // contributed_amount
	8 + // start_timestamp
	8 + // last_claim_time
	8) // total_claimed

// LiquidityContribution is the per-user record the program maintains
// for liquidity rewards.
type LiquidityContribution struct {
	User              ed25519.PublicKey
	ContributedAmount uint64
	StartTimestamp    int64
	LastClaimTime     int64
	TotalClaimed      uint64
}

func (c *LiquidityContribution) Unmarshal(data []byte) error {
	if len(data) != LiquidityContributionSize {
		return ErrInvalidAccountData
	}

	var offset int
	getKey(data, &c.User, &offset)
	getUint64(data, &c.ContributedAmount, &offset)
	getInt64(data, &c.StartTimestamp, &offset)
	getInt64(data, &c.LastClaimTime, &offset)
	getUint64(data, &c.TotalClaimed, &offset)
	return nil
}

func (c *LiquidityContribution) Marshal() []byte {
	data := make([]byte, LiquidityContributionSize)

	var offset int
	putKey(data, c.User, &offset)
	putUint64(data, c.ContributedAmount, &offset)
	putInt64(data, c.StartTimestamp, &offset)
	putInt64(data, c.LastClaimTime, &offset)
	putUint64(data, c.TotalClaimed, &offset)
	return data
}
