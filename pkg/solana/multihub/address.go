package multihub

import (
	"crypto/ed25519"

	"github.com/multihubswap/engine/pkg/solana"
)

var (
	statePrefix        = []byte("state")
	authorityPrefix    = []byte("authority")
	contributionPrefix = []byte("liq")
)

// GetStateAddress returns the program state account, a singleton
// per program deployment.
func GetStateAddress() (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		statePrefix,
	)
}

// GetAuthorityAddress returns the program's signing authority. The
// program signs CPI transfers with this address, so clients only ever
// read or fund it.
func GetAuthorityAddress() (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		authorityPrefix,
	)
}

type GetContributionAddressArgs struct {
	User ed25519.PublicKey
}

// GetContributionAddress returns the per-user liquidity contribution
// account.
func GetContributionAddress(args *GetContributionAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		contributionPrefix,
		args.User,
	)
}
