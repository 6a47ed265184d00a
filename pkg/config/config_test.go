package config

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multihubswap/engine/pkg/solana"
)

func testMint(t *testing.T) string {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return base58.Encode(pub)
}

func writeTestConfig(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "multihub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	mintA, mintB := testMint(t), testMint(t)

	path := writeTestConfig(t, `
endpoints:
  - https://rpc-1.example.com
  - https://rpc-2.example.com
mint_a: `+mintA+`
mint_b: `+mintB+`
commitment: finalized
slippage_bps: 75
confirm_timeout: 45s
`)

	conf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://rpc-1.example.com", "https://rpc-2.example.com"}, conf.Endpoints)
	assert.Equal(t, mintA, conf.MintA)
	assert.EqualValues(t, 75, conf.SlippageBps)
	assert.Equal(t, 45*time.Second, conf.ConfirmTimeout)

	commitment, err := conf.CommitmentLevel()
	require.NoError(t, err)
	assert.Equal(t, solana.CommitmentFinalized, commitment)

	// Defaults fill everything the file leaves out.
	assert.EqualValues(t, 1_000_000, conf.FundingFloor)
	assert.Equal(t, time.Second, conf.PollInterval)
}

func TestLoad_EnvOverride(t *testing.T) {
	mintA, mintB := testMint(t), testMint(t)

	path := writeTestConfig(t, `
mint_a: `+mintA+`
mint_b: `+mintB+`
slippage_bps: 75
`)

	t.Setenv("MULTIHUB_SLIPPAGE_BPS", "125")

	conf, err := Load(path)
	require.NoError(t, err)
	assert.EqualValues(t, 125, conf.SlippageBps)
}

func TestLoad_Invalid(t *testing.T) {
	mintA, mintB := testMint(t), testMint(t)

	for _, tc := range []string{
		"mint_a: " + mintA + "\n",                                                      // missing mint b
		"mint_a: not+base58\nmint_b: " + mintB + "\n",                                  // malformed mint
		"mint_a: " + mintA + "\nmint_b: " + mintB + "\ncommitment: eventually\n",       // bad commitment
		"mint_a: " + mintA + "\nmint_b: " + mintB + "\ncodec_version: 9\n",             // unsupported codec
		"mint_a: " + mintA + "\nmint_b: " + mintB + "\nprogram_id: " + mintA + "\n",    // wrong program
		"mint_a: " + mintA + "\nmint_b: " + mintB + "\nendpoints: []\n",                // no endpoints
	} {
		_, err := Load(writeTestConfig(t, tc))
		assert.Error(t, err, tc)
	}
}
