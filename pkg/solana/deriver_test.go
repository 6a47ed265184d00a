package solana

import (
	"crypto/ed25519"
	"sync"
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressDeriver_Deterministic(t *testing.T) {
	programID, err := base58.Decode("4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM")
	require.NoError(t, err)

	deriver, err := NewAddressDeriver(programID, 16)
	require.NoError(t, err)

	first, err := deriver.Derive([]byte("state"))
	require.NoError(t, err)

	// A repeated derivation, cached or not, always yields the identical
	// (address, bump) pair.
	for i := 0; i < 10; i++ {
		again, err := deriver.Derive([]byte("state"))
		require.NoError(t, err)
		assert.EqualValues(t, first.Address, again.Address)
		assert.Equal(t, first.Bump, again.Bump)
	}

	uncached, bump, err := FindProgramAddressAndBump(programID, []byte("state"))
	require.NoError(t, err)
	assert.EqualValues(t, first.Address, ed25519.PublicKey(uncached))
	assert.Equal(t, first.Bump, bump)
}

func TestAddressDeriver_SeedBoundaries(t *testing.T) {
	programID, err := base58.Decode("4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM")
	require.NoError(t, err)

	deriver, err := NewAddressDeriver(programID, 16)
	require.NoError(t, err)

	// Concatenation ambiguity must not produce cache collisions:
	// ["ab", "c"] and ["a", "bc"] are different derivations.
	a, err := deriver.Derive([]byte("ab"), []byte("c"))
	require.NoError(t, err)
	b, err := deriver.Derive([]byte("a"), []byte("bc"))
	require.NoError(t, err)

	assert.NotEqual(t, a.Address, b.Address)
}

func TestAddressDeriver_ConcurrentReads(t *testing.T) {
	programID, err := base58.Decode("4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM")
	require.NoError(t, err)

	deriver, err := NewAddressDeriver(programID, 4)
	require.NoError(t, err)

	expected, err := deriver.Derive([]byte("authority"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			derived, err := deriver.Derive([]byte("authority"))
			assert.NoError(t, err)
			assert.EqualValues(t, expected.Address, derived.Address)
		}()
	}
	wg.Wait()
}

func TestAddressDeriver_InvalidProgram(t *testing.T) {
	_, err := NewAddressDeriver([]byte("short"), 16)
	assert.Error(t, err)
}
