package multihub

import (
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStateAddress(t *testing.T) {
	address, bump, err := GetStateAddress()
	require.NoError(t, err)
	assert.Equal(t, "2Ff3KxTTdd3J9pvkAd2RYWgizqKNo9qMuTfsGqG6q4yg", base58.Encode(address))
	assert.EqualValues(t, 254, bump)
}

func TestGetAuthorityAddress(t *testing.T) {
	address, bump, err := GetAuthorityAddress()
	require.NoError(t, err)
	assert.Equal(t, "CkR3D3kMRQ2hKs7ZfxrvT3abrCf9d3iL6FW9n7yZT94S", base58.Encode(address))
	assert.EqualValues(t, 255, bump)
}

func TestGetContributionAddress(t *testing.T) {
	address, bump, err := GetContributionAddress(&GetContributionAddressArgs{
		User: mustBase58Decode("HFbUnVv4cestZrUDSx3o9zHWEcvx4Gw2AbHQ5nLhi36b"),
	})
	require.NoError(t, err)
	assert.Equal(t, "4ewJnEiLsE1EKccCFXpcMJfSemfes6KAaDBRbsy66Ppt", base58.Encode(address))
	assert.EqualValues(t, 255, bump)
}
