package multihub

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodec(t *testing.T) {
	codec, err := NewCodec(CodecVersionV1)
	require.NoError(t, err)
	assert.Equal(t, CodecVersionV1, codec.Version())

	_, err = NewCodec(CodecVersionUnknown)
	assert.ErrorIs(t, err, ErrUnknownCodecVersion)

	_, err = NewCodec(CodecVersion(99))
	assert.ErrorIs(t, err, ErrUnknownCodecVersion)
}

func TestCodecV1_RoundTrip(t *testing.T) {
	codec, err := NewCodec(CodecVersionV1)
	require.NoError(t, err)

	rates := RateParameters{
		LpContributionBps: 2000,
		AdminFeeBps:       10,
		CashbackBps:       500,
		SwapFeeBps:        30,
		ReferralBps:       50,
	}

	for _, frame := range []Frame{
		&InitializeFrame{
			Admin: mustBase58Decode("HFbUnVv4cestZrUDSx3o9zHWEcvx4Gw2AbHQ5nLhi36b"),
			MintA: mustBase58Decode("2BU1Xgyzqixhjaq9Pa5cNsaa1gSejLeNtDaDRv29qoZm"),
			MintB: mustBase58Decode("4uQeVj5tqViQh7yWWGStvkEG1Zmhx6uasJtWCJziofM"),
			Rates: rates,
		},
		&ExecuteFrame{AmountIn: 1_000_000, MinAmountOut: 987_654},
		&CloseFrame{},
		&UpdateParametersFrame{Rates: rates},
		&FundAuthorityFrame{Lamports: 1_000_000_000},
		&TransferToAuthorityFrame{Amount: 42},
	} {
		data, err := codec.Encode(frame)
		require.NoError(t, err, "frame type %s", frame.FrameType())

		decoded, err := codec.Decode(data)
		require.NoError(t, err, "frame type %s", frame.FrameType())
		assert.Equal(t, frame, decoded)
	}
}

func TestCodecV1_FixedSizes(t *testing.T) {
	codec, err := NewCodec(CodecVersionV1)
	require.NoError(t, err)

	admin := mustBase58Decode("HFbUnVv4cestZrUDSx3o9zHWEcvx4Gw2AbHQ5nLhi36b")

	for _, tc := range []struct {
		frame Frame
		size  int
	}{
		{&InitializeFrame{Admin: admin, MintA: admin, MintB: admin}, 137},
		{&ExecuteFrame{}, 17},
		{&CloseFrame{}, 1},
		{&UpdateParametersFrame{}, 41},
		{&FundAuthorityFrame{}, 9},
		{&TransferToAuthorityFrame{}, 9},
	} {
		data, err := codec.Encode(tc.frame)
		require.NoError(t, err)
		assert.Len(t, data, tc.size, "frame type %s", tc.frame.FrameType())
	}
}

func TestCodecV1_ExecuteGoldenBytes(t *testing.T) {
	codec, err := NewCodec(CodecVersionV1)
	require.NoError(t, err)

	data, err := codec.Encode(&ExecuteFrame{
		AmountIn:     0x0102030405060708,
		MinAmountOut: 0x1112131415161718,
	})
	require.NoError(t, err)

	expected := []byte{
		0x01,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
		0x18, 0x17, 0x16, 0x15, 0x14, 0x13, 0x12, 0x11,
	}
	assert.Equal(t, expected, data)
}

func TestCodecV1_DecodeErrors(t *testing.T) {
	codec, err := NewCodec(CodecVersionV1)
	require.NoError(t, err)

	_, err = codec.Decode(nil)
	assert.ErrorIs(t, err, ErrInvalidFrame)

	// truncated execute frame
	_, err = codec.Decode([]byte{byte(FrameTypeExecute), 1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidFrame)

	// trailing bytes on a close frame
	_, err = codec.Decode([]byte{byte(FrameTypeClose), 0})
	assert.ErrorIs(t, err, ErrInvalidFrame)

	// unknown discriminator
	_, err = codec.Decode([]byte{0xff})
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestCodecV1_EncodeErrors(t *testing.T) {
	codec, err := NewCodec(CodecVersionV1)
	require.NoError(t, err)

	_, err = codec.Encode(&InitializeFrame{})
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestClampAmount(t *testing.T) {
	v, clamped := ClampAmount(big.NewInt(12345))
	assert.EqualValues(t, 12345, v)
	assert.False(t, clamped)

	max := new(big.Int).SetUint64(math.MaxUint64)
	v, clamped = ClampAmount(max)
	assert.EqualValues(t, uint64(math.MaxUint64), v)
	assert.False(t, clamped)

	over := new(big.Int).Add(max, big.NewInt(1))
	v, clamped = ClampAmount(over)
	assert.EqualValues(t, uint64(math.MaxUint64), v)
	assert.True(t, clamped)

	v, clamped = ClampAmount(big.NewInt(-1))
	assert.EqualValues(t, 0, v)
	assert.True(t, clamped)
}
