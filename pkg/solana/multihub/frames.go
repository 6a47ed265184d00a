package multihub

import (
	"crypto/ed25519"
	"math"
	"math/big"

	"github.com/pkg/errors"
)

// CodecVersion selects a wire format generation. Exactly one format is
// valid per deployed program; the caller picks it through configuration
// rather than probing at runtime.
type CodecVersion uint8

const (
	CodecVersionUnknown CodecVersion = iota
	CodecVersionV1
)

var (
	ErrUnknownCodecVersion = errors.New("unknown codec version")
	ErrInvalidFrame        = errors.New("invalid frame")
)

type FrameType uint8

const (
	FrameTypeInitialize FrameType = iota
	FrameTypeExecute
	FrameTypeClose
	FrameTypeUpdateParameters
	FrameTypeFundAuthority
	FrameTypeTransferToAuthority
)

func (t FrameType) String() string {
	switch t {
	case FrameTypeInitialize:
		return "initialize"
	case FrameTypeExecute:
		return "execute"
	case FrameTypeClose:
		return "close"
	case FrameTypeUpdateParameters:
		return "update_parameters"
	case FrameTypeFundAuthority:
		return "fund_authority"
	case FrameTypeTransferToAuthority:
		return "transfer_to_authority"
	}
	return "unknown"
}

// RateParameters holds the program's fee and distribution rates in
// basis points. All five fields ride the wire as consecutive
// little-endian u64 values.
type RateParameters struct {
	LpContributionBps uint64
	AdminFeeBps       uint64
	CashbackBps       uint64
	SwapFeeBps        uint64
	ReferralBps       uint64
}

const rateParametersSize = 5 * 8

// Frame is one operation payload. Serialized size is constant per
// frame type.
type Frame interface {
	FrameType() FrameType
}

type InitializeFrame struct {
	Admin ed25519.PublicKey
	MintA ed25519.PublicKey
	MintB ed25519.PublicKey
	Rates RateParameters
}

func (f *InitializeFrame) FrameType() FrameType { return FrameTypeInitialize }

type ExecuteFrame struct {
	AmountIn     uint64
	MinAmountOut uint64
}

func (f *ExecuteFrame) FrameType() FrameType { return FrameTypeExecute }

type CloseFrame struct {
}

func (f *CloseFrame) FrameType() FrameType { return FrameTypeClose }

type UpdateParametersFrame struct {
	Rates RateParameters
}

func (f *UpdateParametersFrame) FrameType() FrameType { return FrameTypeUpdateParameters }

// FundAuthorityFrame tops up the program authority with native
// lamports. It never reaches the program itself; the assembler lowers
// it to a native transfer.
type FundAuthorityFrame struct {
	Lamports uint64
}

func (f *FundAuthorityFrame) FrameType() FrameType { return FrameTypeFundAuthority }

// TransferToAuthorityFrame moves tokens into an authority-owned
// account. Like FundAuthorityFrame it is lowered by the assembler.
type TransferToAuthorityFrame struct {
	Amount uint64
}

func (f *TransferToAuthorityFrame) FrameType() FrameType { return FrameTypeTransferToAuthority }

const (
	initializeFrameSizeV1          = 1 + 3*ed25519.PublicKeySize + rateParametersSize
	executeFrameSizeV1             = 1 + 2*8
	closeFrameSizeV1               = 1
	updateParametersFrameSizeV1    = 1 + rateParametersSize
	fundAuthorityFrameSizeV1       = 1 + 8
	transferToAuthorityFrameSizeV1 = 1 + 8
)

// Codec serializes frames to instruction data and back. Encode is
// injective and Decode(Encode(f)) == f for every valid frame.
type Codec interface {
	Version() CodecVersion
	Encode(f Frame) ([]byte, error)
	Decode(data []byte) (Frame, error)
}

func NewCodec(version CodecVersion) (Codec, error) {
	switch version {
	case CodecVersionV1:
		return codecV1{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownCodecVersion, "version %d", version)
	}
}

type codecV1 struct {
}

func (codecV1) Version() CodecVersion {
	return CodecVersionV1
}

func (codecV1) Encode(f Frame) ([]byte, error) {
	switch typed := f.(type) {
	case *InitializeFrame:
		if len(typed.Admin) != ed25519.PublicKeySize ||
			len(typed.MintA) != ed25519.PublicKeySize ||
			len(typed.MintB) != ed25519.PublicKeySize {
			return nil, errors.Wrap(ErrInvalidFrame, "initialize frame requires three 32 byte keys")
		}

		var offset int
		data := make([]byte, initializeFrameSizeV1)
		data[offset] = byte(FrameTypeInitialize)
		offset++
		putKey(data, typed.Admin, &offset)
		putKey(data, typed.MintA, &offset)
		putKey(data, typed.MintB, &offset)
		putRates(data, typed.Rates, &offset)
		return data, nil

	case *ExecuteFrame:
		var offset int
		data := make([]byte, executeFrameSizeV1)
		data[offset] = byte(FrameTypeExecute)
		offset++
		putUint64(data, typed.AmountIn, &offset)
		putUint64(data, typed.MinAmountOut, &offset)
		return data, nil

	case *CloseFrame:
		return []byte{byte(FrameTypeClose)}, nil

	case *UpdateParametersFrame:
		var offset int
		data := make([]byte, updateParametersFrameSizeV1)
		data[offset] = byte(FrameTypeUpdateParameters)
		offset++
		putRates(data, typed.Rates, &offset)
		return data, nil

	case *FundAuthorityFrame:
		var offset int
		data := make([]byte, fundAuthorityFrameSizeV1)
		data[offset] = byte(FrameTypeFundAuthority)
		offset++
		putUint64(data, typed.Lamports, &offset)
		return data, nil

	case *TransferToAuthorityFrame:
		var offset int
		data := make([]byte, transferToAuthorityFrameSizeV1)
		data[offset] = byte(FrameTypeTransferToAuthority)
		offset++
		putUint64(data, typed.Amount, &offset)
		return data, nil
	}

	return nil, errors.Wrapf(ErrInvalidFrame, "unsupported frame type %T", f)
}

func (codecV1) Decode(data []byte) (Frame, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(ErrInvalidFrame, "empty data")
	}

	switch FrameType(data[0]) {
	case FrameTypeInitialize:
		if len(data) != initializeFrameSizeV1 {
			return nil, errors.Wrapf(ErrInvalidFrame, "initialize frame has %d bytes", len(data))
		}

		offset := 1
		var f InitializeFrame
		getKey(data, &f.Admin, &offset)
		getKey(data, &f.MintA, &offset)
		getKey(data, &f.MintB, &offset)
		getRates(data, &f.Rates, &offset)
		return &f, nil

	case FrameTypeExecute:
		if len(data) != executeFrameSizeV1 {
			return nil, errors.Wrapf(ErrInvalidFrame, "execute frame has %d bytes", len(data))
		}

		offset := 1
		var f ExecuteFrame
		getUint64(data, &f.AmountIn, &offset)
		getUint64(data, &f.MinAmountOut, &offset)
		return &f, nil

	case FrameTypeClose:
		if len(data) != closeFrameSizeV1 {
			return nil, errors.Wrapf(ErrInvalidFrame, "close frame has %d bytes", len(data))
		}
		return &CloseFrame{}, nil

	case FrameTypeUpdateParameters:
		if len(data) != updateParametersFrameSizeV1 {
			return nil, errors.Wrapf(ErrInvalidFrame, "update parameters frame has %d bytes", len(data))
		}

		offset := 1
		var f UpdateParametersFrame
		getRates(data, &f.Rates, &offset)
		return &f, nil

	case FrameTypeFundAuthority:
		if len(data) != fundAuthorityFrameSizeV1 {
			return nil, errors.Wrapf(ErrInvalidFrame, "fund authority frame has %d bytes", len(data))
		}

		offset := 1
		var f FundAuthorityFrame
		getUint64(data, &f.Lamports, &offset)
		return &f, nil

	case FrameTypeTransferToAuthority:
		if len(data) != transferToAuthorityFrameSizeV1 {
			return nil, errors.Wrapf(ErrInvalidFrame, "transfer to authority frame has %d bytes", len(data))
		}

		offset := 1
		var f TransferToAuthorityFrame
		getUint64(data, &f.Amount, &offset)
		return &f, nil
	}

	return nil, errors.Wrapf(ErrInvalidFrame, "unknown frame type %d", data[0])
}

func putRates(dst []byte, rates RateParameters, offset *int) {
	putUint64(dst, rates.LpContributionBps, offset)
	putUint64(dst, rates.AdminFeeBps, offset)
	putUint64(dst, rates.CashbackBps, offset)
	putUint64(dst, rates.SwapFeeBps, offset)
	putUint64(dst, rates.ReferralBps, offset)
}

func getRates(src []byte, rates *RateParameters, offset *int) {
	getUint64(src, &rates.LpContributionBps, offset)
	getUint64(src, &rates.AdminFeeBps, offset)
	getUint64(src, &rates.CashbackBps, offset)
	getUint64(src, &rates.SwapFeeBps, offset)
	getUint64(src, &rates.ReferralBps, offset)
}

// ClampAmount narrows an arbitrary-precision quantity to the wire's
// u64 range. The second return value reports whether clamping
// occurred; callers must surface it instead of transmitting a wrapped
// value.
func ClampAmount(v *big.Int) (uint64, bool) {
	if v.Sign() < 0 {
		return 0, true
	}
	if v.IsUint64() {
		return v.Uint64(), false
	}
	return math.MaxUint64, true
}
