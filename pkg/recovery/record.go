package recovery

import (
	"errors"
	"time"

	"github.com/multihubswap/engine/pkg/pointer"
)

type State uint8

const (
	StateUnknown State = iota

	// StatePending tracks an attempt that has been assembled and may
	// reach the network. Funds may or may not move.
	StatePending

	// StateConfirmed means the attempt finalized successfully. No
	// funds need recovering.
	StateConfirmed

	// StateFailed means the attempt failed without debiting the
	// wallet. Nothing to refund.
	StateFailed

	// StateRefunding means a debit was detected and a compensating
	// transfer is in flight. An attempt stuck here needs manual
	// review; issuing a second transfer could double-refund.
	StateRefunding

	// StateRefunded means the compensating transfer completed.
	StateRefunded
)

type Record struct {
	Id uint64

	AttemptId string

	Wallet string

	ResourceIn  string
	ResourceOut string
	Amount      uint64

	// MinimumCredit is the smallest output credit the attempt could
	// have produced. An output balance rising by at least this much
	// proves the swap landed.
	MinimumCredit uint64

	PreBalanceIn  uint64
	PreBalanceOut uint64

	DebitedDelta *uint64

	TransactionSignature *string
	RefundSignature      *string

	State State

	Version uint64

	CreatedAt time.Time
}

func (r *Record) Clone() Record {
	return Record{
		Id: r.Id,

		AttemptId: r.AttemptId,

		Wallet: r.Wallet,

		ResourceIn:  r.ResourceIn,
		ResourceOut: r.ResourceOut,
		Amount:      r.Amount,

		MinimumCredit: r.MinimumCredit,

		PreBalanceIn:  r.PreBalanceIn,
		PreBalanceOut: r.PreBalanceOut,

		DebitedDelta: pointer.Uint64Copy(r.DebitedDelta),

		TransactionSignature: pointer.StringCopy(r.TransactionSignature),
		RefundSignature:      pointer.StringCopy(r.RefundSignature),

		State: r.State,

		Version: r.Version,

		CreatedAt: r.CreatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.AttemptId = r.AttemptId

	dst.Wallet = r.Wallet

	dst.ResourceIn = r.ResourceIn
	dst.ResourceOut = r.ResourceOut
	dst.Amount = r.Amount

	dst.MinimumCredit = r.MinimumCredit

	dst.PreBalanceIn = r.PreBalanceIn
	dst.PreBalanceOut = r.PreBalanceOut

	dst.DebitedDelta = pointer.Uint64Copy(r.DebitedDelta)

	dst.TransactionSignature = pointer.StringCopy(r.TransactionSignature)
	dst.RefundSignature = pointer.StringCopy(r.RefundSignature)

	dst.State = r.State

	dst.Version = r.Version

	dst.CreatedAt = r.CreatedAt
}

func (r *Record) Validate() error {
	if len(r.AttemptId) == 0 {
		return errors.New("attempt id is required")
	}

	if len(r.Wallet) == 0 {
		return errors.New("wallet is required")
	}

	if len(r.ResourceIn) == 0 {
		return errors.New("input resource is required")
	}

	if len(r.ResourceOut) == 0 {
		return errors.New("output resource is required")
	}

	if r.Amount == 0 {
		return errors.New("amount is required")
	}

	if r.TransactionSignature != nil && len(*r.TransactionSignature) == 0 {
		return errors.New("transaction signature is empty")
	}

	if r.RefundSignature != nil && len(*r.RefundSignature) == 0 {
		return errors.New("refund signature is empty")
	}

	if r.State == StateRefunded && r.RefundSignature == nil {
		return errors.New("refund signature is missing")
	}

	return nil
}

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	case StateRefunding:
		return "refunding"
	case StateRefunded:
		return "refunded"
	}
	return "unknown"
}
