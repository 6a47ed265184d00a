package recovery

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/multihubswap/engine/pkg/database/query"
)

const resolveBatchSize = 64

var (
	// ErrRefundFailed is terminal. The debit was confirmed but the
	// compensating transfer could not be issued; the record stays in
	// StateRefunding for manual intervention.
	ErrRefundFailed = errors.New("compensating transfer failed")

	// ErrRefundInFlight is returned when a resolve is requested for a
	// record that already has a compensating transfer in flight.
	ErrRefundInFlight = errors.New("compensating transfer already in flight")
)

// BalanceSource reads token account balances. It mirrors the read
// surface of the RPC client so the ledger never needs write access to
// the chain.
type BalanceSource interface {
	GetTokenAccountBalance(account ed25519.PublicKey) (uint64, error)
}

// Compensator issues the compensating transfer for a debited attempt.
// Implementations must transfer exactly the requested amount back to
// the record's wallet.
type Compensator interface {
	Refund(ctx context.Context, record *Record, amount uint64) (signature string, err error)
}

// Ledger tracks every submission attempt from assembly to a terminal
// state. An attempt that fails or lands ambiguously is resolved by
// comparing pre and post balances and refunding the exact debited
// amount, never the requested amount.
type Ledger struct {
	log         *logrus.Entry
	store       Store
	balances    BalanceSource
	compensator Compensator
}

func NewLedger(store Store, balances BalanceSource, compensator Compensator) *Ledger {
	return &Ledger{
		log:         logrus.StandardLogger().WithField("type", "recovery/ledger"),
		store:       store,
		balances:    balances,
		compensator: compensator,
	}
}

// Begin snapshots the balances of both resources and opens a pending
// record for the attempt. It must be called before the transaction is
// submitted; a snapshot taken afterwards cannot prove anything about
// the debit.
func (l *Ledger) Begin(ctx context.Context, attemptId, wallet string, resourceIn, resourceOut ed25519.PublicKey, amount, minimumCredit uint64) (*Record, error) {
	var preBalanceIn, preBalanceOut uint64

	var eg errgroup.Group
	eg.Go(func() (err error) {
		preBalanceIn, err = l.balances.GetTokenAccountBalance(resourceIn)
		return err
	})
	eg.Go(func() (err error) {
		preBalanceOut, err = l.balances.GetTokenAccountBalance(resourceOut)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, errors.Wrap(err, "failed to snapshot balances")
	}

	record := &Record{
		AttemptId: attemptId,

		Wallet: wallet,

		ResourceIn:  base58.Encode(resourceIn),
		ResourceOut: base58.Encode(resourceOut),
		Amount:      amount,

		MinimumCredit: minimumCredit,

		PreBalanceIn:  preBalanceIn,
		PreBalanceOut: preBalanceOut,

		State: StatePending,
	}

	if err := l.store.Save(ctx, record); err != nil {
		return nil, errors.Wrap(err, "failed to save recovery record")
	}

	l.log.WithFields(logrus.Fields{
		"attempt_id":     attemptId,
		"wallet":         wallet,
		"pre_balance_in": preBalanceIn,
	}).Debug("opened recovery record")

	return record, nil
}

// Complete marks the attempt as confirmed. Calling it twice is a
// no-op.
func (l *Ledger) Complete(ctx context.Context, attemptId, signature string) error {
	record, err := l.store.GetByAttemptId(ctx, attemptId)
	if err != nil {
		return err
	}

	if record.State == StateConfirmed {
		return nil
	}
	if record.State != StatePending {
		return errors.Errorf("cannot confirm attempt in state %s", record.State)
	}

	record.TransactionSignature = &signature
	record.State = StateConfirmed
	return l.store.Save(ctx, record)
}

// Resolve settles a failed or ambiguous attempt. It re-reads both
// resource balances: a credit of at least the attempt's minimum on the
// output side proves the swap landed after the confirmation window and
// the record is confirmed. Otherwise, when value was deducted, exactly
// one compensating transfer is issued for the observed delta. Resolving
// an already terminal record returns it unchanged, so the operation is
// safe to repeat after crashes.
func (l *Ledger) Resolve(ctx context.Context, attemptId string) (*Record, error) {
	record, err := l.store.GetByAttemptId(ctx, attemptId)
	if err != nil {
		return nil, err
	}

	log := l.log.WithField("attempt_id", attemptId)

	switch record.State {
	case StateConfirmed, StateFailed, StateRefunded:
		return record, nil
	case StateRefunding:
		// A previous resolve may have sent the transfer before
		// crashing. Re-sending risks a double refund.
		return record, ErrRefundInFlight
	case StatePending:
	default:
		return nil, errors.Errorf("cannot resolve attempt in state %s", record.State)
	}

	resourceIn, err := base58.Decode(record.ResourceIn)
	if err != nil {
		return nil, errors.Wrap(err, "invalid input resource")
	}
	resourceOut, err := base58.Decode(record.ResourceOut)
	if err != nil {
		return nil, errors.Wrap(err, "invalid output resource")
	}

	var postBalanceIn, postBalanceOut uint64
	var eg errgroup.Group
	eg.Go(func() (err error) {
		postBalanceIn, err = l.balances.GetTokenAccountBalance(resourceIn)
		return err
	})
	eg.Go(func() (err error) {
		postBalanceOut, err = l.balances.GetTokenAccountBalance(resourceOut)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, errors.Wrap(err, "failed to read post balances")
	}

	if record.MinimumCredit > 0 && postBalanceOut >= record.PreBalanceOut+record.MinimumCredit {
		record.State = StateConfirmed
		if err := l.store.Save(ctx, record); err != nil {
			return nil, err
		}

		log.Debug("output credited, attempt landed after the confirmation window")
		return record, nil
	}

	if postBalanceIn >= record.PreBalanceIn {
		record.State = StateFailed
		if err := l.store.Save(ctx, record); err != nil {
			return nil, err
		}

		log.Debug("no debit detected, nothing to refund")
		return record, nil
	}

	delta := record.PreBalanceIn - postBalanceIn

	// Claim the refund before sending it. A concurrent resolve loses
	// the version race and backs off instead of double-refunding.
	record.DebitedDelta = &delta
	record.State = StateRefunding
	if err := l.store.Save(ctx, record); err != nil {
		if errors.Is(err, ErrStaleVersion) {
			return record, ErrRefundInFlight
		}
		return nil, err
	}

	log.WithField("debited_delta", delta).Info("debit detected, issuing compensating transfer")

	signature, err := l.compensator.Refund(ctx, record, delta)
	if err != nil {
		log.WithError(err).Warn("compensating transfer failed")
		return record, errors.Wrap(ErrRefundFailed, err.Error())
	}

	record.RefundSignature = &signature
	record.State = StateRefunded
	if err := l.store.Save(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

// ResolvePendingForWallet resolves every pending record for a wallet,
// continuing past individual failures.
func (l *Ledger) ResolvePendingForWallet(ctx context.Context, wallet string) ([]*Record, error) {
	pending, err := l.store.GetAllByWalletAndState(ctx, wallet, StatePending)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var resolved []*Record
	var firstErr error
	for _, record := range pending {
		settled, err := l.Resolve(ctx, record.AttemptId)
		if err != nil {
			l.log.WithError(err).WithField("attempt_id", record.AttemptId).Warn("failed to resolve attempt")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		resolved = append(resolved, settled)
	}
	return resolved, firstErr
}

// ResolveAllPending resolves every pending record, continuing past
// individual failures. The resolved records are returned along with
// the first error encountered, if any.
func (l *Ledger) ResolveAllPending(ctx context.Context) ([]*Record, error) {
	var resolved []*Record
	var firstErr error

	cursor := query.EmptyCursor
	for {
		pending, err := l.store.GetAllByState(ctx, StatePending, cursor, resolveBatchSize, query.Ascending)
		if errors.Is(err, ErrNotFound) {
			break
		} else if err != nil {
			return resolved, err
		}

		for _, record := range pending {
			settled, err := l.Resolve(ctx, record.AttemptId)
			if err != nil {
				l.log.WithError(err).WithField("attempt_id", record.AttemptId).Warn("failed to resolve attempt")
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			resolved = append(resolved, settled)
		}

		if uint64(len(pending)) < resolveBatchSize {
			break
		}
		cursor = query.ToCursor(pending[len(pending)-1].Id)
	}

	return resolved, firstErr
}
