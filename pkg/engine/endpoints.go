package engine

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/multihubswap/engine/pkg/retry"
	"github.com/multihubswap/engine/pkg/retry/backoff"
	"github.com/multihubswap/engine/pkg/solana"
)

const (
	poolRotationLimit = 3
	poolBackoffBase   = 250 * time.Millisecond
	poolBackoffMax    = 2 * time.Second
	poolBackoffJitter = 0.1
)

// errTerminal marks an error that no endpoint rotation can fix.
var errTerminal = errors.New("terminal rpc error")

// Pool is a solana.Client over an ordered list of endpoints. Calls go
// to the first endpoint; transport-level failures rotate to the next,
// and full rotations are retried with backoff before the call is given
// up as a NetworkError. Errors that reflect ledger state rather than
// endpoint health are returned as-is without rotating.
type Pool struct {
	log     *logrus.Entry
	clients []solana.Client
}

func NewPool(clients ...solana.Client) (*Pool, error) {
	if len(clients) == 0 {
		return nil, errors.New("at least one endpoint is required")
	}

	return &Pool{
		log:     logrus.StandardLogger().WithField("type", "engine/pool"),
		clients: clients,
	}, nil
}

// isTransient reports whether an error can plausibly be fixed by
// asking a different endpoint.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	switch {
	case errors.Is(err, solana.ErrNoAccountInfo),
		errors.Is(err, solana.ErrSignatureNotFound),
		errors.Is(err, solana.ErrNoBalance):
		return false
	}

	var txnErr *solana.TransactionError
	return !errors.As(err, &txnErr)
}

func (p *Pool) each(method string, fn func(solana.Client) error) error {
	var terminal error

	_, err := retry.Retry(
		func() error {
			var last error
			for i, client := range p.clients {
				err := fn(client)
				if err == nil {
					return nil
				}

				if !isTransient(err) {
					terminal = err
					return errTerminal
				}

				p.log.WithError(err).WithFields(logrus.Fields{
					"method":   method,
					"endpoint": i,
				}).Warn("endpoint failed, rotating")
				last = err
			}
			return last
		},
		retry.Limit(poolRotationLimit),
		retry.NonRetriableErrors(errTerminal),
		retry.BackoffWithJitter(backoff.BinaryExponential(poolBackoffBase), poolBackoffMax, poolBackoffJitter),
	)

	if terminal != nil {
		return terminal
	}
	if err != nil {
		return &NetworkError{Err: err}
	}
	return nil
}

func (p *Pool) GetAccountInfo(account ed25519.PublicKey, commitment solana.Commitment) (info solana.AccountInfo, err error) {
	err = p.each("GetAccountInfo", func(c solana.Client) (err error) {
		info, err = c.GetAccountInfo(account, commitment)
		return err
	})
	return info, err
}

func (p *Pool) GetBalance(account ed25519.PublicKey) (balance uint64, err error) {
	err = p.each("GetBalance", func(c solana.Client) (err error) {
		balance, err = c.GetBalance(account)
		return err
	})
	return balance, err
}

func (p *Pool) GetLatestBlockhash() (blockhash solana.Blockhash, err error) {
	err = p.each("GetLatestBlockhash", func(c solana.Client) (err error) {
		blockhash, err = c.GetLatestBlockhash()
		return err
	})
	return blockhash, err
}

func (p *Pool) GetMinimumBalanceForRentExemption(size uint64) (lamports uint64, err error) {
	err = p.each("GetMinimumBalanceForRentExemption", func(c solana.Client) (err error) {
		lamports, err = c.GetMinimumBalanceForRentExemption(size)
		return err
	})
	return lamports, err
}

func (p *Pool) GetSignatureStatus(sig solana.Signature, commitment solana.Commitment) (status *solana.SignatureStatus, err error) {
	err = p.each("GetSignatureStatus", func(c solana.Client) (err error) {
		status, err = c.GetSignatureStatus(sig, commitment)
		return err
	})
	return status, err
}

func (p *Pool) GetSignatureStatuses(sigs []solana.Signature) (statuses []*solana.SignatureStatus, err error) {
	err = p.each("GetSignatureStatuses", func(c solana.Client) (err error) {
		statuses, err = c.GetSignatureStatuses(sigs)
		return err
	})
	return statuses, err
}

func (p *Pool) GetTokenAccountBalance(account ed25519.PublicKey) (balance uint64, err error) {
	err = p.each("GetTokenAccountBalance", func(c solana.Client) (err error) {
		balance, err = c.GetTokenAccountBalance(account)
		return err
	})
	return balance, err
}

func (p *Pool) SimulateTransaction(txn solana.Transaction) (result *solana.SimulationResult, err error) {
	err = p.each("SimulateTransaction", func(c solana.Client) (err error) {
		result, err = c.SimulateTransaction(txn)
		return err
	})
	return result, err
}

func (p *Pool) SubmitTransaction(txn solana.Transaction, commitment solana.Commitment) (sig solana.Signature, err error) {
	err = p.each("SubmitTransaction", func(c solana.Client) (err error) {
		sig, err = c.SubmitTransaction(txn, commitment)
		return err
	})
	return sig, err
}
