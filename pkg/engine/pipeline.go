package engine

import (
	"context"
	"time"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/multihubswap/engine/pkg/solana"
)

// SubmissionState tracks an attempt through the pipeline.
type SubmissionState uint8

const (
	SubmissionStateBuilt SubmissionState = iota
	SubmissionStateSimulated
	SubmissionStateSent
	SubmissionStateConfirmed
	SubmissionStateConfirmedFailure
	SubmissionStateAborted
)

func (s SubmissionState) String() string {
	switch s {
	case SubmissionStateBuilt:
		return "built"
	case SubmissionStateSimulated:
		return "simulated"
	case SubmissionStateSent:
		return "sent"
	case SubmissionStateConfirmed:
		return "confirmed"
	case SubmissionStateConfirmedFailure:
		return "confirmed_failure"
	case SubmissionStateAborted:
		return "aborted"
	}
	return "unknown"
}

// SubmissionResult is the terminal outcome of a submission.
type SubmissionResult struct {
	Signature solana.Signature
	State     SubmissionState
	Slot      uint64
}

// PipelineConfig bounds the confirmation window after a transaction
// has been sent.
type PipelineConfig struct {
	Commitment     solana.Commitment
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// Pipeline drives a built transaction through simulate, send, and
// confirm. Simulation failures abort before anything is sent; once
// sent, the pipeline runs to a terminal state even if the caller's
// context is cancelled, so the outcome is never silently dropped.
type Pipeline struct {
	log    *logrus.Entry
	client solana.Client
	conf   PipelineConfig
}

func NewPipeline(client solana.Client, conf PipelineConfig) *Pipeline {
	if conf.ConfirmTimeout <= 0 {
		conf.ConfirmTimeout = 30 * time.Second
	}
	if conf.PollInterval <= 0 {
		conf.PollInterval = time.Second
	}

	return &Pipeline{
		log:    logrus.StandardLogger().WithField("type", "engine/pipeline"),
		client: client,
		conf:   conf,
	}
}

// Submit signs and submits an assembled transaction.
func (p *Pipeline) Submit(ctx context.Context, assembled *Assembled, signer Signer) (*SubmissionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txn := assembled.Transaction

	blockhash, err := p.client.GetLatestBlockhash()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get latest blockhash")
	}
	txn.SetBlockhash(blockhash)

	if err := signer.SignTransaction(&txn); err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	simulation, err := p.client.SimulateTransaction(txn)
	if err != nil {
		var txnErr *solana.TransactionError
		if errors.As(err, &txnErr) {
			return &SubmissionResult{State: SubmissionStateAborted}, &PreflightError{Reason: txnErr}
		}
		return nil, errors.Wrap(err, "failed to simulate transaction")
	}
	if simulation.Err != nil {
		p.log.WithField("logs", simulation.Logs).Info("transaction rejected in simulation")
		return &SubmissionResult{State: SubmissionStateAborted}, &PreflightError{
			Reason: simulation.Err,
			Logs:   simulation.Logs,
		}
	}

	sig, err := p.client.SubmitTransaction(txn, p.conf.Commitment)
	if err != nil {
		var txnErr *solana.TransactionError
		if errors.As(err, &txnErr) {
			return &SubmissionResult{State: SubmissionStateAborted}, &PreflightError{Reason: txnErr}
		}
		return nil, errors.Wrap(err, "failed to submit transaction")
	}

	// The transaction is on the wire. From here the caller's context
	// no longer gates the pipeline; only the confirmation window does.
	return p.confirm(sig)
}

func (p *Pipeline) confirm(sig solana.Signature) (*SubmissionResult, error) {
	log := p.log.WithField("signature", base58.Encode(sig[:]))

	deadline := time.Now().Add(p.conf.ConfirmTimeout)
	for {
		statuses, err := p.client.GetSignatureStatuses([]solana.Signature{sig})
		if err != nil {
			log.WithError(err).Warn("failed to poll signature status")
		} else if status := statuses[0]; status != nil {
			if status.ErrorResult != nil {
				return &SubmissionResult{
					Signature: sig,
					State:     SubmissionStateConfirmedFailure,
					Slot:      status.Slot,
				}, status.ErrorResult
			}

			if p.reached(status) {
				return &SubmissionResult{
					Signature: sig,
					State:     SubmissionStateConfirmed,
					Slot:      status.Slot,
				}, nil
			}
		}

		if time.Now().After(deadline) {
			log.Warn("confirmation window elapsed")
			return &SubmissionResult{
					Signature: sig,
					State:     SubmissionStateSent,
				}, &AmbiguousOutcomeError{
					Signature: sig,
				}
		}

		time.Sleep(p.conf.PollInterval)
	}
}

func (p *Pipeline) reached(status *solana.SignatureStatus) bool {
	switch p.conf.Commitment {
	case solana.CommitmentFinalized:
		return status.Finalized()
	case solana.CommitmentProcessed:
		return true
	default:
		return status.Confirmed()
	}
}
