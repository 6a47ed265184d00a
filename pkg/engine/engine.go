// Package engine is the caller-facing surface for interacting with the
// multihub swap program: quoting swaps, assembling and submitting
// transactions, and recovering funds from attempts that failed after
// value moved.
package engine

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/google/uuid"
	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/multihubswap/engine/pkg/amm"
	"github.com/multihubswap/engine/pkg/recovery"
	"github.com/multihubswap/engine/pkg/solana"
	"github.com/multihubswap/engine/pkg/solana/multihub"
	"github.com/multihubswap/engine/pkg/solana/token"
)

const defaultSlippageBps = 50

// AddressRole names a program derived address.
type AddressRole string

const (
	RoleState        AddressRole = "state"
	RoleAuthority    AddressRole = "authority"
	RoleContribution AddressRole = "contribution"
)

// Config carries the static parameters for all engine components.
type Config struct {
	Assembler AssemblerConfig
	Pipeline  PipelineConfig

	// SlippageBps is the default slippage tolerance applied when a
	// caller does not specify one.
	SlippageBps uint64

	// CodecVersion selects the wire codec for program frames. Zero
	// selects the current version.
	CodecVersion multihub.CodecVersion
}

// ExecuteResult reports a completed (or settled) swap attempt.
type ExecuteResult struct {
	AttemptId string
	Estimate  *amm.Estimate
	Signature string
}

// RefundReport summarizes the settlement of a single recovered
// attempt.
type RefundReport struct {
	AttemptId       string
	Wallet          string
	DebitedDelta    uint64
	RefundSignature string
	State           recovery.State
}

// Engine composes the assembler, the submission pipeline, and the
// recovery ledger behind a single API.
type Engine struct {
	log       *logrus.Entry
	client    solana.Client
	codec     multihub.Codec
	assembler *Assembler
	pipeline  *Pipeline
	ledger    *recovery.Ledger
	conf      Config
}

// New builds an engine over the provided RPC client (typically a
// Pool). The treasury signer funds compensating transfers; the store
// persists recovery records across restarts.
func New(client solana.Client, store recovery.Store, treasury Signer, conf Config) (*Engine, error) {
	if client == nil {
		return nil, errors.New("rpc client is required")
	}
	if store == nil {
		return nil, errors.New("recovery store is required")
	}
	if conf.SlippageBps == 0 {
		conf.SlippageBps = defaultSlippageBps
	}

	if conf.CodecVersion == multihub.CodecVersionUnknown {
		conf.CodecVersion = multihub.CodecVersionV1
	}
	codec, err := multihub.NewCodec(conf.CodecVersion)
	if err != nil {
		return nil, err
	}

	pipeline := NewPipeline(client, conf.Pipeline)

	compensator := &refundCompensator{
		log:      logrus.StandardLogger().WithField("type", "engine/compensator"),
		pipeline: pipeline,
		treasury: treasury,
		mintA:    conf.Assembler.MintA,
		mintB:    conf.Assembler.MintB,
	}

	return &Engine{
		log:       logrus.StandardLogger().WithField("type", "engine"),
		client:    client,
		codec:     codec,
		assembler: NewAssembler(codec, client, conf.Assembler),
		pipeline:  pipeline,
		ledger:    recovery.NewLedger(store, client, compensator),
		conf:      conf,
	}, nil
}

// DeriveAddress derives the program address for a role. The user key
// is only consulted for per-user roles.
func (e *Engine) DeriveAddress(role AddressRole, user ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	switch role {
	case RoleState:
		return multihub.GetStateAddress()
	case RoleAuthority:
		return multihub.GetAuthorityAddress()
	case RoleContribution:
		if len(user) != ed25519.PublicKeySize {
			return nil, 0, errors.New("contribution address requires a user key")
		}
		return multihub.GetContributionAddress(&multihub.GetContributionAddressArgs{User: user})
	}
	return nil, 0, errors.Errorf("unknown address role: %s", role)
}

// Estimate quotes a swap against the pool's current reserves. A zero
// slippage uses the configured default.
func (e *Engine) Estimate(amountIn uint64, aToB bool, slippageBps uint64) (*amm.Estimate, error) {
	if slippageBps == 0 {
		slippageBps = e.conf.SlippageBps
	}

	pool, err := e.poolState(aToB)
	if err != nil {
		return nil, err
	}

	return amm.Quote(*pool, amountIn, slippageBps)
}

// Execute quotes, assembles, and submits a swap. Every attempt is
// journaled in the recovery ledger before submission so a debit can
// never outlive the process unaccounted for.
func (e *Engine) Execute(ctx context.Context, signer Signer, amountIn uint64, aToB bool, slippageBps uint64) (*ExecuteResult, error) {
	estimate, err := e.Estimate(amountIn, aToB, slippageBps)
	if err != nil {
		return nil, err
	}

	assembled, err := e.assembler.AssembleExecute(&ExecuteParams{
		User:         signer.Public(),
		AmountIn:     amountIn,
		MinAmountOut: estimate.MinAmountOut,
		AToB:         aToB,
	})
	if err != nil {
		return nil, err
	}

	attemptId := uuid.New().String()
	result := &ExecuteResult{
		AttemptId: attemptId,
		Estimate:  estimate,
	}

	_, err = e.ledger.Begin(ctx, attemptId, base58.Encode(signer.Public()), assembled.ResourceIn, assembled.ResourceOut, amountIn, estimate.MinAmountOut)
	if err != nil {
		return nil, errors.Wrap(err, "failed to journal attempt")
	}

	submission, err := e.pipeline.Submit(ctx, assembled, signer)
	if err == nil {
		result.Signature = base58.Encode(submission.Signature[:])
		if err := e.ledger.Complete(ctx, attemptId, result.Signature); err != nil {
			return result, &RecoveryError{AttemptId: attemptId, Err: err}
		}
		return result, nil
	}

	var ambiguous *AmbiguousOutcomeError
	if errors.As(err, &ambiguous) {
		ambiguous.AttemptId = attemptId
	}

	// Whatever the failure mode, the ledger settles the attempt: no
	// debit marks it failed, an output credit proves a late landing,
	// and a bare debit triggers the compensating transfer for the
	// observed delta.
	settled, resolveErr := e.ledger.Resolve(ctx, attemptId)
	if resolveErr != nil {
		e.log.WithError(resolveErr).WithField("attempt_id", attemptId).Warn("failed to settle attempt")
		return result, &RecoveryError{AttemptId: attemptId, Err: resolveErr}
	}

	if settled.State == recovery.StateConfirmed && ambiguous != nil {
		result.Signature = base58.Encode(ambiguous.Signature[:])
		return result, nil
	}

	return result, err
}

// InitializeState creates the program state and authority accounts.
func (e *Engine) InitializeState(ctx context.Context, signer Signer, rates multihub.RateParameters) (string, error) {
	assembled, err := e.assembler.AssembleInitialize(signer.Public(), rates)
	if err != nil {
		return "", err
	}
	return e.submit(ctx, assembled, signer)
}

// CloseState tears the program state down and reclaims rent.
func (e *Engine) CloseState(ctx context.Context, signer Signer) (string, error) {
	assembled, err := e.assembler.AssembleClose(signer.Public())
	if err != nil {
		return "", err
	}
	return e.submit(ctx, assembled, signer)
}

// UpdateParameters replaces the program's rate parameters.
func (e *Engine) UpdateParameters(ctx context.Context, signer Signer, rates multihub.RateParameters) (string, error) {
	assembled, err := e.assembler.AssembleUpdateParameters(signer.Public(), rates)
	if err != nil {
		return "", err
	}
	return e.submit(ctx, assembled, signer)
}

// FundAuthority tops the program authority up with lamports.
func (e *Engine) FundAuthority(ctx context.Context, signer Signer, lamports uint64) (string, error) {
	assembled, err := e.assembler.AssembleFundAuthority(signer.Public(), lamports)
	if err != nil {
		return "", err
	}
	return e.submit(ctx, assembled, signer)
}

// TransferToAuthority deposits tokens into one of the authority's pool
// accounts.
func (e *Engine) TransferToAuthority(ctx context.Context, signer Signer, mint ed25519.PublicKey, amount uint64) (string, error) {
	assembled, err := e.assembler.AssembleTransferToAuthority(signer.Public(), mint, amount)
	if err != nil {
		return "", err
	}
	return e.submit(ctx, assembled, signer)
}

// RecoverPending settles all pending attempts, for one wallet or for
// every wallet when none is given, and reports the outcome of each.
func (e *Engine) RecoverPending(ctx context.Context, wallet string) ([]*RefundReport, error) {
	var records []*recovery.Record
	var err error
	if wallet == "" {
		records, err = e.ledger.ResolveAllPending(ctx)
	} else {
		records, err = e.ledger.ResolvePendingForWallet(ctx, wallet)
	}

	reports := make([]*RefundReport, 0, len(records))
	for _, record := range records {
		report := &RefundReport{
			AttemptId: record.AttemptId,
			Wallet:    record.Wallet,
			State:     record.State,
		}
		if record.DebitedDelta != nil {
			report.DebitedDelta = *record.DebitedDelta
		}
		if record.RefundSignature != nil {
			report.RefundSignature = *record.RefundSignature
		}
		reports = append(reports, report)
	}

	if err != nil {
		return reports, &RecoveryError{Err: err}
	}
	return reports, nil
}

func (e *Engine) submit(ctx context.Context, assembled *Assembled, signer Signer) (string, error) {
	submission, err := e.pipeline.Submit(ctx, assembled, signer)
	if err != nil {
		return "", err
	}
	return base58.Encode(submission.Signature[:]), nil
}

// poolState reads the program state and both pool balances to build an
// estimator snapshot oriented in the direction of the swap.
func (e *Engine) poolState(aToB bool) (*amm.PoolState, error) {
	state, _, err := multihub.GetStateAddress()
	if err != nil {
		return nil, &DerivationError{Role: "state", Err: err}
	}
	authority, _, err := multihub.GetAuthorityAddress()
	if err != nil {
		return nil, &DerivationError{Role: "authority", Err: err}
	}

	info, err := e.client.GetAccountInfo(state, e.conf.Pipeline.Commitment)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load program state")
	}

	var programState multihub.ProgramState
	if err := programState.Unmarshal(info.Data); err != nil {
		return nil, err
	}

	mintIn, mintOut := e.conf.Assembler.MintA, e.conf.Assembler.MintB
	if !aToB {
		mintIn, mintOut = mintOut, mintIn
	}

	poolIn, err := token.GetAssociatedAccount(authority, mintIn)
	if err != nil {
		return nil, &DerivationError{Role: "pool source token account", Err: err}
	}
	poolOut, err := token.GetAssociatedAccount(authority, mintOut)
	if err != nil {
		return nil, &DerivationError{Role: "pool destination token account", Err: err}
	}

	var vaultIn, vaultOut *token.Account
	var eg errgroup.Group
	eg.Go(func() (err error) {
		vaultIn, err = token.NewClient(e.client, mintIn).GetAccount(poolIn, e.conf.Pipeline.Commitment)
		return err
	})
	eg.Go(func() (err error) {
		vaultOut, err = token.NewClient(e.client, mintOut).GetAccount(poolOut, e.conf.Pipeline.Commitment)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, errors.Wrap(err, "failed to read pool reserves")
	}

	return &amm.PoolState{
		ReserveIn:  vaultIn.Amount,
		ReserveOut: vaultOut.Amount,
		FeeBps:     programState.Rates.SwapFeeBps,
	}, nil
}

// refundCompensator issues compensating token transfers from the
// treasury back to the debited account.
type refundCompensator struct {
	log      *logrus.Entry
	pipeline *Pipeline
	treasury Signer
	mintA    ed25519.PublicKey
	mintB    ed25519.PublicKey
}

func (c *refundCompensator) Refund(ctx context.Context, record *recovery.Record, amount uint64) (string, error) {
	if c.treasury == nil {
		return "", ErrMissingCapability
	}

	destination, err := base58.Decode(record.ResourceIn)
	if err != nil {
		return "", errors.Wrap(err, "invalid debited account")
	}
	wallet, err := base58.Decode(record.Wallet)
	if err != nil {
		return "", errors.Wrap(err, "invalid wallet")
	}

	mint, err := c.debitedMint(wallet, destination)
	if err != nil {
		return "", err
	}

	source, err := token.GetAssociatedAccount(c.treasury.Public(), mint)
	if err != nil {
		return "", errors.Wrap(err, "failed to derive treasury account")
	}

	c.log.WithFields(logrus.Fields{
		"attempt_id": record.AttemptId,
		"amount":     amount,
	}).Info("issuing compensating transfer")

	assembled := &Assembled{
		Transaction: solana.NewTransaction(
			c.treasury.Public(),
			token.Transfer(source, destination, c.treasury.Public(), amount),
		),
		Payer: c.treasury.Public(),
	}

	submission, err := c.pipeline.Submit(ctx, assembled, c.treasury)
	if err != nil {
		return "", err
	}
	return base58.Encode(submission.Signature[:]), nil
}

// debitedMint recovers which mint a debited associated token account
// belongs to.
func (c *refundCompensator) debitedMint(wallet, account ed25519.PublicKey) (ed25519.PublicKey, error) {
	for _, mint := range []ed25519.PublicKey{c.mintA, c.mintB} {
		derived, err := token.GetAssociatedAccount(wallet, mint)
		if err != nil {
			return nil, err
		}
		if bytes.Equal(derived, account) {
			return mint, nil
		}
	}
	return nil, errors.New("debited account is not an associated account for a configured mint")
}
