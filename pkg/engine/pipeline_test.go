package engine

import (
	"context"
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multihubswap/engine/pkg/solana"
	"github.com/multihubswap/engine/pkg/solana/system"
)

func testPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Commitment:     solana.CommitmentConfirmed,
		ConfirmTimeout: 100 * time.Millisecond,
		PollInterval:   5 * time.Millisecond,
	}
}

func testAssembled(t *testing.T) (*Assembled, Signer) {
	funder, funderKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	recipient, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	signer, err := NewLocalSigner(funderKey)
	require.NoError(t, err)

	return &Assembled{
		Transaction: solana.NewTransaction(funder, system.Transfer(funder, recipient, 100)),
		Payer:       funder,
	}, signer
}

func TestPipeline_HappyPath(t *testing.T) {
	client := newFakeClient()
	pipeline := NewPipeline(client, testPipelineConfig())

	assembled, signer := testAssembled(t)

	result, err := pipeline.Submit(context.Background(), assembled, signer)
	require.NoError(t, err)
	assert.Equal(t, SubmissionStateConfirmed, result.State)
	assert.EqualValues(t, 42, result.Slot)
	assert.NotEqual(t, solana.Signature{}, result.Signature)

	require.Len(t, client.submitted, 1)
	assert.Equal(t, client.blockhash, client.submitted[0].Message.RecentBlockhash)
	assert.Equal(t, 1, client.calls["SimulateTransaction"])
}

func TestPipeline_PreflightRejection(t *testing.T) {
	client := newFakeClient()
	client.simulation = &solana.SimulationResult{
		Err:  solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee),
		Logs: []string{"Program log: insufficient funds"},
	}
	pipeline := NewPipeline(client, testPipelineConfig())

	assembled, signer := testAssembled(t)

	result, err := pipeline.Submit(context.Background(), assembled, signer)

	var preflightErr *PreflightError
	require.ErrorAs(t, err, &preflightErr)
	assert.NotNil(t, preflightErr.Reason)
	assert.NotEmpty(t, preflightErr.Logs)

	assert.Equal(t, SubmissionStateAborted, result.State)
	assert.Empty(t, client.submitted)
}

func TestPipeline_ConfirmedFailure(t *testing.T) {
	client := newFakeClient()
	pipeline := NewPipeline(client, testPipelineConfig())

	assembled, signer := testAssembled(t)

	client.onSubmit = func(_ int, txn solana.Transaction) {
		var sig solana.Signature
		copy(sig[:], txn.Signature())

		client.mu.Lock()
		client.statuses[sig] = &solana.SignatureStatus{
			Slot:        42,
			ErrorResult: solana.NewTransactionError(solana.TransactionErrorAccountInUse),
		}
		client.mu.Unlock()
	}

	result, err := pipeline.Submit(context.Background(), assembled, signer)

	var txnErr *solana.TransactionError
	require.ErrorAs(t, err, &txnErr)
	assert.Equal(t, SubmissionStateConfirmedFailure, result.State)
}

func TestPipeline_AmbiguousOutcome(t *testing.T) {
	client := newFakeClient()
	client.confirmFrom = 1
	pipeline := NewPipeline(client, testPipelineConfig())

	assembled, signer := testAssembled(t)

	result, err := pipeline.Submit(context.Background(), assembled, signer)

	var ambiguous *AmbiguousOutcomeError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, result.Signature, ambiguous.Signature)
	assert.Equal(t, SubmissionStateSent, result.State)
}

func TestPipeline_CancelledBeforeSend(t *testing.T) {
	client := newFakeClient()
	pipeline := NewPipeline(client, testPipelineConfig())

	assembled, signer := testAssembled(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.Submit(ctx, assembled, signer)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, client.submitted)
}
