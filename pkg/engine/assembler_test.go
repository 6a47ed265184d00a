package engine

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multihubswap/engine/pkg/solana"
	compute_budget "github.com/multihubswap/engine/pkg/solana/computebudget"
	"github.com/multihubswap/engine/pkg/solana/multihub"
	"github.com/multihubswap/engine/pkg/solana/system"
	"github.com/multihubswap/engine/pkg/solana/token"
)

type assemblerTestEnv struct {
	assembler *Assembler
	client    *fakeClient
	conf      AssemblerConfig

	user      ed25519.PublicKey
	authority ed25519.PublicKey
	userIn    ed25519.PublicKey
	userOut   ed25519.PublicKey
}

func setupAssemblerTestEnv(t *testing.T) *assemblerTestEnv {
	mintA, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	mintB, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	user, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	authority, _, err := multihub.GetAuthorityAddress()
	require.NoError(t, err)

	userIn, err := token.GetAssociatedAccount(user, mintA)
	require.NoError(t, err)
	userOut, err := token.GetAssociatedAccount(user, mintB)
	require.NoError(t, err)

	conf := AssemblerConfig{
		MintA:            mintA,
		MintB:            mintB,
		FundingFloor:     1_000_000,
		FundingCeiling:   300_000,
		ComputeUnitLimit: 400_000,
		ComputeUnitPrice: 1_000,
		Commitment:       solana.CommitmentConfirmed,
	}

	client := newFakeClient()
	client.setTokenBalance(userIn, 10_000_000)
	client.setLamports(authority, 2_000_000)
	client.setAccount(userOut, solana.AccountInfo{Owner: token.ProgramKey})

	codec, err := multihub.NewCodec(multihub.CodecVersionV1)
	require.NoError(t, err)

	return &assemblerTestEnv{
		assembler: NewAssembler(codec, client, conf),
		client:    client,
		conf:      conf,
		user:      user,
		authority: authority,
		userIn:    userIn,
		userOut:   userOut,
	}
}

func instructionPrograms(txn solana.Transaction) []ed25519.PublicKey {
	programs := make([]ed25519.PublicKey, len(txn.Message.Instructions))
	for i, instruction := range txn.Message.Instructions {
		programs[i] = txn.Message.Accounts[instruction.ProgramIndex]
	}
	return programs
}

func TestAssembleExecute(t *testing.T) {
	env := setupAssemblerTestEnv(t)

	assembled, err := env.assembler.AssembleExecute(&ExecuteParams{
		User:         env.user,
		AmountIn:     1_000,
		MinAmountOut: 950,
		AToB:         true,
	})
	require.NoError(t, err)

	assert.EqualValues(t, env.user, assembled.Payer)
	assert.EqualValues(t, env.userIn, assembled.ResourceIn)
	assert.EqualValues(t, env.userOut, assembled.ResourceOut)

	// Both token accounts exist and the authority is funded, so the
	// transaction is just the hints and the swap.
	programs := instructionPrograms(assembled.Transaction)
	require.Len(t, programs, 3)
	assert.EqualValues(t, compute_budget.ProgramKey, programs[0])
	assert.EqualValues(t, compute_budget.ProgramKey, programs[1])
	assert.EqualValues(t, multihub.PROGRAM_ID, programs[2])

	limit, err := compute_budget.ParseSetComputeUnitLimitIxnData(assembled.Transaction.Message.Instructions[0].Data)
	require.NoError(t, err)
	assert.EqualValues(t, env.conf.ComputeUnitLimit, limit)
	price, err := compute_budget.ParseSetComputeUnitPriceIxnData(assembled.Transaction.Message.Instructions[1].Data)
	require.NoError(t, err)
	assert.EqualValues(t, env.conf.ComputeUnitPrice, price)

	data := assembled.Transaction.Message.Instructions[2].Data
	require.Len(t, data, 17)
	assert.EqualValues(t, multihub.FrameTypeExecute, data[0])
	assert.EqualValues(t, 1_000, binary.LittleEndian.Uint64(data[1:9]))
	assert.EqualValues(t, 950, binary.LittleEndian.Uint64(data[9:17]))
}

func TestAssembleExecute_CreatesDestination(t *testing.T) {
	env := setupAssemblerTestEnv(t)

	// B to A: the destination is the user's mint A account, which
	// does not exist yet.
	userInB, err := token.GetAssociatedAccount(env.user, env.conf.MintB)
	require.NoError(t, err)
	env.client.setTokenBalance(userInB, 10_000_000)

	assembled, err := env.assembler.AssembleExecute(&ExecuteParams{
		User:         env.user,
		AmountIn:     1_000,
		MinAmountOut: 950,
		AToB:         false,
	})
	require.NoError(t, err)

	programs := instructionPrograms(assembled.Transaction)
	require.Len(t, programs, 4)
	assert.EqualValues(t, token.AssociatedTokenAccountProgramKey, programs[2])
	assert.EqualValues(t, multihub.PROGRAM_ID, programs[3])
}

func TestAssembleExecute_FundsAuthority(t *testing.T) {
	env := setupAssemblerTestEnv(t)

	// Well below the floor; the shortfall exceeds the ceiling, so the
	// top up is capped.
	env.client.setLamports(env.authority, 100_000)

	assembled, err := env.assembler.AssembleExecute(&ExecuteParams{
		User:         env.user,
		AmountIn:     1_000,
		MinAmountOut: 950,
		AToB:         true,
	})
	require.NoError(t, err)

	programs := instructionPrograms(assembled.Transaction)
	require.Len(t, programs, 4)
	assert.EqualValues(t, system.ProgramKey[:], programs[2])

	funding, err := system.DecompileTransfer(assembled.Transaction.Message, 2)
	require.NoError(t, err)
	assert.EqualValues(t, env.user, funding.Funder)
	assert.EqualValues(t, env.authority, funding.Recipient)
	assert.EqualValues(t, env.conf.FundingCeiling, funding.Lamports)
}

func TestAssembleExecute_InsufficientBalance(t *testing.T) {
	env := setupAssemblerTestEnv(t)

	env.client.setTokenBalance(env.userIn, 500)

	_, err := env.assembler.AssembleExecute(&ExecuteParams{
		User:         env.user,
		AmountIn:     1_000,
		MinAmountOut: 950,
		AToB:         true,
	})

	var balanceErr *InsufficientBalanceError
	require.ErrorAs(t, err, &balanceErr)
	assert.EqualValues(t, 1_000, balanceErr.Required)
	assert.EqualValues(t, 500, balanceErr.Available)
}

func TestAssembleExecute_AddressMismatch(t *testing.T) {
	env := setupAssemblerTestEnv(t)

	wrong, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	_, err = env.assembler.AssembleExecute(&ExecuteParams{
		User:                 env.user,
		AmountIn:             1_000,
		MinAmountOut:         950,
		AToB:                 true,
		ExpectedContribution: wrong,
	})
	assert.ErrorIs(t, err, ErrAddressMismatch)
}

func TestAssembleExecute_ExistingContribution(t *testing.T) {
	env := setupAssemblerTestEnv(t)

	contribution, _, err := multihub.GetContributionAddress(&multihub.GetContributionAddressArgs{
		User: env.user,
	})
	require.NoError(t, err)
	env.client.setAccount(contribution, solana.AccountInfo{
		Data:  (&multihub.LiquidityContribution{User: env.user, ContributedAmount: 42}).Marshal(),
		Owner: multihub.PROGRAM_ID,
	})

	_, err = env.assembler.AssembleExecute(&ExecuteParams{
		User:         env.user,
		AmountIn:     1_000,
		MinAmountOut: 950,
		AToB:         true,
	})
	assert.NoError(t, err)

	// A record for a different user at the derived address means the
	// derivation no longer agrees with the program.
	other, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	env.client.setAccount(contribution, solana.AccountInfo{
		Data:  (&multihub.LiquidityContribution{User: other}).Marshal(),
		Owner: multihub.PROGRAM_ID,
	})

	_, err = env.assembler.AssembleExecute(&ExecuteParams{
		User:         env.user,
		AmountIn:     1_000,
		MinAmountOut: 950,
		AToB:         true,
	})
	assert.ErrorIs(t, err, ErrAddressMismatch)
}

func TestAssembleExecute_MissingReader(t *testing.T) {
	env := setupAssemblerTestEnv(t)

	codec, err := multihub.NewCodec(multihub.CodecVersionV1)
	require.NoError(t, err)
	assembler := NewAssembler(codec, nil, env.conf)

	_, err = assembler.AssembleExecute(&ExecuteParams{
		User:         env.user,
		AmountIn:     1_000,
		MinAmountOut: 950,
		AToB:         true,
	})
	assert.ErrorIs(t, err, ErrMissingCapability)
}

func TestAssembleInitialize(t *testing.T) {
	env := setupAssemblerTestEnv(t)

	admin, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	assembled, err := env.assembler.AssembleInitialize(admin, multihub.RateParameters{SwapFeeBps: 30})
	require.NoError(t, err)

	programs := instructionPrograms(assembled.Transaction)
	require.Len(t, programs, 3)
	assert.EqualValues(t, multihub.PROGRAM_ID, programs[2])

	data := assembled.Transaction.Message.Instructions[2].Data
	require.Len(t, data, 137)
	assert.EqualValues(t, multihub.FrameTypeInitialize, data[0])
}

func TestAssembleTransferToAuthority(t *testing.T) {
	env := setupAssemblerTestEnv(t)

	owner, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	assembled, err := env.assembler.AssembleTransferToAuthority(owner, env.conf.MintA, 5_000)
	require.NoError(t, err)

	programs := instructionPrograms(assembled.Transaction)
	require.Len(t, programs, 3)
	assert.EqualValues(t, multihub.PROGRAM_ID, programs[2])

	data := assembled.Transaction.Message.Instructions[2].Data
	require.Len(t, data, 9)
	assert.EqualValues(t, multihub.FrameTypeTransferToAuthority, data[0])
	assert.EqualValues(t, 5_000, binary.LittleEndian.Uint64(data[1:]))
}
