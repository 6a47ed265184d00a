package engine

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/multihubswap/engine/pkg/solana"
	compute_budget "github.com/multihubswap/engine/pkg/solana/computebudget"
	"github.com/multihubswap/engine/pkg/solana/multihub"
	"github.com/multihubswap/engine/pkg/solana/system"
	"github.com/multihubswap/engine/pkg/solana/token"
)

// LedgerReader is the read-only capability the assembler needs to
// inspect account state before building a transaction. A solana.Client
// satisfies it.
type LedgerReader interface {
	GetAccountInfo(ed25519.PublicKey, solana.Commitment) (solana.AccountInfo, error)
	GetBalance(ed25519.PublicKey) (uint64, error)
	GetTokenAccountBalance(ed25519.PublicKey) (uint64, error)
}

// Assembled is a fully built, unsigned transaction together with the
// accounts the recovery ledger needs to watch.
type Assembled struct {
	Transaction solana.Transaction
	Payer       ed25519.PublicKey

	// ResourceIn and ResourceOut are the token accounts debited and
	// credited by the main instruction, when it moves value.
	ResourceIn  ed25519.PublicKey
	ResourceOut ed25519.PublicKey
}

// AssemblerConfig carries the static parameters the assembler applies
// to every transaction it builds.
type AssemblerConfig struct {
	MintA ed25519.PublicKey
	MintB ed25519.PublicKey

	// FundingFloor is the lamport balance below which the program
	// authority gets topped up; FundingCeiling bounds any single
	// top up.
	FundingFloor   uint64
	FundingCeiling uint64

	ComputeUnitLimit uint32
	ComputeUnitPrice uint64

	Commitment solana.Commitment
}

// Assembler builds complete transactions for program operations:
// derived addresses, prerequisite account creation, bounded authority
// funding, the operation frame, and compute budget hints.
type Assembler struct {
	log    *logrus.Entry
	codec  multihub.Codec
	reader LedgerReader
	conf   AssemblerConfig
}

// NewAssembler returns an assembler. The reader may be nil, in which
// case operations that must inspect ledger state fail with
// ErrMissingCapability.
func NewAssembler(codec multihub.Codec, reader LedgerReader, conf AssemblerConfig) *Assembler {
	return &Assembler{
		log:    logrus.StandardLogger().WithField("type", "engine/assembler"),
		codec:  codec,
		reader: reader,
		conf:   conf,
	}
}

// ExecuteParams describes a swap to assemble. MinAmountOut must come
// from a quote; the assembler never invents a bound.
type ExecuteParams struct {
	User         ed25519.PublicKey
	AmountIn     uint64
	MinAmountOut uint64

	// AToB orients the swap: true spends mint A for mint B.
	AToB bool

	// ExpectedContribution optionally pins the contribution address
	// the caller derived on their side.
	ExpectedContribution ed25519.PublicKey
}

// AssembleExecute builds the swap transaction.
func (a *Assembler) AssembleExecute(params *ExecuteParams) (*Assembled, error) {
	if a.reader == nil {
		return nil, ErrMissingCapability
	}

	state, _, err := multihub.GetStateAddress()
	if err != nil {
		return nil, &DerivationError{Role: "state", Err: err}
	}
	authority, _, err := multihub.GetAuthorityAddress()
	if err != nil {
		return nil, &DerivationError{Role: "authority", Err: err}
	}
	contribution, _, err := multihub.GetContributionAddress(&multihub.GetContributionAddressArgs{
		User: params.User,
	})
	if err != nil {
		return nil, &DerivationError{Role: "contribution", Err: err}
	}

	if len(params.ExpectedContribution) > 0 && !bytes.Equal(params.ExpectedContribution, contribution) {
		return nil, ErrAddressMismatch
	}

	// The program creates the contribution record on first use. If an
	// account already exists at the derived address it must decode and
	// belong to the user, otherwise the seed literals have drifted.
	if info, err := a.reader.GetAccountInfo(contribution, a.conf.Commitment); err == nil {
		var record multihub.LiquidityContribution
		if err := record.Unmarshal(info.Data); err != nil {
			return nil, ErrAddressMismatch
		}
		if !bytes.Equal(record.User, params.User) {
			return nil, ErrAddressMismatch
		}
	} else if !errors.Is(err, solana.ErrNoAccountInfo) {
		return nil, errors.Wrap(err, "failed to check contribution account")
	}

	mintIn, mintOut := a.conf.MintA, a.conf.MintB
	if !params.AToB {
		mintIn, mintOut = mintOut, mintIn
	}

	userIn, err := token.GetAssociatedAccount(params.User, mintIn)
	if err != nil {
		return nil, &DerivationError{Role: "user source token account", Err: err}
	}
	userOut, err := token.GetAssociatedAccount(params.User, mintOut)
	if err != nil {
		return nil, &DerivationError{Role: "user destination token account", Err: err}
	}
	poolIn, err := token.GetAssociatedAccount(authority, mintIn)
	if err != nil {
		return nil, &DerivationError{Role: "pool source token account", Err: err}
	}
	poolOut, err := token.GetAssociatedAccount(authority, mintOut)
	if err != nil {
		return nil, &DerivationError{Role: "pool destination token account", Err: err}
	}

	balance, err := a.reader.GetTokenAccountBalance(userIn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read source balance")
	}
	if balance < params.AmountIn {
		return nil, &InsufficientBalanceError{Required: params.AmountIn, Available: balance}
	}

	var instructions []solana.Instruction

	funding, err := a.authorityFunding(params.User, authority)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, funding...)

	creation, err := a.destinationCreation(params.User, mintOut, userOut)
	if err != nil {
		return nil, err
	}
	instructions = append(instructions, creation...)

	main, err := multihub.NewExecuteInstruction(
		a.codec,
		&multihub.ExecuteInstructionAccounts{
			User:         params.User,
			State:        state,
			Authority:    authority,
			PoolIn:       poolIn,
			PoolOut:      poolOut,
			UserIn:       userIn,
			UserOut:      userOut,
			Contribution: contribution,
		},
		&multihub.ExecuteInstructionArgs{
			AmountIn:     params.AmountIn,
			MinAmountOut: params.MinAmountOut,
		},
	)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	instructions = append(instructions, main.ToLegacyInstruction())

	return &Assembled{
		Transaction: solana.NewTransaction(params.User, a.withComputeBudget(instructions)...),
		Payer:       params.User,
		ResourceIn:  userIn,
		ResourceOut: userOut,
	}, nil
}

// AssembleInitialize builds the one-time state initialization
// transaction.
func (a *Assembler) AssembleInitialize(admin ed25519.PublicKey, rates multihub.RateParameters) (*Assembled, error) {
	state, _, err := multihub.GetStateAddress()
	if err != nil {
		return nil, &DerivationError{Role: "state", Err: err}
	}
	authority, _, err := multihub.GetAuthorityAddress()
	if err != nil {
		return nil, &DerivationError{Role: "authority", Err: err}
	}

	main, err := multihub.NewInitializeInstruction(
		a.codec,
		&multihub.InitializeInstructionAccounts{
			Admin:     admin,
			State:     state,
			Authority: authority,
			MintA:     a.conf.MintA,
			MintB:     a.conf.MintB,
		},
		&multihub.InitializeInstructionArgs{Rates: rates},
	)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}

	return &Assembled{
		Transaction: solana.NewTransaction(admin, a.withComputeBudget([]solana.Instruction{main.ToLegacyInstruction()})...),
		Payer:       admin,
	}, nil
}

// AssembleClose builds the state teardown transaction.
func (a *Assembler) AssembleClose(admin ed25519.PublicKey) (*Assembled, error) {
	state, _, err := multihub.GetStateAddress()
	if err != nil {
		return nil, &DerivationError{Role: "state", Err: err}
	}
	authority, _, err := multihub.GetAuthorityAddress()
	if err != nil {
		return nil, &DerivationError{Role: "authority", Err: err}
	}

	main, err := multihub.NewCloseInstruction(
		a.codec,
		&multihub.CloseInstructionAccounts{
			Admin:     admin,
			State:     state,
			Authority: authority,
		},
	)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}

	return &Assembled{
		Transaction: solana.NewTransaction(admin, a.withComputeBudget([]solana.Instruction{main.ToLegacyInstruction()})...),
		Payer:       admin,
	}, nil
}

// AssembleUpdateParameters builds the rate parameter update
// transaction.
func (a *Assembler) AssembleUpdateParameters(admin ed25519.PublicKey, rates multihub.RateParameters) (*Assembled, error) {
	state, _, err := multihub.GetStateAddress()
	if err != nil {
		return nil, &DerivationError{Role: "state", Err: err}
	}

	main, err := multihub.NewUpdateParametersInstruction(
		a.codec,
		&multihub.UpdateParametersInstructionAccounts{
			Admin: admin,
			State: state,
		},
		&multihub.UpdateParametersInstructionArgs{Rates: rates},
	)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}

	return &Assembled{
		Transaction: solana.NewTransaction(admin, a.withComputeBudget([]solana.Instruction{main.ToLegacyInstruction()})...),
		Payer:       admin,
	}, nil
}

// AssembleFundAuthority builds an explicit authority top up through
// the program.
func (a *Assembler) AssembleFundAuthority(funder ed25519.PublicKey, lamports uint64) (*Assembled, error) {
	state, _, err := multihub.GetStateAddress()
	if err != nil {
		return nil, &DerivationError{Role: "state", Err: err}
	}
	authority, _, err := multihub.GetAuthorityAddress()
	if err != nil {
		return nil, &DerivationError{Role: "authority", Err: err}
	}

	main, err := multihub.NewFundAuthorityInstruction(
		a.codec,
		&multihub.FundAuthorityInstructionAccounts{
			Funder:    funder,
			State:     state,
			Authority: authority,
		},
		&multihub.FundAuthorityInstructionArgs{Lamports: lamports},
	)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}

	return &Assembled{
		Transaction: solana.NewTransaction(funder, a.withComputeBudget([]solana.Instruction{main.ToLegacyInstruction()})...),
		Payer:       funder,
	}, nil
}

// AssembleTransferToAuthority builds a token deposit into one of the
// authority's pool accounts.
func (a *Assembler) AssembleTransferToAuthority(owner ed25519.PublicKey, mint ed25519.PublicKey, amount uint64) (*Assembled, error) {
	state, _, err := multihub.GetStateAddress()
	if err != nil {
		return nil, &DerivationError{Role: "state", Err: err}
	}
	authority, _, err := multihub.GetAuthorityAddress()
	if err != nil {
		return nil, &DerivationError{Role: "authority", Err: err}
	}

	source, err := token.GetAssociatedAccount(owner, mint)
	if err != nil {
		return nil, &DerivationError{Role: "source token account", Err: err}
	}
	destination, err := token.GetAssociatedAccount(authority, mint)
	if err != nil {
		return nil, &DerivationError{Role: "pool token account", Err: err}
	}

	main, err := multihub.NewTransferToAuthorityInstruction(
		a.codec,
		&multihub.TransferToAuthorityInstructionAccounts{
			Owner:       owner,
			State:       state,
			Authority:   authority,
			Source:      source,
			Destination: destination,
		},
		&multihub.TransferToAuthorityInstructionArgs{Amount: amount},
	)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}

	return &Assembled{
		Transaction: solana.NewTransaction(owner, a.withComputeBudget([]solana.Instruction{main.ToLegacyInstruction()})...),
		Payer:       owner,
		ResourceIn:  source,
		ResourceOut: destination,
	}, nil
}

// authorityFunding tops the authority back up to the configured floor,
// bounded by the per-attempt ceiling.
func (a *Assembler) authorityFunding(funder, authority ed25519.PublicKey) ([]solana.Instruction, error) {
	if a.conf.FundingFloor == 0 {
		return nil, nil
	}

	balance, err := a.reader.GetBalance(authority)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read authority balance")
	}
	if balance >= a.conf.FundingFloor {
		return nil, nil
	}

	lamports := a.conf.FundingFloor - balance
	if a.conf.FundingCeiling > 0 && lamports > a.conf.FundingCeiling {
		lamports = a.conf.FundingCeiling
	}

	a.log.WithFields(logrus.Fields{
		"balance":  balance,
		"lamports": lamports,
	}).Debug("topping up authority")

	return []solana.Instruction{system.Transfer(funder, authority, lamports)}, nil
}

// destinationCreation creates the user's destination token account
// when it does not exist yet.
func (a *Assembler) destinationCreation(user, mint, destination ed25519.PublicKey) ([]solana.Instruction, error) {
	_, err := a.reader.GetAccountInfo(destination, a.conf.Commitment)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, solana.ErrNoAccountInfo) {
		return nil, errors.Wrap(err, "failed to check destination token account")
	}

	instruction, _, err := token.CreateAssociatedTokenAccountIdempotent(user, user, mint)
	if err != nil {
		return nil, &DerivationError{Role: "destination token account", Err: err}
	}
	return []solana.Instruction{instruction}, nil
}

// withComputeBudget prepends the configured compute budget hints.
func (a *Assembler) withComputeBudget(instructions []solana.Instruction) []solana.Instruction {
	var hints []solana.Instruction
	if a.conf.ComputeUnitLimit > 0 {
		hints = append(hints, compute_budget.SetComputeUnitLimit(a.conf.ComputeUnitLimit))
	}
	if a.conf.ComputeUnitPrice > 0 {
		hints = append(hints, compute_budget.SetComputeUnitPrice(a.conf.ComputeUnitPrice))
	}
	return append(hints, instructions...)
}
