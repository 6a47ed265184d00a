package multihub

import (
	"crypto/ed25519"
)

type InitializeInstructionArgs struct {
	Rates RateParameters
}

type InitializeInstructionAccounts struct {
	Admin     ed25519.PublicKey
	State     ed25519.PublicKey
	Authority ed25519.PublicKey
	MintA     ed25519.PublicKey
	MintB     ed25519.PublicKey
}

func NewInitializeInstruction(
	codec Codec,
	accounts *InitializeInstructionAccounts,
	args *InitializeInstructionArgs,
) (Instruction, error) {
	data, err := codec.Encode(&InitializeFrame{
		Admin: accounts.Admin,
		MintA: accounts.MintA,
		MintB: accounts.MintB,
		Rates: args.Rates,
	})
	if err != nil {
		return Instruction{}, err
	}

	return Instruction{
		Program: PROGRAM_ADDRESS,

		Data: data,

		Accounts: []AccountMeta{
			{
				PublicKey:  accounts.Admin,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.State,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Authority,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.MintA,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.MintB,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSVAR_RENT_PUBKEY,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}, nil
}

type ExecuteInstructionArgs struct {
	AmountIn     uint64
	MinAmountOut uint64
}

type ExecuteInstructionAccounts struct {
	User         ed25519.PublicKey
	State        ed25519.PublicKey
	Authority    ed25519.PublicKey
	PoolIn       ed25519.PublicKey
	PoolOut      ed25519.PublicKey
	UserIn       ed25519.PublicKey
	UserOut      ed25519.PublicKey
	Contribution ed25519.PublicKey
}

func NewExecuteInstruction(
	codec Codec,
	accounts *ExecuteInstructionAccounts,
	args *ExecuteInstructionArgs,
) (Instruction, error) {
	data, err := codec.Encode(&ExecuteFrame{
		AmountIn:     args.AmountIn,
		MinAmountOut: args.MinAmountOut,
	})
	if err != nil {
		return Instruction{}, err
	}

	return Instruction{
		Program: PROGRAM_ADDRESS,

		Data: data,

		Accounts: []AccountMeta{
			{
				PublicKey:  accounts.User,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.State,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Authority,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.PoolIn,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.PoolOut,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.UserIn,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.UserOut,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Contribution,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}, nil
}

type CloseInstructionAccounts struct {
	Admin     ed25519.PublicKey
	State     ed25519.PublicKey
	Authority ed25519.PublicKey
}

func NewCloseInstruction(
	codec Codec,
	accounts *CloseInstructionAccounts,
) (Instruction, error) {
	data, err := codec.Encode(&CloseFrame{})
	if err != nil {
		return Instruction{}, err
	}

	return Instruction{
		Program: PROGRAM_ADDRESS,

		Data: data,

		Accounts: []AccountMeta{
			{
				PublicKey:  accounts.Admin,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.State,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Authority,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}, nil
}

type UpdateParametersInstructionArgs struct {
	Rates RateParameters
}

type UpdateParametersInstructionAccounts struct {
	Admin ed25519.PublicKey
	State ed25519.PublicKey
}

type FundAuthorityInstructionArgs struct {
	Lamports uint64
}

type FundAuthorityInstructionAccounts struct {
	Funder    ed25519.PublicKey
	State     ed25519.PublicKey
	Authority ed25519.PublicKey
}

func NewFundAuthorityInstruction(
	codec Codec,
	accounts *FundAuthorityInstructionAccounts,
	args *FundAuthorityInstructionArgs,
) (Instruction, error) {
	data, err := codec.Encode(&FundAuthorityFrame{
		Lamports: args.Lamports,
	})
	if err != nil {
		return Instruction{}, err
	}

	return Instruction{
		Program: PROGRAM_ADDRESS,

		Data: data,

		Accounts: []AccountMeta{
			{
				PublicKey:  accounts.Funder,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.State,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Authority,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}, nil
}

type TransferToAuthorityInstructionArgs struct {
	Amount uint64
}

type TransferToAuthorityInstructionAccounts struct {
	Owner       ed25519.PublicKey
	State       ed25519.PublicKey
	Authority   ed25519.PublicKey
	Source      ed25519.PublicKey
	Destination ed25519.PublicKey
}

func NewTransferToAuthorityInstruction(
	codec Codec,
	accounts *TransferToAuthorityInstructionAccounts,
	args *TransferToAuthorityInstructionArgs,
) (Instruction, error) {
	data, err := codec.Encode(&TransferToAuthorityFrame{
		Amount: args.Amount,
	})
	if err != nil {
		return Instruction{}, err
	}

	return Instruction{
		Program: PROGRAM_ADDRESS,

		Data: data,

		Accounts: []AccountMeta{
			{
				PublicKey:  accounts.Owner,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.State,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Authority,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Source,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Destination,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}, nil
}

func NewUpdateParametersInstruction(
	codec Codec,
	accounts *UpdateParametersInstructionAccounts,
	args *UpdateParametersInstructionArgs,
) (Instruction, error) {
	data, err := codec.Encode(&UpdateParametersFrame{
		Rates: args.Rates,
	})
	if err != nil {
		return Instruction{}, err
	}

	return Instruction{
		Program: PROGRAM_ADDRESS,

		Data: data,

		Accounts: []AccountMeta{
			{
				PublicKey:  accounts.Admin,
				IsWritable: false,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.State,
				IsWritable: true,
				IsSigner:   false,
			},
		},
	}, nil
}
