package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/multihubswap/engine/pkg/solana/multihub"
)

func rateFlags(cmd *cobra.Command, rates *multihub.RateParameters) {
	cmd.Flags().Uint64Var(&rates.LpContributionBps, "lp-contribution-bps", 2_000, "liquidity contribution rate")
	cmd.Flags().Uint64Var(&rates.AdminFeeBps, "admin-fee-bps", 10, "admin fee rate")
	cmd.Flags().Uint64Var(&rates.CashbackBps, "cashback-bps", 500, "cashback rate")
	cmd.Flags().Uint64Var(&rates.SwapFeeBps, "swap-fee-bps", 30, "swap fee rate")
	cmd.Flags().Uint64Var(&rates.ReferralBps, "referral-bps", 50, "referral rate")
}

func NewInitializeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		rates       multihub.RateParameters
		keypairFile string
	)

	cmd := &cobra.Command{
		Use:   "initialize",
		Short: "Create the program state and authority accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, conf, err := newEngine(rootOpts)
			if err != nil {
				return err
			}
			signer, err := userSigner(conf, keypairFile)
			if err != nil {
				return err
			}

			signature, err := eng.InitializeState(cmd.Context(), signer, rates)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signature: %s\n", signature)
			return nil
		},
	}

	rateFlags(cmd, &rates)
	cmd.Flags().StringVar(&keypairFile, "keypair", "", "admin keypair file")
	return cmd
}

func NewUpdateParamsCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		rates       multihub.RateParameters
		keypairFile string
	)

	cmd := &cobra.Command{
		Use:   "update-params",
		Short: "Replace the program's rate parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, conf, err := newEngine(rootOpts)
			if err != nil {
				return err
			}
			signer, err := userSigner(conf, keypairFile)
			if err != nil {
				return err
			}

			signature, err := eng.UpdateParameters(cmd.Context(), signer, rates)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signature: %s\n", signature)
			return nil
		},
	}

	rateFlags(cmd, &rates)
	cmd.Flags().StringVar(&keypairFile, "keypair", "", "admin keypair file")
	return cmd
}

func NewCloseCommand(rootOpts *RootOptions) *cobra.Command {
	var keypairFile string

	cmd := &cobra.Command{
		Use:   "close",
		Short: "Tear down the program state and reclaim rent",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, conf, err := newEngine(rootOpts)
			if err != nil {
				return err
			}
			signer, err := userSigner(conf, keypairFile)
			if err != nil {
				return err
			}

			signature, err := eng.CloseState(cmd.Context(), signer)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signature: %s\n", signature)
			return nil
		},
	}

	cmd.Flags().StringVar(&keypairFile, "keypair", "", "admin keypair file")
	return cmd
}

func NewFundAuthorityCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		lamports    uint64
		keypairFile string
	)

	cmd := &cobra.Command{
		Use:   "fund-authority",
		Short: "Top the program authority up with lamports",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, conf, err := newEngine(rootOpts)
			if err != nil {
				return err
			}
			signer, err := userSigner(conf, keypairFile)
			if err != nil {
				return err
			}

			signature, err := eng.FundAuthority(cmd.Context(), signer, lamports)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signature: %s\n", signature)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&lamports, "lamports", 0, "lamports to transfer")
	cmd.Flags().StringVar(&keypairFile, "keypair", "", "funder keypair file")
	cobra.CheckErr(cmd.MarkFlagRequired("lamports"))
	return cmd
}

func NewTransferToAuthorityCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		amount      string
		mint        string
		keypairFile string
	)

	cmd := &cobra.Command{
		Use:   "transfer-to-authority",
		Short: "Deposit tokens into one of the authority's pool accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, conf, err := newEngine(rootOpts)
			if err != nil {
				return err
			}
			signer, err := userSigner(conf, keypairFile)
			if err != nil {
				return err
			}

			mintKey, err := decodeKey(mint)
			if err != nil {
				return err
			}
			tokens, clamped, err := parseAmount(amount)
			if err != nil {
				return err
			}
			if clamped {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: amount clamped to %d\n", tokens)
			}

			signature, err := eng.TransferToAuthority(cmd.Context(), signer, mintKey, tokens)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signature: %s\n", signature)
			return nil
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "token amount in base units")
	cmd.Flags().StringVar(&mint, "mint", "", "mint of the deposited token")
	cmd.Flags().StringVar(&keypairFile, "keypair", "", "owner keypair file")
	cobra.CheckErr(cmd.MarkFlagRequired("amount"))
	cobra.CheckErr(cmd.MarkFlagRequired("mint"))
	return cmd
}
