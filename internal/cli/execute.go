package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/multihubswap/engine/pkg/config"
	"github.com/multihubswap/engine/pkg/engine"
)

func NewExecuteCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		amount      string
		bToA        bool
		slippageBps uint64
		keypairFile string
	)

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Execute a swap",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, conf, err := newEngine(rootOpts)
			if err != nil {
				return err
			}

			signer, err := userSigner(conf, keypairFile)
			if err != nil {
				return err
			}

			amountIn, clamped, err := parseAmount(amount)
			if err != nil {
				return err
			}
			if clamped {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: amount clamped to %d\n", amountIn)
			}

			result, err := eng.Execute(cmd.Context(), signer, amountIn, !bToA, slippageBps)
			if result != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "attempt:   %s\n", result.AttemptId)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "signature: %s\n", result.Signature)
			fmt.Fprintf(cmd.OutOrStdout(), "estimated: %d (min %d)\n", result.Estimate.AmountOut, result.Estimate.MinAmountOut)
			return nil
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "input amount in base units")
	cmd.Flags().BoolVar(&bToA, "b-to-a", false, "swap mint B for mint A")
	cmd.Flags().Uint64Var(&slippageBps, "slippage-bps", 0, "slippage tolerance (0 uses the configured default)")
	cmd.Flags().StringVar(&keypairFile, "keypair", "", "keypair file (overrides the configured one)")
	cobra.CheckErr(cmd.MarkFlagRequired("amount"))

	return cmd
}

// userSigner loads the wallet keypair from the flag or the config.
func userSigner(conf *config.Config, override string) (engine.Signer, error) {
	path := override
	if path == "" {
		path = conf.KeypairFile
	}
	if path == "" {
		return nil, errors.New("a keypair file is required")
	}
	return loadSigner(path)
}
