package cli

import (
	"fmt"
	"math/big"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/multihubswap/engine/pkg/solana/multihub"
)

func NewEstimateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		amount      string
		bToA        bool
		slippageBps uint64
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Quote a swap against current pool reserves",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := newEngine(rootOpts)
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

			estimate, err := eng.Estimate(amountIn, !bToA, slippageBps)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "amount in:        %d\n", estimate.AmountIn)
			fmt.Fprintf(cmd.OutOrStdout(), "amount out:       %d\n", estimate.AmountOut)
			fmt.Fprintf(cmd.OutOrStdout(), "min amount out:   %d\n", estimate.MinAmountOut)
			fmt.Fprintf(cmd.OutOrStdout(), "price impact bps: %d\n", estimate.PriceImpactBps)
			return nil
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "input amount in base units")
	cmd.Flags().BoolVar(&bToA, "b-to-a", false, "swap mint B for mint A")
	cmd.Flags().Uint64Var(&slippageBps, "slippage-bps", 0, "slippage tolerance (0 uses the configured default)")
	cobra.CheckErr(cmd.MarkFlagRequired("amount"))

	return cmd
}

// parseAmount folds an arbitrary precision input into the u64 the wire
// format carries, reporting when the value was clamped.
func parseAmount(value string) (uint64, bool, error) {
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return 0, false, errors.Errorf("invalid amount: %s", value)
	}

	amount, clamped := multihub.ClampAmount(parsed)
	return amount, clamped, nil
}
