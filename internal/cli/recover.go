package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewRecoverCommand(rootOpts *RootOptions) *cobra.Command {
	var wallet string

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Settle pending attempts and refund observed debits",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := newEngine(rootOpts)
			if err != nil {
				return err
			}

			reports, err := eng.RecoverPending(cmd.Context(), wallet)
			for _, report := range reports {
				fmt.Fprintf(
					cmd.OutOrStdout(),
					"%s wallet=%s state=%s debited=%d refund=%s\n",
					report.AttemptId,
					report.Wallet,
					report.State,
					report.DebitedDelta,
					report.RefundSignature,
				)
			}
			if err != nil {
				return err
			}

			if len(reports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending attempts")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&wallet, "wallet", "", "limit recovery to one wallet")
	return cmd
}
