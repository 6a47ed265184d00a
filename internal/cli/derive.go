package cli

import (
	"fmt"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/multihubswap/engine/pkg/engine"
)

func NewDeriveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "derive <state|authority|contribution> [user]",
		Short: "Derive a program address",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := newEngine(rootOpts)
			if err != nil {
				return err
			}

			role := engine.AddressRole(args[0])

			var user []byte
			if len(args) > 1 {
				user, err = decodeKey(args[1])
				if err != nil {
					return err
				}
			} else if role == engine.RoleContribution {
				return errors.New("contribution requires a user key")
			}

			address, bump, err := eng.DeriveAddress(role, user)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (bump %d)\n", base58.Encode(address), bump)
			return nil
		},
	}
}
