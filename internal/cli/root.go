// Package cli wires the engine behind a command line. It contains no
// engine logic; every command parses flags, loads configuration, and
// calls the engine API.
package cli

import (
	"crypto/ed25519"
	"encoding/json"
	"os"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/multihubswap/engine/pkg/config"
	"github.com/multihubswap/engine/pkg/engine"
	pg "github.com/multihubswap/engine/pkg/database/postgres"
	"github.com/multihubswap/engine/pkg/recovery"
	"github.com/multihubswap/engine/pkg/recovery/memory"
	"github.com/multihubswap/engine/pkg/recovery/postgres"
	"github.com/multihubswap/engine/pkg/solana"
	"github.com/multihubswap/engine/pkg/solana/multihub"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigFile string
	Verbose    bool
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "multihub",
		Short:         "Client engine for the multihub swap program",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.Verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default ./multihub.yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewDeriveCommand(opts))
	cmd.AddCommand(NewEstimateCommand(opts))
	cmd.AddCommand(NewExecuteCommand(opts))
	cmd.AddCommand(NewInitializeCommand(opts))
	cmd.AddCommand(NewUpdateParamsCommand(opts))
	cmd.AddCommand(NewCloseCommand(opts))
	cmd.AddCommand(NewFundAuthorityCommand(opts))
	cmd.AddCommand(NewTransferToAuthorityCommand(opts))
	cmd.AddCommand(NewRecoverCommand(opts))

	return cmd
}

// newEngine loads configuration and assembles a fully wired engine.
func newEngine(opts *RootOptions) (*engine.Engine, *config.Config, error) {
	conf, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, nil, err
	}

	clients := make([]solana.Client, len(conf.Endpoints))
	for i, endpoint := range conf.Endpoints {
		clients[i] = solana.New(endpoint)
	}
	pool, err := engine.NewPool(clients...)
	if err != nil {
		return nil, nil, err
	}

	store, err := newStore(conf)
	if err != nil {
		return nil, nil, err
	}

	var treasury engine.Signer
	if conf.TreasuryKeypairFile != "" {
		treasury, err = loadSigner(conf.TreasuryKeypairFile)
		if err != nil {
			return nil, nil, err
		}
	}

	commitment, err := conf.CommitmentLevel()
	if err != nil {
		return nil, nil, err
	}
	mintA, err := decodeKey(conf.MintA)
	if err != nil {
		return nil, nil, err
	}
	mintB, err := decodeKey(conf.MintB)
	if err != nil {
		return nil, nil, err
	}

	eng, err := engine.New(pool, store, treasury, engine.Config{
		Assembler: engine.AssemblerConfig{
			MintA:            mintA,
			MintB:            mintB,
			FundingFloor:     conf.FundingFloor,
			FundingCeiling:   conf.FundingCeiling,
			ComputeUnitLimit: conf.ComputeUnitLimit,
			ComputeUnitPrice: conf.ComputeUnitPrice,
			Commitment:       commitment,
		},
		Pipeline: engine.PipelineConfig{
			Commitment:     commitment,
			ConfirmTimeout: conf.ConfirmTimeout,
			PollInterval:   conf.PollInterval,
		},
		SlippageBps:  conf.SlippageBps,
		CodecVersion: multihub.CodecVersion(conf.CodecVersion),
	})
	if err != nil {
		return nil, nil, err
	}
	return eng, conf, nil
}

func newStore(conf *config.Config) (recovery.Store, error) {
	if conf.PostgresDsn == "" {
		return memory.New(), nil
	}

	db, err := pg.NewWithDsn(conf.PostgresDsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to postgres")
	}
	return postgres.New(db), nil
}

// loadSigner reads a keypair file in the standard JSON byte-array
// format.
func loadSigner(path string) (engine.Signer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read keypair file")
	}

	var key []byte
	if err := json.Unmarshal(raw, &key); err != nil {
		return nil, errors.Wrap(err, "invalid keypair file")
	}

	return engine.NewLocalSigner(ed25519.PrivateKey(key))
}

func decodeKey(value string) (ed25519.PublicKey, error) {
	raw, err := base58.Decode(value)
	if err != nil || len(raw) != ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid public key: %s", value)
	}
	return raw, nil
}
