// Package config loads the engine's static configuration from a file
// and the environment.
package config

import (
	"strings"
	"time"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/multihubswap/engine/pkg/solana"
	"github.com/multihubswap/engine/pkg/solana/multihub"
)

const envPrefix = "MULTIHUB"

// Config is the full static configuration. Every field can be set in
// the config file or overridden with a MULTIHUB_ environment variable.
type Config struct {
	// Endpoints is the ordered RPC endpoint list; the first entry is
	// the primary.
	Endpoints []string `mapstructure:"endpoints"`

	// ProgramId must match the program binding compiled into the
	// binary. It exists so a misconfigured deployment fails loudly at
	// startup instead of deriving addresses for the wrong program.
	ProgramId string `mapstructure:"program_id"`

	MintA string `mapstructure:"mint_a"`
	MintB string `mapstructure:"mint_b"`

	Commitment string `mapstructure:"commitment"`

	FundingFloor   uint64 `mapstructure:"funding_floor"`
	FundingCeiling uint64 `mapstructure:"funding_ceiling"`

	ComputeUnitLimit uint32 `mapstructure:"compute_unit_limit"`
	ComputeUnitPrice uint64 `mapstructure:"compute_unit_price"`

	SlippageBps uint64 `mapstructure:"slippage_bps"`

	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`

	CodecVersion uint8 `mapstructure:"codec_version"`

	// PostgresDsn enables the durable recovery store. Empty keeps
	// records in memory.
	PostgresDsn string `mapstructure:"postgres_dsn"`

	KeypairFile         string `mapstructure:"keypair_file"`
	TreasuryKeypairFile string `mapstructure:"treasury_keypair_file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoints", []string{string(solana.EnvironmentProd)})
	v.SetDefault("program_id", base58.Encode(multihub.PROGRAM_ID))
	v.SetDefault("commitment", "confirmed")
	v.SetDefault("funding_floor", 1_000_000)
	v.SetDefault("funding_ceiling", 500_000)
	v.SetDefault("compute_unit_limit", 400_000)
	v.SetDefault("compute_unit_price", 0)
	v.SetDefault("slippage_bps", 50)
	v.SetDefault("confirm_timeout", 30*time.Second)
	v.SetDefault("poll_interval", time.Second)
	v.SetDefault("codec_version", uint8(multihub.CodecVersionV1))
}

// Load reads configuration from the given file, or from multihub.yaml
// in the working directory when the path is empty. Environment
// variables always win.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	} else {
		v.SetConfigName("multihub")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "failed to read config file")
			}
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if len(c.Endpoints) == 0 {
		return errors.New("at least one endpoint is required")
	}

	if c.ProgramId != base58.Encode(multihub.PROGRAM_ID) {
		return errors.Errorf("configured program id %s does not match this build", c.ProgramId)
	}

	if _, err := c.CommitmentLevel(); err != nil {
		return err
	}

	if multihub.CodecVersion(c.CodecVersion) != multihub.CodecVersionV1 {
		return errors.Errorf("unsupported codec version: %d", c.CodecVersion)
	}

	for _, mint := range []string{c.MintA, c.MintB} {
		if mint == "" {
			return errors.New("both mints are required")
		}
		raw, err := base58.Decode(mint)
		if err != nil || len(raw) != 32 {
			return errors.Errorf("invalid mint: %s", mint)
		}
	}

	return nil
}

// CommitmentLevel parses the configured commitment.
func (c *Config) CommitmentLevel() (solana.Commitment, error) {
	switch c.Commitment {
	case "processed":
		return solana.CommitmentProcessed, nil
	case "confirmed":
		return solana.CommitmentConfirmed, nil
	case "finalized":
		return solana.CommitmentFinalized, nil
	}
	return solana.Commitment{}, errors.Errorf("unknown commitment level: %s", c.Commitment)
}
