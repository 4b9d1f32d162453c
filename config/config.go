// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/layer-3/burner/core"
	"github.com/shopspring/decimal"
)

// FeeTokenDecimals is the number of decimals of the fee token used for funding
const FeeTokenDecimals = 18

// Config holds every setting of the service
type Config struct {
	ListenAddr string `env:"BURNER_LISTEN_ADDR" envDefault:":9000"`
	LogLevel   string `env:"BURNER_LOG_LEVEL"   envDefault:"info"`

	RPCURL  string `env:"BURNER_RPC_URL"  envDefault:"https://api.cartridge.gg/x/starter-vrf/katana"`
	ChainID string `env:"BURNER_CHAIN_ID" envDefault:"WP_STARTER_VRF"`

	VRFProviderAddress core.Felt               `env:"BURNER_VRF_PROVIDER_ADDRESS" envDefault:"0x051fea4450da9d6aee758bdeba88b2f665bcbf549d2c61421aa724e9ac0ced8f"`
	ConsumerAddress    core.Felt               `env:"BURNER_CONSUMER_ADDRESS"     envDefault:"0x01b35e76e7d7a03ad640e91fe2125a8c9636761cbe1182e56dfadd7935453754"`
	ConsumeEntrypoint  string                  `env:"BURNER_VRF_CONSUME_ENTRYPOINT" envDefault:"get_random_number"`
	ReadEntrypoint     string                  `env:"BURNER_VRF_READ_ENTRYPOINT"    envDefault:"get_last_random_number"`
	Derivation         core.DerivationStrategy `env:"BURNER_VRF_DERIVATION"         envDefault:"hash"`
	SettleDelay        time.Duration           `env:"BURNER_VRF_SETTLE_DELAY"       envDefault:"2s"`

	ConfirmInterval time.Duration   `env:"BURNER_CONFIRM_INTERVAL" envDefault:"100ms"`
	ConfirmTimeout  time.Duration   `env:"BURNER_CONFIRM_TIMEOUT"  envDefault:"2m"`
	FeeMultiplier   decimal.Decimal `env:"BURNER_FEE_MULTIPLIER"   envDefault:"1.5"`
	CairoVersion    int             `env:"BURNER_ACCOUNT_CAIRO_VERSION" envDefault:"2"`

	MasterAddress        core.Felt `env:"BURNER_MASTER_ADDRESS,required"`
	MasterPrivateKey     string    `env:"BURNER_MASTER_PRIVATE_KEY,unset"`
	MasterPrivateKeyFile string    `env:"BURNER_MASTER_PRIVATE_KEY_FILE,file"`

	AccountClassHash core.Felt       `env:"BURNER_ACCOUNT_CLASS_HASH,required"`
	DeployerAddress  core.Felt       `env:"BURNER_DEPLOYER_ADDRESS"  envDefault:"0x041a78e741e5af2fec34b695679bc6891742439f7afb8484ecd7766661ad02bf"`
	FeeTokenAddress  core.Felt       `env:"BURNER_FEE_TOKEN_ADDRESS" envDefault:"0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d"`
	FundAmount       decimal.Decimal `env:"BURNER_FUND_AMOUNT"       envDefault:"0.01"`
	AutoCreate       bool            `env:"BURNER_AUTO_CREATE"       envDefault:"true"`

	RedisURL       string        `env:"BURNER_REDIS_URL"`
	AccountsTTL    time.Duration `env:"BURNER_ACCOUNTS_TTL"    envDefault:"0s"`
	SessionTTL     time.Duration `env:"BURNER_SESSION_TTL"     envDefault:"720h"`
	SessionKeyFile string        `env:"BURNER_SESSION_KEY_FILE,file"`
	SecureCookies  bool          `env:"BURNER_SECURE_COOKIES"  envDefault:"false"`

	// Sessions idle for SessionIdleTTL lose their in-memory state and persisted accounts
	SessionIdleTTL       time.Duration `env:"BURNER_SESSION_IDLE_TTL"       envDefault:"24h"`
	SessionSweepInterval time.Duration `env:"BURNER_SESSION_SWEEP_INTERVAL" envDefault:"10m"`
}

// Load parses the environment and validates the result
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that the environment parser cannot
func (c *Config) Validate() error {
	var errs []error

	if c.masterKey() == "" {
		errs = append(errs, errors.New("BURNER_MASTER_PRIVATE_KEY or BURNER_MASTER_PRIVATE_KEY_FILE is required"))
	}
	if c.MasterAddress.IsZero() {
		errs = append(errs, errors.New("BURNER_MASTER_ADDRESS must not be zero"))
	}
	if c.AccountClassHash.IsZero() {
		errs = append(errs, errors.New("BURNER_ACCOUNT_CLASS_HASH must not be zero"))
	}
	if !c.Derivation.Valid() {
		errs = append(errs, fmt.Errorf("BURNER_VRF_DERIVATION must be %q or %q, got %q", core.DeriveFromHash, core.DeriveFromContract, c.Derivation))
	}
	if c.ConsumeEntrypoint == "" {
		errs = append(errs, errors.New("BURNER_VRF_CONSUME_ENTRYPOINT must not be empty"))
	}
	if c.Derivation == core.DeriveFromContract && c.ReadEntrypoint == "" {
		errs = append(errs, errors.New("BURNER_VRF_READ_ENTRYPOINT must not be empty"))
	}
	if _, err := core.FeltFromShortString(c.ChainID); err != nil {
		errs = append(errs, fmt.Errorf("BURNER_CHAIN_ID: %w", err))
	}
	if !c.FundAmount.IsPositive() {
		errs = append(errs, errors.New("BURNER_FUND_AMOUNT must be positive"))
	}
	if !c.FeeMultiplier.IsPositive() {
		errs = append(errs, errors.New("BURNER_FEE_MULTIPLIER must be positive"))
	}
	if c.SessionIdleTTL <= 0 {
		errs = append(errs, errors.New("BURNER_SESSION_IDLE_TTL must be positive"))
	}
	if c.SessionSweepInterval <= 0 {
		errs = append(errs, errors.New("BURNER_SESSION_SWEEP_INTERVAL must be positive"))
	}
	if c.CairoVersion != 0 && c.CairoVersion != 2 {
		errs = append(errs, fmt.Errorf("BURNER_ACCOUNT_CAIRO_VERSION must be 0 or 2, got %d", c.CairoVersion))
	}
	if c.ConfirmInterval <= 0 {
		errs = append(errs, errors.New("BURNER_CONFIRM_INTERVAL must be positive"))
	}

	return errors.Join(errs...)
}

// Master returns the sponsoring account
func (c *Config) Master() core.MasterAccount {
	return core.MasterAccount{
		Address:    c.MasterAddress,
		Credential: core.Credential(c.masterKey()),
	}
}

// ChainIDFelt returns the chain id encoded as a short string felt
func (c *Config) ChainIDFelt() core.Felt {
	id, _ := core.FeltFromShortString(c.ChainID)
	return id
}

// FundAmountBaseUnits converts the funding amount to fee token base units
func (c *Config) FundAmountBaseUnits() *big.Int {
	return c.FundAmount.Shift(FeeTokenDecimals).Floor().BigInt()
}

func (c *Config) masterKey() string {
	if c.MasterPrivateKey != "" {
		return strings.TrimSpace(c.MasterPrivateKey)
	}
	return strings.TrimSpace(c.MasterPrivateKeyFile)
}
