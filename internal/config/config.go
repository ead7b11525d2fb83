package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gzale/wrapcycle/internal/amount"
	clierr "github.com/gzale/wrapcycle/internal/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ModeManual = "manual"
	ModeAuto   = "auto"

	// Canonical WETH9 deployment on mainnet.
	defaultWrappedToken = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	defaultExplorerURL  = "https://etherscan.io"
	defaultCheckinTask  = "daily-wrap"
)

// Flags are the command-line inputs layered on top of file and environment
// configuration.
type Flags struct {
	ConfigPath    string
	EnvFile       string
	Mode          string
	RPCURL        string
	Transactions  int
	DelayMinutes  int
	GasMultiplier string
	Hour          int
	Minute        int
	Confirm       bool
	NoJournal     bool
	Verbose       bool
}

// AccountConfig describes one signing identity: a key source plus the decimal
// amount wrapped whenever the account's wrapped balance is zero.
type AccountConfig struct {
	Key                  string `yaml:"key"`
	KeyEnv               string `yaml:"key_env"`
	KeyFile              string `yaml:"key_file"`
	KeystorePath         string `yaml:"keystore_path"`
	KeystorePassword     string `yaml:"keystore_password"`
	KeystorePasswordFile string `yaml:"keystore_password_file"`
	Amount               string `yaml:"amount"`
}

func (a AccountConfig) hasKeySource() bool {
	return strings.TrimSpace(a.Key) != "" ||
		strings.TrimSpace(a.KeyEnv) != "" ||
		strings.TrimSpace(a.KeyFile) != "" ||
		strings.TrimSpace(a.KeystorePath) != ""
}

type CheckinConfig struct {
	URL     string        `yaml:"url"`
	TaskID  string        `yaml:"task_id"`
	Timeout time.Duration `yaml:"-"`
}

// Config is the immutable run configuration: built once by Load, validated
// before any scheduling begins, never mutated afterward.
type Config struct {
	Mode          string
	Transactions  int
	DelayMinutes  int
	GasMultiplier string
	Hour          *int
	Minute        *int

	RPCURL       string
	WrappedToken string
	ExplorerURL  string
	Confirm      bool
	Verbose      bool

	Checkin CheckinConfig

	JournalEnabled  bool
	JournalPath     string
	JournalLockPath string

	Accounts []AccountConfig
}

type fileConfig struct {
	Mode          string `yaml:"mode"`
	Transactions  *int   `yaml:"transactions"`
	DelayMinutes  *int   `yaml:"delay_minutes"`
	GasMultiplier string `yaml:"gas_multiplier"`
	Schedule      struct {
		Hour   *int `yaml:"hour"`
		Minute *int `yaml:"minute"`
	} `yaml:"schedule"`
	RPCURL       string `yaml:"rpc_url"`
	WrappedToken string `yaml:"wrapped_token"`
	ExplorerURL  string `yaml:"explorer_url"`
	Confirm      *bool  `yaml:"confirm"`
	Checkin      struct {
		URL     string `yaml:"url"`
		TaskID  string `yaml:"task_id"`
		Timeout string `yaml:"timeout"`
	} `yaml:"checkin"`
	Journal struct {
		Enabled  *bool  `yaml:"enabled"`
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"journal"`
	Accounts []AccountConfig `yaml:"accounts"`
}

// Load builds the run configuration: defaults, then the yaml file, then
// environment, then flags, then validation. Any invalid value fails the whole
// load; no partial configuration is accepted.
func Load(flags Flags) (Config, error) {
	if err := loadEnvFile(flags.EnvFile); err != nil {
		return Config{}, err
	}

	cfg, err := defaults()
	if err != nil {
		return Config{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Config{}, err
	}
	if err := applyFile(cfgPath, &cfg); err != nil {
		return Config{}, err
	}

	applyEnv(&cfg)
	applyFlags(flags, &cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	if strings.TrimSpace(path) != "" {
		if err := godotenv.Load(path); err != nil {
			return clierr.Wrap(clierr.CodeConfig, "load env file", err)
		}
		return nil
	}
	// Best effort: a local .env is optional.
	_ = godotenv.Load()
	return nil
}

func defaults() (Config, error) {
	journalPath, lockPath, err := defaultJournalPaths()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Mode:            ModeManual,
		Transactions:    1,
		DelayMinutes:    1,
		GasMultiplier:   "1.3",
		WrappedToken:    defaultWrappedToken,
		ExplorerURL:     defaultExplorerURL,
		JournalEnabled:  true,
		JournalPath:     journalPath,
		JournalLockPath: lockPath,
		Checkin: CheckinConfig{
			TaskID:  defaultCheckinTask,
			Timeout: 10 * time.Second,
		},
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "wrapcycle", "config.yaml"), nil
}

func defaultJournalPaths() (string, string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, "wrapcycle")
	return filepath.Join(dir, "outcomes.db"), filepath.Join(dir, "outcomes.lock"), nil
}

func applyFile(path string, cfg *Config) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return clierr.Wrap(clierr.CodeConfig, "read config", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(buf, &fc); err != nil {
		return clierr.Wrap(clierr.CodeConfig, "parse config yaml", err)
	}

	if fc.Mode != "" {
		cfg.Mode = strings.ToLower(strings.TrimSpace(fc.Mode))
	}
	if fc.Transactions != nil {
		cfg.Transactions = *fc.Transactions
	}
	if fc.DelayMinutes != nil {
		cfg.DelayMinutes = *fc.DelayMinutes
	}
	if fc.GasMultiplier != "" {
		cfg.GasMultiplier = fc.GasMultiplier
	}
	if fc.Schedule.Hour != nil {
		cfg.Hour = fc.Schedule.Hour
	}
	if fc.Schedule.Minute != nil {
		cfg.Minute = fc.Schedule.Minute
	}
	if fc.RPCURL != "" {
		cfg.RPCURL = fc.RPCURL
	}
	if fc.WrappedToken != "" {
		cfg.WrappedToken = fc.WrappedToken
	}
	if fc.ExplorerURL != "" {
		cfg.ExplorerURL = fc.ExplorerURL
	}
	if fc.Confirm != nil {
		cfg.Confirm = *fc.Confirm
	}
	if fc.Checkin.URL != "" {
		cfg.Checkin.URL = fc.Checkin.URL
	}
	if fc.Checkin.TaskID != "" {
		cfg.Checkin.TaskID = fc.Checkin.TaskID
	}
	if fc.Checkin.Timeout != "" {
		d, err := time.ParseDuration(fc.Checkin.Timeout)
		if err != nil {
			return clierr.Wrap(clierr.CodeConfig, "config checkin.timeout", err)
		}
		cfg.Checkin.Timeout = d
	}
	if fc.Journal.Enabled != nil {
		cfg.JournalEnabled = *fc.Journal.Enabled
	}
	if fc.Journal.Path != "" {
		cfg.JournalPath = fc.Journal.Path
	}
	if fc.Journal.LockPath != "" {
		cfg.JournalLockPath = fc.Journal.LockPath
	}
	if len(fc.Accounts) > 0 {
		cfg.Accounts = fc.Accounts
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("WRAPCYCLE_MODE"); v != "" {
		cfg.Mode = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("WRAPCYCLE_TRANSACTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Transactions = n
		}
	}
	if v := os.Getenv("WRAPCYCLE_DELAY_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DelayMinutes = n
		}
	}
	if v := os.Getenv("WRAPCYCLE_GAS_MULTIPLIER"); v != "" {
		cfg.GasMultiplier = v
	}
	if v := os.Getenv("WRAPCYCLE_HOUR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Hour = &n
		}
	}
	if v := os.Getenv("WRAPCYCLE_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Minute = &n
		}
	}
	if v := os.Getenv("WRAPCYCLE_RPC_URL"); v != "" {
		cfg.RPCURL = v
	}
	if v := os.Getenv("WRAPCYCLE_WRAPPED_TOKEN"); v != "" {
		cfg.WrappedToken = v
	}
	if v := os.Getenv("WRAPCYCLE_EXPLORER_URL"); v != "" {
		cfg.ExplorerURL = v
	}
	if v := os.Getenv("WRAPCYCLE_CHECKIN_URL"); v != "" {
		cfg.Checkin.URL = v
	}
	if v := os.Getenv("WRAPCYCLE_CHECKIN_TASK_ID"); v != "" {
		cfg.Checkin.TaskID = v
	}
	if v := os.Getenv("WRAPCYCLE_JOURNAL_PATH"); v != "" {
		cfg.JournalPath = v
	}
	if v := os.Getenv("WRAPCYCLE_JOURNAL_LOCK_PATH"); v != "" {
		cfg.JournalLockPath = v
	}
}

func applyFlags(flags Flags, cfg *Config) {
	if strings.TrimSpace(flags.Mode) != "" {
		cfg.Mode = strings.ToLower(strings.TrimSpace(flags.Mode))
	}
	if flags.Transactions > 0 {
		cfg.Transactions = flags.Transactions
	}
	if flags.DelayMinutes > 0 {
		cfg.DelayMinutes = flags.DelayMinutes
	}
	if strings.TrimSpace(flags.GasMultiplier) != "" {
		cfg.GasMultiplier = flags.GasMultiplier
	}
	if flags.Hour >= 0 {
		h := flags.Hour
		cfg.Hour = &h
	}
	if flags.Minute >= 0 {
		m := flags.Minute
		cfg.Minute = &m
	}
	if strings.TrimSpace(flags.RPCURL) != "" {
		cfg.RPCURL = flags.RPCURL
	}
	if flags.Confirm {
		cfg.Confirm = true
	}
	if flags.NoJournal {
		cfg.JournalEnabled = false
	}
	if flags.Verbose {
		cfg.Verbose = true
	}
}

func (c *Config) validate() error {
	if c.Mode != ModeManual && c.Mode != ModeAuto {
		return clierr.New(clierr.CodeConfig, fmt.Sprintf("mode must be %q or %q, got %q", ModeManual, ModeAuto, c.Mode))
	}
	if c.Transactions < 1 {
		return clierr.New(clierr.CodeConfig, "transactions must be a positive integer")
	}
	if c.DelayMinutes < 1 {
		return clierr.New(clierr.CodeConfig, "delay_minutes must be a positive integer")
	}
	if _, err := c.gasRat(); err != nil {
		return err
	}
	if c.Mode == ModeAuto {
		if c.Hour == nil || c.Minute == nil {
			return clierr.New(clierr.CodeConfig, "auto mode requires schedule hour and minute")
		}
		if *c.Hour < 0 || *c.Hour > 23 {
			return clierr.New(clierr.CodeConfig, fmt.Sprintf("schedule hour must be in [0,23], got %d", *c.Hour))
		}
		if *c.Minute < 0 || *c.Minute > 59 {
			return clierr.New(clierr.CodeConfig, fmt.Sprintf("schedule minute must be in [0,59], got %d", *c.Minute))
		}
	}
	if strings.TrimSpace(c.RPCURL) == "" {
		return clierr.New(clierr.CodeConfig, "rpc_url is required")
	}
	if !common.IsHexAddress(c.WrappedToken) {
		return clierr.New(clierr.CodeConfig, fmt.Sprintf("wrapped_token %q is not a valid address", c.WrappedToken))
	}
	if len(c.Accounts) == 0 {
		return clierr.New(clierr.CodeConfig, "at least one account is required")
	}
	for i, acct := range c.Accounts {
		if !acct.hasKeySource() {
			return clierr.New(clierr.CodeConfig, fmt.Sprintf("account %d: a key source is required (key, key_env, key_file or keystore_path)", i))
		}
		wei, err := WrapAmountWei(acct)
		if err != nil {
			return clierr.Wrap(clierr.CodeConfig, fmt.Sprintf("account %d", i), err)
		}
		if wei.Sign() <= 0 {
			return clierr.New(clierr.CodeConfig, fmt.Sprintf("account %d: amount must be positive", i))
		}
	}
	if c.Checkin.URL != "" && strings.TrimSpace(c.Checkin.TaskID) == "" {
		return clierr.New(clierr.CodeConfig, "checkin.task_id is required when checkin.url is set")
	}
	return nil
}

func (c *Config) gasRat() (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(c.GasMultiplier))
	if !ok {
		return nil, clierr.New(clierr.CodeConfig, fmt.Sprintf("gas_multiplier %q is not a number", c.GasMultiplier))
	}
	if r.Sign() <= 0 {
		return nil, clierr.New(clierr.CodeConfig, "gas_multiplier must be positive")
	}
	return r, nil
}

// GasRat returns the validated gas multiplier as an exact rational.
func (c *Config) GasRat() *big.Rat {
	r, err := c.gasRat()
	if err != nil {
		// validate() ran at load time; an invalid multiplier cannot reach here.
		panic(err)
	}
	return r
}

// Delay is the configured inter-transaction delay.
func (c *Config) Delay() time.Duration {
	return time.Duration(c.DelayMinutes) * time.Minute
}

// WrapAmountWei converts an account's configured decimal amount into the
// token's smallest unit.
func WrapAmountWei(a AccountConfig) (*big.Int, error) {
	return amount.ToBaseUnits(a.Amount, amount.WrappedTokenDecimals)
}
