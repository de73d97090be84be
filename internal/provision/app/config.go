package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/inbox"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Drivers for the automation capability.
const (
	DriverSimulated = "simulated"
	DriverRemote    = "remote"
)

// Config is layered: defaults, then the YAML file named by --config or
// PROVISION_CONFIG, then PROVISION_* environment variables, then flags.
type Config struct {
	AccountsFile string `yaml:"accounts_file"` // Accounts file, one identifier|secret per line (default: accounts.txt)
	StoreFile    string `yaml:"store_file"`    // Credential store JSON document (default: 2fa_backup.json)
	SealKeyFile  string `yaml:"seal_key_file"` // Optional: key file for sealing secrets at rest (or PROVISION_SEAL_KEY)
	LedgerFile   string `yaml:"ledger_file"`   // Optional: SQLite run history; empty disables it

	Driver      string `yaml:"driver"`     // Automation driver (simulated, remote) (default: simulated)
	DriverURL   string `yaml:"driver_url"` // Base URL of the automation sidecar (remote driver)
	DriverToken string `yaml:"-"`          // Bearer token for the sidecar, env only
	Headless    bool   `yaml:"headless"`   // Run browser sessions headless (default: true)
	ProfileRoot string `yaml:"profile_root"`
	IMAPAddr    string `yaml:"imap_addr"` // IMAP endpoint for inbox reads with the remote driver (default: imap.gmail.com:993)

	Concurrency    int           `yaml:"concurrency"`     // Worker pool size (default: 3)
	SubmitInterval time.Duration `yaml:"submit_interval"` // Minimum spacing between job starts (default: 0)
	StepTimeout    time.Duration `yaml:"step_timeout"`    // Bound on every remote step (default: 2m)
	Label          string        `yaml:"label"`           // App-password label (default: Mail)

	APISecret string `yaml:"-"`      // HS256 secret for operator tokens, env only; empty disables auth
	Issuer    string `yaml:"issuer"` // Operator token issuer (default: provision)

	Env                  string        `yaml:"env"`        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        `yaml:"log_level"`  // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        `yaml:"log_format"` // Log format (json, text) (default: json)
	LogRingSize          int           `yaml:"log_ring_size"`
	Port                 int           `yaml:"port"` // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period"`
	HousekeepingInterval time.Duration `yaml:"housekeeping_interval"`
	RunRetention         time.Duration `yaml:"run_retention"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		AccountsFile:         "accounts.txt",
		StoreFile:            "2fa_backup.json",
		Driver:               DriverSimulated,
		Headless:             true,
		IMAPAddr:             inbox.DefaultIMAPAddr,
		Concurrency:          3,
		StepTimeout:          2 * time.Minute,
		Label:                "Mail",
		Issuer:               "provision",
		Env:                  "dev",
		LogLevel:             "info",
		LogFormat:            "json",
		LogRingSize:          50,
		Port:                 8080,
		ShutdownGracePeriod:  10 * time.Second,
		HousekeepingInterval: 1 * time.Hour,
		RunRetention:         30 * 24 * time.Hour,
	}
}

// LoadConfig applies the config file and environment over the defaults.
// args are scanned for --config only; the rest are left to BindFlags.
func LoadConfig(args []string) (Config, error) {
	cfg := DefaultConfig()

	if path := configPath(args); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()

	return cfg, nil
}

// LoadFile overlays the YAML document at path. Keys absent from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.AccountsFile = getEnvOrDefault("PROVISION_ACCOUNTS_FILE", c.AccountsFile)
	c.StoreFile = getEnvOrDefault("PROVISION_STORE_FILE", c.StoreFile)
	c.SealKeyFile = getEnvOrDefault("PROVISION_SEAL_KEY_FILE", c.SealKeyFile)
	c.LedgerFile = getEnvOrDefault("PROVISION_LEDGER_FILE", c.LedgerFile)

	c.Driver = getEnvOrDefault("PROVISION_DRIVER", c.Driver)
	c.DriverURL = getEnvOrDefault("PROVISION_DRIVER_URL", c.DriverURL)
	c.DriverToken = getEnvOrDefault("PROVISION_DRIVER_TOKEN", c.DriverToken)
	c.Headless = getEnvBoolOrDefault("PROVISION_HEADLESS", c.Headless)
	c.ProfileRoot = getEnvOrDefault("PROVISION_PROFILE_ROOT", c.ProfileRoot)
	c.IMAPAddr = getEnvOrDefault("PROVISION_IMAP_ADDR", c.IMAPAddr)

	c.Concurrency = getEnvIntOrDefault("PROVISION_CONCURRENCY", c.Concurrency)
	c.SubmitInterval = getEnvDurationOrDefault("PROVISION_SUBMIT_INTERVAL", c.SubmitInterval)
	c.StepTimeout = getEnvDurationOrDefault("PROVISION_STEP_TIMEOUT", c.StepTimeout)
	c.Label = getEnvOrDefault("PROVISION_LABEL", c.Label)

	c.APISecret = getEnvOrDefault("PROVISION_API_SECRET", c.APISecret)
	c.Issuer = getEnvOrDefault("PROVISION_ISSUER", c.Issuer)

	c.Env = getEnvOrDefault("ENV", c.Env)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvOrDefault("LOG_FORMAT", c.LogFormat)
	c.LogRingSize = getEnvIntOrDefault("PROVISION_LOG_RING_SIZE", c.LogRingSize)
	c.Port = getEnvIntOrDefault("PORT", c.Port)
	c.ShutdownGracePeriod = getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", c.ShutdownGracePeriod)
	c.HousekeepingInterval = getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", c.HousekeepingInterval)
	c.RunRetention = getEnvDurationOrDefault("PROVISION_RUN_RETENTION", c.RunRetention)
}

// BindFlags registers flags for the settings an operator commonly overrides.
// Flag defaults are the current values, so parsing only changes what is set.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "YAML config file (or PROVISION_CONFIG)")
	fs.StringVarP(&c.AccountsFile, "accounts", "a", c.AccountsFile, "accounts file, one identifier|secret per line")
	fs.StringVar(&c.StoreFile, "store", c.StoreFile, "credential store file")
	fs.StringVar(&c.LedgerFile, "ledger", c.LedgerFile, "SQLite run history file (empty disables)")
	fs.StringVar(&c.Driver, "driver", c.Driver, "automation driver: simulated or remote")
	fs.StringVar(&c.DriverURL, "driver-url", c.DriverURL, "automation sidecar base URL")
	fs.BoolVar(&c.Headless, "headless", c.Headless, "run browser sessions headless")
	fs.StringVar(&c.IMAPAddr, "imap-addr", c.IMAPAddr, "IMAP host:port for inbox reads")
	fs.IntVarP(&c.Concurrency, "concurrency", "c", c.Concurrency, "number of accounts processed at once")
	fs.DurationVar(&c.SubmitInterval, "submit-interval", c.SubmitInterval, "minimum spacing between job starts")
	fs.DurationVar(&c.StepTimeout, "step-timeout", c.StepTimeout, "timeout for each remote step")
	fs.StringVar(&c.Label, "label", c.Label, "app password label")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: json or text")
}

// Validate reports settings that cannot work together.
func (c Config) Validate() error {
	var errs []error

	switch c.Driver {
	case DriverSimulated:
	case DriverRemote:
		if c.DriverURL == "" {
			errs = append(errs, errors.New("remote driver requires a driver URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown driver %q", c.Driver))
	}
	if c.StoreFile == "" {
		errs = append(errs, errors.New("store file is required"))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.StepTimeout <= 0 {
		errs = append(errs, errors.New("step timeout must be positive"))
	}

	return errors.Join(errs...)
}

// configPath finds --config in args without failing on flags meant for a
// subcommand.
func configPath(args []string) string {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	path := fs.String("config", os.Getenv("PROVISION_CONFIG"), "")
	_ = fs.Parse(args)
	return *path
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
