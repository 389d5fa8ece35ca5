// Package config loads the application configuration consumed by the
// ingestion pipeline: per-chain RPC endpoint lists, the attribution
// service location/credential, the persistence DSN, and the tunables
// that govern scanning cadence and batching. Loading the file itself is
// an ambient concern shared with the out-of-scope CLI front-end; the
// resulting Config struct is what every pipeline component is
// constructed from.
package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"chainwatch/internal/errors"
)

// LogLevel represents the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogConfig holds configuration for application logging
type LogConfig struct {
	Level      LogLevel `yaml:"level"`
	OutputPath string   `yaml:"output_path"`
}

// ChainConfig holds per-chain configuration: an ordered list of RPC
// endpoints (the Chain Adapter fails over across them in order) plus the
// numeric chain id used to tag persisted rows.
type ChainConfig struct {
	// Name is the human-readable, configured chain name (map key in the
	// source file; duplicated here so a ChainConfig is self-describing
	// once pulled out of the map).
	Name string `yaml:"-"`
	// ChainID is the on-chain chain id.
	ChainID int64 `yaml:"chain_id"`
	// RPCURLs is the ordered list of endpoints the adapter fails over
	// across; the first is preferred until it is observed to be broken.
	RPCURLs []string `yaml:"rpc_urls"`
	// NonEVM marks a configured chain the pipeline cannot process; it is
	// skipped at Supervisor startup with a warning rather than treated
	// as a startup error.
	NonEVM bool `yaml:"non_evm"`
}

// AttributionConfig configures the external entity attribution service.
type AttributionConfig struct {
	// BaseURL is the attribution service's HTTP base URL.
	BaseURL string `yaml:"base_url"`
	// Token is the bearer credential sent with every request.
	Token string `yaml:"token"`
	// RequestsPerSecond bounds the token-bucket rate limit shared across
	// all chain workers (spec default: 20).
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// CacheTTLSeconds is how long a cached lookup (positive or negative)
	// remains valid (spec default: 3600).
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

// PersistenceConfig configures the durable store.
type PersistenceConfig struct {
	// DSN is an opaque URI identifying the persistence location; for the
	// bundled SQLite-backed store this is a filesystem path.
	DSN string `yaml:"dsn"`
	// MigrationsPath points at the schema migration files.
	MigrationsPath string `yaml:"migrations_path"`
	// BatchSize is the maximum number of rows accumulated before a batch
	// write is forced (spec default: 100).
	BatchSize int `yaml:"batch_size"`
	// BatchIntervalMillis is the maximum time a batch waits before being
	// forced to flush regardless of size (spec default: 500).
	BatchIntervalMillis int `yaml:"batch_interval_millis"`
}

// Config holds the application configuration.
type Config struct {
	// Chains maps a configured chain name to its configuration.
	Chains map[string]ChainConfig `yaml:"chains"`
	// DefaultChains is the chain selection used when the process input
	// is "all" or unspecified. An empty list, or the single entry "all",
	// selects every configured chain.
	DefaultChains []string `yaml:"default_chains"`
	// BlockCheckIntervalSeconds is how long a worker sleeps between scan
	// iterations and while waiting for the tip to advance (spec default: 12).
	BlockCheckIntervalSeconds int `yaml:"block_check_interval_seconds"`
	// ScanBatchSize is the number of blocks scanned per iteration (spec
	// default: a small integer, e.g. 10).
	ScanBatchSize uint64 `yaml:"scan_batch_size"`
	// ReorgConfirmationDepth is subtracted from the observed tip before
	// scanning (spec default: 0, matching source behavior).
	ReorgConfirmationDepth uint64 `yaml:"reorg_confirmation_depth"`
	Attribution            AttributionConfig `yaml:"attribution"`
	Persistence            PersistenceConfig `yaml:"persistence"`
	Log                    LogConfig         `yaml:"log"`
}

// LoadConfig loads the application configuration from a YAML file and
// environment variables, mirroring the ambient loader the CLI front-end
// (out of scope here) invokes before constructing the DI container.
func LoadConfig() (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	var yamlData []byte
	var err error

	configPaths := []string{
		os.Getenv("CONFIG_PATH"),
		".chainwatch.yaml",
		"../.chainwatch.yaml",
	}

	for _, path := range configPaths {
		if path == "" {
			continue
		}
		if yamlData, err = os.ReadFile(path); err == nil {
			fmt.Printf("Loading config from %s\n", path)
			break
		}
	}

	if err != nil {
		fmt.Println("No config file found, using environment variables")
		cfg = loadFromEnvironment()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	interpolated := interpolateEnvVars(string(yamlData))
	if err := yaml.Unmarshal([]byte(interpolated), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	for name, c := range cfg.Chains {
		c.Name = name
		cfg.Chains[name] = c
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// interpolateEnvVars replaces ${VAR} / ${VAR:-default} / $VAR references
// with environment variable values before the YAML is parsed.
func interpolateEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z0-9_]+)`)

	return re.ReplaceAllStringFunc(content, func(match string) string {
		varName := match
		defaultValue := ""

		varName = strings.TrimPrefix(varName, "${")
		varName = strings.TrimPrefix(varName, "$")
		varName = strings.TrimSuffix(varName, "}")

		if strings.Contains(varName, ":-") {
			parts := strings.SplitN(varName, ":-", 2)
			varName = parts[0]
			defaultValue = parts[1]
		}

		if value, exists := os.LookupEnv(varName); exists && value != "" {
			return value
		}
		return defaultValue
	})
}

// loadFromEnvironment builds a Config entirely from environment
// variables, used when no YAML file is found.
func loadFromEnvironment() *Config {
	chains := map[string]ChainConfig{}
	for _, name := range strings.Fields(getEnv("CHAINS", "ethereum")) {
		prefix := strings.ToUpper(name)
		urls := strings.Fields(os.Getenv(prefix + "_RPC_URLS"))
		if len(urls) == 0 {
			if u := os.Getenv(prefix + "_RPC_URL"); u != "" {
				urls = []string{u}
			}
		}
		chains[name] = ChainConfig{
			Name:    name,
			ChainID: parseEnvInt(prefix+"_CHAIN_ID", 1),
			RPCURLs: urls,
			NonEVM:  parseEnvBool(prefix+"_NON_EVM", false),
		}
	}

	return &Config{
		Chains:                    chains,
		DefaultChains:             strings.Fields(getEnv("DEFAULT_CHAINS", "all")),
		BlockCheckIntervalSeconds: int(parseEnvInt("BLOCK_CHECK_INTERVAL_SECONDS", 12)),
		ScanBatchSize:             uint64(parseEnvInt("SCAN_BATCH_SIZE", 10)),
		ReorgConfirmationDepth:    uint64(parseEnvInt("REORG_CONFIRMATION_DEPTH", 0)),
		Attribution: AttributionConfig{
			BaseURL:           getEnv("ATTRIBUTION_BASE_URL", ""),
			Token:             os.Getenv("ATTRIBUTION_TOKEN"),
			RequestsPerSecond: float64(parseEnvInt("ATTRIBUTION_RPS", 20)),
			CacheTTLSeconds:   int(parseEnvInt("ATTRIBUTION_CACHE_TTL_SECONDS", 3600)),
		},
		Persistence: PersistenceConfig{
			DSN:                 getEnv("PERSISTENCE_DSN", "chainwatch.db"),
			MigrationsPath:      getEnv("MIGRATIONS_PATH", "migrations"),
			BatchSize:           int(parseEnvInt("PERSISTENCE_BATCH_SIZE", 100)),
			BatchIntervalMillis: int(parseEnvInt("PERSISTENCE_BATCH_INTERVAL_MS", 500)),
		},
		Log: LogConfig{
			Level:      LogLevel(getEnv("LOG_LEVEL", string(LogLevelInfo))),
			OutputPath: os.Getenv("LOG_OUTPUT_PATH"),
		},
	}
}

// SelectedChains resolves a process input (a subset of configured chain
// names, or "all") against the configured chain map, skipping any
// configured non-EVM chain with a warning left to the caller (the
// Supervisor logs it; this function only reports the skip). "all" or an
// empty selection resolves to DefaultChains; when that is itself empty or
// "all", every configured chain is selected, in name order.
func (c *Config) SelectedChains(selection []string) (active []ChainConfig, skippedNonEVM []string, err error) {
	names := selection
	if len(names) == 0 || (len(names) == 1 && strings.EqualFold(names[0], "all")) {
		names = c.DefaultChains
	}
	if len(names) == 0 || (len(names) == 1 && strings.EqualFold(names[0], "all")) {
		names = make([]string, 0, len(c.Chains))
		for name := range c.Chains {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	seen := map[string]bool{}
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		cc, ok := c.Chains[name]
		if !ok {
			return nil, nil, errors.NewFatalConfigError(fmt.Sprintf("unconfigured chain: %s", name))
		}
		if cc.NonEVM {
			skippedNonEVM = append(skippedNonEVM, name)
			continue
		}
		active = append(active, cc)
	}

	if len(active) == 0 {
		return nil, skippedNonEVM, errors.NewFatalConfigError("no usable chains: every selected chain is unconfigured or non-EVM")
	}

	return active, skippedNonEVM, nil
}

// Validate reports a FatalConfigError for configuration that would leave
// the pipeline unable to do useful work at startup: no chains configured
// at all, or an attribution service with a base URL but no credential.
func (c *Config) Validate() error {
	if len(c.Chains) == 0 {
		return errors.NewFatalConfigError("no chains configured")
	}
	if c.Attribution.BaseURL != "" && c.Attribution.Token == "" {
		return errors.NewFatalConfigError("attribution service configured without a credential")
	}
	return nil
}

func parseEnvInt(key string, defaultValue int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}

func parseEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// loadEnvFiles tries to load environment variables from .env files in a
// couple of conventional locations, same fallback order as the teacher.
func loadEnvFiles() {
	if customPath := os.Getenv("ENV_FILE"); customPath != "" {
		if err := godotenv.Load(customPath); err == nil {
			return
		}
	}
	if err := godotenv.Load(); err == nil {
		return
	}
	_ = godotenv.Load("../.env")
}
