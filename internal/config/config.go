package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	// EnvPrefix is the prefix for all environment variables
	EnvPrefix = "DBKEEP_"
	// EnvStoragePrefix is the prefix for storage pool environment variables
	EnvStoragePrefix = EnvPrefix + "STORAGE_"
	// EnvNotifyPrefix is the prefix for notification provider environment variables
	EnvNotifyPrefix = EnvPrefix + "NOTIFY_"
	// EnvEnginePrefix is the prefix for database engine environment variables
	EnvEnginePrefix = EnvPrefix + "ENGINE_"
)

// ErrMissing indicates a required setting is absent. Checked before any
// remote call is made.
var ErrMissing = errors.New("required configuration missing")

// Config holds the global application configuration
type Config struct {
	// Backup scope
	Environment string
	Databases   []string
	Keep        int

	// Engine settings
	Engine        string
	EngineArgs    []string
	EngineOptions map[string]string
	AskPassword   bool

	// Storage settings
	DefaultStorage string
	StorageArgs    []string
	StoragePools   map[string]*StoragePool

	// Notification settings
	NotifyArgs    []string
	NotifyConfigs map[string]*NotifyConfig
	NotifyOn      []string

	// Local paths
	DownloadDir string
	TempDir     string

	// Daemon settings
	BackupSchedule  string
	CleanupSchedule string

	// Logging
	LogLevel  string
	LogFormat string
}

// StoragePool represents a named storage pool configuration
type StoragePool struct {
	Name    string
	Type    string
	Options map[string]string
}

// NotifyConfig represents a named notification provider configuration
type NotifyConfig struct {
	Name    string
	Type    string
	Options map[string]string
}

// New creates a new Config with default values
func New() *Config {
	return &Config{
		Keep:          7,
		LogLevel:      "info",
		LogFormat:     "text",
		TempDir:       os.TempDir(),
		EngineOptions: make(map[string]string),
		StoragePools:  make(map[string]*StoragePool),
		NotifyConfigs: make(map[string]*NotifyConfig),
	}
}

// Validate checks that everything a backup run needs is present.
// Wraps ErrMissing so callers can exit before touching the store.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("%w: environment (--environment or %sENVIRONMENT)", ErrMissing, EnvPrefix)
	}
	if len(c.Databases) == 0 {
		return fmt.Errorf("%w: databases (--database or %sDATABASES)", ErrMissing, EnvPrefix)
	}
	if c.Keep <= 0 {
		return fmt.Errorf("%w: keep count must be positive", ErrMissing)
	}
	if c.Engine == "" {
		return fmt.Errorf("%w: engine (--engine or %sENGINE)", ErrMissing, EnvPrefix)
	}
	if len(c.StoragePools) == 0 {
		return fmt.Errorf("%w: at least one storage pool (--storage or %s* variables)", ErrMissing, EnvStoragePrefix)
	}
	return nil
}

// LoadEnvironment fills scope settings from DBKEEP_* variables when the
// corresponding flags were not given. CLI flags always win.
func (c *Config) LoadEnvironment() {
	if c.Environment == "" {
		c.Environment = os.Getenv(EnvPrefix + "ENVIRONMENT")
	}
	if len(c.Databases) == 0 {
		if v := os.Getenv(EnvPrefix + "DATABASES"); v != "" {
			for _, db := range strings.Split(v, ",") {
				if db = strings.TrimSpace(db); db != "" {
					c.Databases = append(c.Databases, db)
				}
			}
		}
	}
	if c.Engine == "" {
		c.Engine = os.Getenv(EnvPrefix + "ENGINE")
	}
}

// IsTracked reports whether database is in the configured backup scope.
func (c *Config) IsTracked(database string) bool {
	for _, db := range c.Databases {
		if db == database {
			return true
		}
	}
	return false
}

// ParseStoragePools builds the storage pool map from environment
// variables and --storage arguments. CLI arguments override env vars.
func (c *Config) ParseStoragePools() error {
	c.parseStorageEnvVars()

	for _, arg := range c.StorageArgs {
		poolName, option, value, err := splitOptionArg(arg)
		if err != nil {
			return fmt.Errorf("invalid storage argument %q: %w", arg, err)
		}
		c.setStoragePoolOption(poolName, option, value)
	}

	for name, pool := range c.StoragePools {
		if pool.Type == "" {
			return fmt.Errorf("storage pool %q is missing required 'type' option", name)
		}
	}

	// A single pool is the implicit default
	if c.DefaultStorage == "" && len(c.StoragePools) == 1 {
		for name := range c.StoragePools {
			c.DefaultStorage = name
		}
	}

	if c.DefaultStorage == "" {
		if envDefault := os.Getenv(EnvPrefix + "DEFAULT_STORAGE"); envDefault != "" {
			c.DefaultStorage = envDefault
		}
	}

	if c.DefaultStorage != "" {
		if _, exists := c.StoragePools[c.DefaultStorage]; !exists {
			return fmt.Errorf("default storage pool %q does not exist", c.DefaultStorage)
		}
	}

	return nil
}

func (c *Config) parseStorageEnvVars() {
	for _, env := range os.Environ() {
		poolName, option, value, ok := splitEnvVar(env, EnvStoragePrefix)
		if !ok {
			continue
		}
		c.setStoragePoolOption(poolName, option, value)
	}
}

func (c *Config) setStoragePoolOption(poolName, option, value string) {
	pool, exists := c.StoragePools[poolName]
	if !exists {
		pool = &StoragePool{
			Name:    poolName,
			Options: make(map[string]string),
		}
		c.StoragePools[poolName] = pool
	}

	if option == "type" {
		pool.Type = value
	} else {
		pool.Options[option] = value
	}
}

// ParseEngineOptions builds the engine option map from DBKEEP_ENGINE_*
// variables and --engine-opt arguments. CLI arguments override env vars.
func (c *Config) ParseEngineOptions() error {
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, EnvEnginePrefix) {
			continue
		}

		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}

		// DBKEEP_ENGINE_ACCESS_KEY -> access-key
		option := strings.TrimPrefix(parts[0], EnvEnginePrefix)
		option = strings.ReplaceAll(strings.ToLower(option), "_", "-")
		c.EngineOptions[option] = parts[1]
	}

	for _, arg := range c.EngineArgs {
		parts := strings.SplitN(arg, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid engine option format: %s (expected option=value)", arg)
		}
		c.EngineOptions[parts[0]] = parts[1]
	}

	return nil
}

// ParseNotifyConfigs builds the notification provider map from
// environment variables and --notify arguments.
func (c *Config) ParseNotifyConfigs() error {
	for _, env := range os.Environ() {
		providerName, option, value, ok := splitEnvVar(env, EnvNotifyPrefix)
		if !ok {
			continue
		}
		c.setNotifyConfigOption(providerName, option, value)
	}

	for _, arg := range c.NotifyArgs {
		providerName, option, value, err := splitOptionArg(arg)
		if err != nil {
			return fmt.Errorf("invalid notify argument %q: %w", arg, err)
		}
		c.setNotifyConfigOption(providerName, option, value)
	}

	for name, cfg := range c.NotifyConfigs {
		if cfg.Type == "" {
			return fmt.Errorf("notification provider %q is missing required 'type' option", name)
		}
	}

	return nil
}

func (c *Config) setNotifyConfigOption(providerName, option, value string) {
	cfg, exists := c.NotifyConfigs[providerName]
	if !exists {
		cfg = &NotifyConfig{
			Name:    providerName,
			Options: make(map[string]string),
		}
		c.NotifyConfigs[providerName] = cfg
	}

	if option == "type" {
		cfg.Type = value
	} else {
		cfg.Options[option] = value
	}
}

// splitOptionArg parses "name.option=value" CLI arguments.
func splitOptionArg(arg string) (name, option, value string, err error) {
	parts := strings.SplitN(arg, "=", 2)
	if len(parts) != 2 {
		return "", "", "", fmt.Errorf("expected name.option=value")
	}

	keyParts := strings.SplitN(parts[0], ".", 2)
	if len(keyParts) != 2 {
		return "", "", "", fmt.Errorf("expected name.option key, got %q", parts[0])
	}

	return keyParts[0], keyParts[1], parts[1], nil
}

// splitEnvVar parses "PREFIX_NAME_SOME_OPTION=value" environment
// variables into (name, some-option, value).
func splitEnvVar(env, prefix string) (name, option, value string, ok bool) {
	if !strings.HasPrefix(env, prefix) {
		return "", "", "", false
	}

	parts := strings.SplitN(env, "=", 2)
	if len(parts) != 2 {
		return "", "", "", false
	}

	remainder := strings.TrimPrefix(parts[0], prefix)

	underscoreIdx := strings.Index(remainder, "_")
	if underscoreIdx == -1 {
		return "", "", "", false
	}

	name = strings.ToLower(remainder[:underscoreIdx])
	option = strings.ToLower(remainder[underscoreIdx+1:])
	option = strings.ReplaceAll(option, "_", "-")

	return name, option, parts[1], true
}
