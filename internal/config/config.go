// Package config loads the host configuration from config.yaml, the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: CMDHOST_LOGIN_USERNAME and so on.
const EnvPrefix = "CMDHOST"

var (
	configData Config
	v          *viper.Viper
)

// DefaultAuthDB is the membership database file name used when auth.db is
// not set.
const DefaultAuthDB = "auth.db"

// Config holds all configuration settings.
type Config struct {
	// Plugin discovery
	Plugins struct {
		Dir     string `mapstructure:"dir"`
		DataDir string `mapstructure:"data_dir"`
	} `mapstructure:"plugins"`
	// Remote login identity; the remote transport only starts when both are
	// set and clients sign their frames with it
	Login struct {
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
	} `mapstructure:"login"`
	// Remote transport
	Server struct {
		Enabled bool   `mapstructure:"enabled"`
		Host    string `mapstructure:"host"`
		Port    int    `mapstructure:"port"`
	} `mapstructure:"server"`
	// Dispatch
	Dispatch struct {
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"dispatch"`
	// Authorization
	Auth struct {
		DB     string              `mapstructure:"db"`
		Groups map[string][]uint64 `mapstructure:"groups"`
	} `mapstructure:"auth"`
	// Console
	Console struct {
		TUI bool `mapstructure:"tui"`
	} `mapstructure:"console"`
	// Logging configuration
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// Address returns the remote transport listen address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// HasLogin reports whether a remote login identity is configured.
func (c *Config) HasLogin() bool {
	return strings.TrimSpace(c.Login.Username) != "" && strings.TrimSpace(c.Login.Password) != ""
}

// DataDir returns the directory holding plugin data directories.
func (c *Config) DataDir() string {
	if filepath.IsAbs(c.Plugins.DataDir) {
		return c.Plugins.DataDir
	}
	return filepath.Join(c.Plugins.Dir, c.Plugins.DataDir)
}

// AuthDB returns the membership database path. Without auth.db it lives in
// the plugin data directory.
func (c *Config) AuthDB() string {
	if strings.TrimSpace(c.Auth.DB) != "" {
		return c.Auth.DB
	}
	return filepath.Join(c.DataDir(), DefaultAuthDB)
}

// Initialize sets up the configuration system. A non-empty file overrides
// the search path; flags maps configuration keys to command line flags that
// override them when set.
func Initialize(file string, flags map[string]*pflag.Flag) error {
	v = viper.New()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")            // name of config file (without extension)
		v.SetConfigType("yaml")              // config file type
		v.AddConfigPath(".")                 // optionally look for config in working directory
		v.AddConfigPath(homeDir())           // look for config in .go_cmdhost directory in home
		v.AddConfigPath("/etc/go_cmdhost/") // path to look for the config file in
	}

	// Set default values
	setDefaults()

	// .env entries become process environment before binding.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}

	// Environment variables
	v.SetEnvPrefix(EnvPrefix) // prefix for env vars
	v.AutomaticEnv()          // read in environment variables that match
	v.SetEnvKeyReplacer(      // replace dots with underscores in env vars
		strings.NewReplacer(".", "_"),
	)

	// Command line flags
	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag.Name, err)
		}
	}

	// Create config file if it doesn't exist
	if file == "" {
		if err := ensureConfig(); err != nil {
			return fmt.Errorf("error creating config file: %w", err)
		}
	}

	// Read in config file
	if err := v.ReadInConfig(); err != nil {
		// It's okay if we can't find a config file, we'll use defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal config into struct
	configData = Config{}
	if err := v.Unmarshal(&configData); err != nil {
		return fmt.Errorf("unable to decode into config struct: %w", err)
	}

	configData.Auth.DB = configData.AuthDB()

	return nil
}

// setDefaults sets default values for all configuration options.
func setDefaults() {
	// Plugin defaults
	v.SetDefault("plugins.dir", "Plugins")
	v.SetDefault("plugins.data_dir", "Data")

	// Login defaults
	v.SetDefault("login.username", "")
	v.SetDefault("login.password", "")

	// Server defaults
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 1600)

	// Dispatch defaults
	v.SetDefault("dispatch.timeout", "0s")

	// Authorization defaults
	v.SetDefault("auth.db", "")
	v.SetDefault("auth.groups", map[string][]uint64{})

	// Console defaults
	v.SetDefault("console.tui", false)

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "human")
}

func homeDir() string {
	return filepath.Join(os.Getenv("HOME"), ".go_cmdhost")
}

const defaultConfig = `# go_cmdhost configuration file
plugins:
  dir: Plugins
  data_dir: Data

# the remote transport starts only when both are set; clients sign
# every frame with them
login:
  username: ""
  password: ""

server:
  enabled: true
  host: localhost
  port: 1600

dispatch:
  timeout: 0s

# empty db means auth.db inside the plugin data directory
auth:
  db: ""
  groups:
    administrator: []

console:
  tui: false

log:
  level: info
  format: human
`

// ensureConfig creates a default config file if none exists.
func ensureConfig() error {
	dir := homeDir()
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err := os.WriteFile(configFile, []byte(defaultConfig), 0o600); err != nil {
			return err
		}
	}

	return nil
}

// Get returns the current configuration.
func Get() *Config {
	return &configData
}

// GetViper returns the viper instance.
func GetViper() *viper.Viper {
	return v
}
