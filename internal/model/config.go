package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// MailSourceConfig holds the configuration for a single IMAP mailbox.
type MailSourceConfig struct {
	// ID is the unique identifier for this mailbox; also the keyring key
	// suffix for its password ("imap-<id>").
	ID string `mapstructure:"id" yaml:"id"`

	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`
	TLS      bool   `mapstructure:"tls" yaml:"tls"`

	// Enabled controls whether this mailbox is actively polled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// PollIntervalSec is how often (in seconds) to fetch new mail.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	// SinceDays bounds the IMAP search window.
	SinceDays int `mapstructure:"since_days" yaml:"since_days"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`

	// AllowOrigins restricts CORS. Empty allows any origin.
	AllowOrigins []string `mapstructure:"allow_origins" yaml:"allow_origins"`
}

// BridgeConfig holds change-propagation settings.
type BridgeConfig struct {
	// PollIntervalMs is the dirty-check interval for badge consumers.
	PollIntervalMs int `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms"`

	// CurrentUser is the local user; their own messages never notify.
	CurrentUser string `mapstructure:"current_user" yaml:"current_user"`

	// RecipientUser owns notifications synthesized by the bridge.
	// Defaults to CurrentUser.
	RecipientUser string `mapstructure:"recipient_user" yaml:"recipient_user"`
}

// ClassifierConfig holds classification settings.
type ClassifierConfig struct {
	InternalDomains []string `mapstructure:"internal_domains" yaml:"internal_domains"`
}

// StoreConfig holds snapshot persistence settings. An empty Path keeps
// all state in memory only.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server     ServerConfig       `mapstructure:"server" yaml:"server"`
	Bridge     BridgeConfig       `mapstructure:"bridge" yaml:"bridge"`
	Classifier ClassifierConfig   `mapstructure:"classifier" yaml:"classifier"`
	Store      StoreConfig        `mapstructure:"store" yaml:"store"`
	Log        LogConfig          `mapstructure:"log" yaml:"log"`
	Mail       []MailSourceConfig `mapstructure:"mail" yaml:"mail"`
}

// EnvPrefix is the prefix for environment overrides (NOTIFYD_SERVER_ADDR).
const EnvPrefix = "NOTIFYD"

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/notifyd/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "notifyd", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{Addr: ":8085"},
		Bridge: BridgeConfig{
			PollIntervalMs: 2000,
			CurrentUser:    "me",
		},
		Classifier: ClassifierConfig{
			InternalDomains: []string{"buildright.com"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Mail: []MailSourceConfig{},
	}
}

// NewViper returns a viper instance with defaults and environment
// overrides registered, ready for flag binding.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("server.addr", ":8085")
	v.SetDefault("bridge.poll_interval_ms", 2000)
	v.SetDefault("bridge.current_user", "me")
	v.SetDefault("classifier.internal_domains", []string{"buildright.com"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	return LoadConfigWith(NewViper(), path)
}

// LoadConfigWith is LoadConfig on a caller-prepared viper instance, so
// command-line flags bound to v take precedence over the file.
func LoadConfigWith(v *viper.Viper, path string) (*AppConfig, error) {
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Bridge.PollIntervalMs <= 0 {
		cfg.Bridge.PollIntervalMs = 2000
	}
	if cfg.Bridge.RecipientUser == "" {
		cfg.Bridge.RecipientUser = cfg.Bridge.CurrentUser
	}

	// Apply defaults for each mailbox entry.
	for i := range cfg.Mail {
		if cfg.Mail[i].PollIntervalSec == 0 {
			cfg.Mail[i].PollIntervalSec = 120
		}
		if cfg.Mail[i].SinceDays == 0 {
			cfg.Mail[i].SinceDays = 7
		}
		if cfg.Mail[i].Port == "" {
			cfg.Mail[i].Port = "993"
		}
		if !cfg.Mail[i].Enabled {
			// Viper unmarshals missing bools as false; treat unset as true.
			key := fmt.Sprintf("mail.%d.enabled", i)
			if !v.IsSet(key) {
				cfg.Mail[i].Enabled = true
			}
		}
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("bridge", cfg.Bridge)
	v.Set("classifier", cfg.Classifier)
	v.Set("store", cfg.Store)
	v.Set("log", cfg.Log)
	v.Set("mail", cfg.Mail)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
