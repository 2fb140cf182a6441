// Package config loads the run configuration: connection settings, secret
// store and dump repository locations, and the embedded desired-state
// settings block.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/declarr/declarr/document"
	"github.com/declarr/declarr/faults"
	"github.com/declarr/declarr/resource"
)

// Environment variables overriding file values, useful for keeping the api
// key out of committed configuration.
const (
	HostURLEnvVar          = "DECLARR_HOST_URL"
	APIKeyEnvVar           = "DECLARR_API_KEY"
	LogLevelEnvVar         = "DECLARR_LOG_LEVEL"
	SecretKeyEnvVar        = "DECLARR_SECRET_KEY"
	SecretPassphraseEnvVar = "DECLARR_SECRET_PASSPHRASE"
)

const defaultRequestTimeout = 30 * time.Second

type Config struct {
	// HostURL is the base URL of the instance, e.g. http://localhost:9696.
	HostURL string `yaml:"host-url"`
	// APIKey authenticates API requests. When empty the key is resolved from
	// the secret store or probed from the instance.
	APIKey string `yaml:"api-key,omitempty"`
	// Instance names this configuration in the secret store. Defaults to
	// "default".
	Instance string   `yaml:"instance,omitempty"`
	Timeout  Duration `yaml:"timeout,omitempty"`
	LogLevel string   `yaml:"log-level,omitempty"`
	// ForceSecrets re-sends secret values that already converged remotely.
	ForceSecrets bool         `yaml:"force-secrets,omitempty"`
	KeyMatching  KeyMatching  `yaml:"key-matching,omitempty"`
	SecretStore  *SecretStore `yaml:"secret-store,omitempty"`
	Dumps        *DumpStore   `yaml:"dumps,omitempty"`
	// Settings is the desired-state document, kept as a raw node so section
	// definition order survives into the plan.
	Settings yaml.Node `yaml:"settings,omitempty"`
}

// KeyMatching relaxes how desired entry names are matched against remote
// names. Both default to exact matching.
type KeyMatching struct {
	CaseFold  bool `yaml:"case-fold,omitempty"`
	TrimSpace bool `yaml:"trim-space,omitempty"`
}

// SecretStore locates the encrypted api-key cache.
type SecretStore struct {
	Path       string `yaml:"path"`
	Key        string `yaml:"key,omitempty"`
	Passphrase string `yaml:"passphrase,omitempty"`
}

// DumpStore locates the dump repository.
type DumpStore struct {
	BaseDir string   `yaml:"base-dir"`
	Git     *GitDump `yaml:"git,omitempty"`
}

// GitDump configures commit authorship for git-backed dump stores.
type GitDump struct {
	AuthorName  string `yaml:"author-name,omitempty"`
	AuthorEmail string `yaml:"author-email,omitempty"`
}

// Duration parses yaml values like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Load reads the configuration file and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("failed to read config %q", path), err)
	}
	return Parse(data)
}

// Parse builds a configuration from raw bytes and applies environment
// overrides.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, faults.NewTypedError(faults.ValidationError, "config is not valid yaml", err)
	}
	cfg.applyEnvOverrides()

	if strings.TrimSpace(cfg.HostURL) == "" {
		return nil, faults.NewTypedError(faults.ValidationError, "host-url is required", nil)
	}
	if cfg.Instance == "" {
		cfg.Instance = "default"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = Duration(defaultRequestTimeout)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if value, ok := os.LookupEnv(HostURLEnvVar); ok {
		c.HostURL = value
	}
	if value, ok := os.LookupEnv(APIKeyEnvVar); ok {
		c.APIKey = value
	}
	if value, ok := os.LookupEnv(LogLevelEnvVar); ok {
		c.LogLevel = value
	}
	if value, ok := os.LookupEnv(SecretKeyEnvVar); ok {
		c.ensureSecretStore()
		c.SecretStore.Key = value
	}
	if value, ok := os.LookupEnv(SecretPassphraseEnvVar); ok {
		c.ensureSecretStore()
		c.SecretStore.Passphrase = value
	}
}

func (c *Config) ensureSecretStore() {
	if c.SecretStore == nil {
		c.SecretStore = &SecretStore{}
	}
}

// SettingsTree parses the embedded settings block into a desired
// configuration tree. A missing block yields an empty tree.
func (c *Config) SettingsTree() (*resource.Tree, error) {
	if c.Settings.Kind == 0 {
		return resource.NewTree(), nil
	}
	raw, err := yaml.Marshal(&c.Settings)
	if err != nil {
		return nil, faults.NewTypedError(faults.InternalError, "failed to re-encode settings block", err)
	}
	return document.Parse(raw)
}

// RequestTimeout returns the HTTP timeout as a time.Duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout)
}
