// Package config loads commitsense settings from defaults, a project YAML file,
// a .env file, the environment and HashiCorp Vault, in increasing precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/vault"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/MyCarrier-DevOps/commitsense/internal/domain"
)

// Environment variable names.
const (
	// EnvAPIKey is the OpenAI API key.
	EnvAPIKey = "OPENAI_API_KEY"

	// EnvAPIURL is the base URL of the OpenAI-compatible API.
	EnvAPIURL = "OPENAI_API_URL"

	// EnvModel is the chat model name.
	EnvModel = "OPENAI_MODEL"

	// EnvLogLevel is the log level (debug, info, error).
	EnvLogLevel = "LOG_LEVEL"

	// EnvLogAppName is the application name for log context.
	EnvLogAppName = "LOG_APP_NAME"

	// EnvConfigFile points at a configuration file used instead of the project file.
	EnvConfigFile = "COMMITSENSE_CONFIG"

	// EnvPrefix prefixes environment overrides for any configuration key,
	// e.g. COMMITSENSE_TAG_PATTERN sets tag_pattern.
	EnvPrefix = "COMMITSENSE_"

	// EnvVaultSecretPath is the Vault KV path holding the API key, optionally
	// suffixed with #key to select the field.
	EnvVaultSecretPath = "VAULT_OPENAI_SECRET_PATH"

	// EnvVaultSecretMount is the Vault KV mount point (defaults to "secret").
	EnvVaultSecretMount = "VAULT_OPENAI_SECRET_MOUNT"
)

// Default values.
const (
	DefaultAPIURL     = "https://api.openai.com/v1"
	DefaultModel      = "gpt-4o"
	DefaultGitBackend = "gogit"
	DefaultLogLevel   = "info"
	DefaultLogAppName = "commitsense"
	DefaultVaultMount = "secret"
	DefaultSecretKey  = "api_key"

	// ProjectConfigFile is looked up in the project directory.
	ProjectConfigFile = ".commitsense.yaml"

	// DotEnvFile is loaded from the project directory and the working directory.
	DotEnvFile = ".env"
)

// Git backends selectable from configuration.
const (
	GitBackendGoGit = "gogit"
	GitBackendCLI   = "cli"
)

// Configuration errors.
var (
	// ErrAPIKeyRequired indicates no API key was found in any configuration layer.
	ErrAPIKeyRequired = fmt.Errorf(
		"%w: OpenAI API key required: set --api-key, %s, api_key in %s, or %s (with VAULT_ADDRESS, VAULT_ROLE_ID, VAULT_SECRET_ID)",
		domain.ErrConfig, EnvAPIKey, ProjectConfigFile, EnvVaultSecretPath,
	)

	// ErrConfigFileNotFound indicates an explicitly requested configuration file does not exist.
	ErrConfigFileNotFound = fmt.Errorf("%w: configuration file not found", domain.ErrConfig)

	// ErrInvalidGitBackend indicates an unknown git backend name.
	ErrInvalidGitBackend = fmt.Errorf("%w: invalid git backend", domain.ErrConfig)

	// ErrVaultClientFailed indicates failure to create or authenticate with Vault.
	ErrVaultClientFailed = errors.New("failed to create Vault client")

	// ErrVaultSecretNotFound indicates the API key was not found in Vault.
	ErrVaultSecretNotFound = errors.New("API key not found in Vault")
)

// VaultClient defines the interface for Vault operations.
type VaultClient interface {
	// GetKVSecret retrieves a secret from Vault's KV v2 secrets engine.
	GetKVSecret(ctx context.Context, path, mount string) (map[string]interface{}, error)
}

// VaultClientFactory creates a VaultClient using AppRole authentication.
type VaultClientFactory func(ctx context.Context) (VaultClient, error)

// DefaultVaultClientFactory creates a VaultClient using goLibMyCarrier/vault with AppRole auth.
func DefaultVaultClientFactory(ctx context.Context) (VaultClient, error) {
	// Uses: VAULT_ADDRESS, VAULT_ROLE_ID, VAULT_SECRET_ID
	vaultConfig, err := vault.VaultLoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	client, err := vault.CreateVaultClient(ctx, vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	return client, nil
}

// Config holds all application configuration.
type Config struct {
	APIKey string `koanf:"api_key"`
	APIURL string `koanf:"api_url"`
	Model  string `koanf:"model"`

	// ProjectType is empty for auto-detection.
	ProjectType string `koanf:"project_type"`

	BaseRef    string `koanf:"base_ref"`
	TagPattern string `koanf:"tag_pattern"`
	TagRegex   string `koanf:"tag_regex"`

	Write   bool `koanf:"write"`
	Nightly bool `koanf:"nightly"`

	// GitBackend is gogit or cli.
	GitBackend string `koanf:"git_backend"`

	LogLevel   string `koanf:"log_level"`
	LogAppName string `koanf:"log_app_name"`

	// Source is the configuration file that was loaded, if any.
	Source string `koanf:"-"`
}

// RequireAPIKey returns ErrAPIKeyRequired when no API key is configured.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrAPIKeyRequired
	}
	return nil
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ProjectPath is the directory searched for .commitsense.yaml and .env.
	ProjectPath string

	// ConfigFile overrides the project configuration file. It must exist.
	ConfigFile string

	// VaultClientFactory creates the Vault client; nil selects DefaultVaultClientFactory.
	VaultClientFactory VaultClientFactory
}

// Load loads configuration for the project at path.
func Load(path string) (*Config, error) {
	return LoadWithOptions(context.Background(), LoadOptions{ProjectPath: path})
}

// LoadWithOptions loads configuration in layers: defaults, configuration file, .env,
// environment, then Vault when the API key is still empty and a Vault path is set.
func LoadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	if opts.ProjectPath == "" {
		opts.ProjectPath = "."
	}

	k := koanf.New(".")
	loadDefaults(k)

	source, err := loadConfigFile(k, opts)
	if err != nil {
		return nil, err
	}

	if err := loadDotEnv(opts.ProjectPath); err != nil {
		return nil, err
	}

	if err := loadEnvironment(k); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %w", domain.ErrConfig, err)
	}
	cfg.Source = source

	if err := ValidateGitBackend(cfg.GitBackend); err != nil {
		return nil, err
	}

	if cfg.APIKey == "" {
		if secretPath := os.Getenv(EnvVaultSecretPath); secretPath != "" {
			key, err := loadAPIKeyFromVault(ctx, opts.VaultClientFactory, secretPath)
			if err != nil {
				return nil, err
			}
			cfg.APIKey = key
		}
	}

	return &cfg, nil
}

// ValidateGitBackend checks that name is a selectable git backend.
func ValidateGitBackend(name string) error {
	switch name {
	case GitBackendGoGit, GitBackendCLI:
		return nil
	default:
		return fmt.Errorf("%w %q: expected %s or %s", ErrInvalidGitBackend, name, GitBackendGoGit, GitBackendCLI)
	}
}

func loadDefaults(k *koanf.Koanf) {
	defaults := map[string]interface{}{
		"api_url":      DefaultAPIURL,
		"model":        DefaultModel,
		"git_backend":  DefaultGitBackend,
		"log_level":    DefaultLogLevel,
		"log_app_name": DefaultLogAppName,
	}
	for key, value := range defaults {
		_ = k.Set(key, value)
	}
}

// loadConfigFile loads the explicit configuration file, or the project file when present.
func loadConfigFile(k *koanf.Koanf, opts LoadOptions) (string, error) {
	path := opts.ConfigFile
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}

	if path != "" {
		if !fileExists(path) {
			return "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
	} else {
		path = filepath.Join(opts.ProjectPath, ProjectConfigFile)
		if !fileExists(path) {
			return "", nil
		}
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return "", fmt.Errorf("%w: failed to load config %s: %w", domain.ErrConfig, path, err)
	}
	return path, nil
}

// loadDotEnv exports variables from .env files without overriding the real environment.
func loadDotEnv(projectPath string) error {
	seen := make(map[string]bool)
	for _, dir := range []string{projectPath, "."} {
		path, err := filepath.Abs(filepath.Join(dir, DotEnvFile))
		if err != nil || seen[path] || !fileExists(path) {
			continue
		}
		seen[path] = true
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("%w: failed to load %s: %w", domain.ErrConfig, path, err)
		}
	}
	return nil
}

// envAliases maps conventional variable names onto configuration keys.
var envAliases = map[string]string{
	EnvAPIKey:     "api_key",
	EnvAPIURL:     "api_url",
	EnvModel:      "model",
	EnvLogLevel:   "log_level",
	EnvLogAppName: "log_app_name",
}

// loadEnvironment applies the conventional variables, then COMMITSENSE_* overrides.
// Empty values are ignored.
func loadEnvironment(k *koanf.Koanf) error {
	aliases := env.ProviderWithValue("", ".", func(name, value string) (string, interface{}) {
		key, ok := envAliases[name]
		if !ok || value == "" {
			return "", nil
		}
		return key, value
	})
	if err := k.Load(aliases, nil); err != nil {
		return fmt.Errorf("%w: failed to load environment config: %w", domain.ErrConfig, err)
	}

	prefixed := env.ProviderWithValue(EnvPrefix, ".", func(name, value string) (string, interface{}) {
		if value == "" || name == EnvConfigFile {
			return "", nil
		}
		return strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), value
	})
	if err := k.Load(prefixed, nil); err != nil {
		return fmt.Errorf("%w: failed to load environment config: %w", domain.ErrConfig, err)
	}
	return nil
}

// loadAPIKeyFromVault reads the API key from Vault KV v2.
func loadAPIKeyFromVault(ctx context.Context, factory VaultClientFactory, fullPath string) (string, error) {
	if factory == nil {
		factory = DefaultVaultClientFactory
	}

	client, err := factory(ctx)
	if err != nil {
		return "", err
	}

	mount := os.Getenv(EnvVaultSecretMount)
	if mount == "" {
		mount = DefaultVaultMount
	}

	path, key := parseVaultPath(fullPath)
	secret, err := client.GetKVSecret(ctx, path, mount)
	if err != nil {
		return "", fmt.Errorf("%w at path %s: %w", ErrVaultSecretNotFound, path, err)
	}

	value, ok := secret[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: key %q missing at path %s", ErrVaultSecretNotFound, key, path)
	}
	return value, nil
}

// parseVaultPath splits "path#key" on the last '#'. Without a '#' the default key is used.
func parseVaultPath(fullPath string) (path, key string) {
	idx := strings.LastIndex(fullPath, "#")
	if idx < 0 {
		return fullPath, DefaultSecretKey
	}
	return fullPath[:idx], fullPath[idx+1:]
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
