package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend = "backend"
	cfgKeyCodec   = "codec"
	cfgKeyDBPath  = "db_path"
	cfgKeyKeyEnv  = "key_env"
	cfgKeyHistory = "history"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# tablestore CLI configuration

# Storage backend: file or sqlite
backend: file

# Snapshot encoding: json or bson
codec: json

# Environment variable holding the encryption key
key_env: DB_ENCRYPTION_KEY

# Database file (optional; overridable by --db and TABLESTORE_DB)
# db_path:

# Revisions kept by the sqlite backend
# history: 10
`

// configFile holds the structure written to config.yaml by init.
type configFile struct {
	Backend string `yaml:"backend"`
	Codec   string `yaml:"codec"`
	DBPath  string `yaml:"db_path,omitempty"`
	KeyEnv  string `yaml:"key_env"`
	History int    `yaml:"history,omitempty"`
}

// loadConfig reads config.yaml from configDir using Viper. It creates the
// directory and a default config.yaml on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendFile)
	v.SetDefault(cfgKeyCodec, types.CodecJSON)
	v.SetDefault(cfgKeyKeyEnv, types.DefaultKeyEnv)
	v.SetDefault(cfgKeyHistory, types.DefaultHistory)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates config.yaml if it does not exist.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// writeConfig replaces config.yaml with the effective settings.
func writeConfig(configDir string, cfg configFile) (string, error) {
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	path := filepath.Join(configDir, configFileExt)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}
