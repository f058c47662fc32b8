package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// initResult is printed by init.
type initResult struct {
	Config       string `json:"config"`
	Database     string `json:"database"`
	Backend      string `json:"backend"`
	Codec        string `json:"codec"`
	KeyEnv       string `json:"key_env"`
	GeneratedKey string `json:"generated_key,omitempty"`
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write config.yaml and check access to the database",
		Long: "Write the effective settings to config.yaml, then open the database to\n" +
			"confirm the key can read it. When no key is configured a new key is\n" +
			"generated and printed; export it before storing anything.",
		Args: cobra.NoArgs,
		RunE: a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, args []string) error {
	cfg, err := a.storeConfig()
	if err != nil {
		return err
	}

	file := configFile{
		Backend: cfg.Backend,
		Codec:   cfg.Codec,
		DBPath:  a.flags.dbPath,
		KeyEnv:  cfg.KeyEnv,
	}
	if cfg.History != types.DefaultHistory {
		file.History = cfg.History
	}
	if file.DBPath != "" {
		file.DBPath = cfg.Path
	}
	configPath, err := writeConfig(a.configDir, file)
	if err != nil {
		return err
	}

	res := initResult{
		Config:   configPath,
		Database: cfg.Path,
		Backend:  cfg.Backend,
		Codec:    cfg.Codec,
		KeyEnv:   cfg.KeyEnv,
	}
	generated := !a.keyConfigured(cfg)
	err = a.useStore(cfg, func(s types.TableStore) error {
		if generated {
			res.GeneratedKey = s.EncryptionKey()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	return printJSON(cmd, res)
}
