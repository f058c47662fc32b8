// Package cli implements the tablestore command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/tablestore/internal/logging"
	"github.com/mesh-intelligence/tablestore/internal/paths"
	"github.com/mesh-intelligence/tablestore/pkg/tablestore"
	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// errUsage marks malformed arguments.
var errUsage = errors.New("usage")

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir     string
	dbPath        string
	keyEnv        string
	passphraseEnv string
	verbose       bool
}

// app is the state shared by one command tree.
type app struct {
	flags     rootFlags
	configDir string
	cfg       *viper.Viper
	log       *zap.SugaredLogger
	lookupEnv func(string) (string, bool)
}

// NewRootCmd creates the top-level "tablestore" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{lookupEnv: os.LookupEnv})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "tablestore",
		Short: "An encrypted single-file table store",
		Long: "tablestore keeps named tables of records in one encrypted file.\n" +
			"The key comes from --key-env (default " + types.DefaultKeyEnv + ") or a passphrase.",
		Version:           tablestore.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (env "+paths.EnvConfigDir+")")
	pf.StringVar(&a.flags.dbPath, "db", "", "database file (env "+paths.EnvDB+")")
	pf.String(cfgKeyBackend, "", "storage backend: file or sqlite")
	pf.String(cfgKeyCodec, "", "snapshot encoding: json or bson")
	pf.StringVar(&a.flags.keyEnv, "key-env", "", "environment variable holding the key")
	pf.StringVar(&a.flags.passphraseEnv, "passphrase-env", "", "environment variable holding a passphrase")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newKeygenCmd(),
		newDefineCmd(a),
		newTablesCmd(a),
		newSchemaCmd(a),
		newInfoCmd(a),
		newInsertCmd(a),
		newReadCmd(a),
		newUpdateCmd(a),
		newDeleteCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// setup builds the logger and loads config.yaml. Commands that touch no
// database skip the config.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	log, err := logging.New(a.flags.verbose)
	if err != nil {
		return err
	}
	a.log = log

	switch cmd.Name() {
	case "version", "keygen", "help":
		return nil
	}

	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	for _, key := range []string{cfgKeyBackend, cfgKeyCodec} {
		if err := v.BindPFlag(key, cmd.Root().PersistentFlags().Lookup(key)); err != nil {
			return fmt.Errorf("bind flag %s: %w", key, err)
		}
	}
	a.configDir = configDir
	a.cfg = v
	return nil
}

// storeConfig assembles a types.Config from flags, config.yaml, and the
// environment.
func (a *app) storeConfig() (types.Config, error) {
	dbPath, err := paths.ResolveDBPath(a.flags.dbPath, a.cfg.GetString(cfgKeyDBPath))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve database path: %w", err)
	}

	cfg := types.Config{
		Backend: a.cfg.GetString(cfgKeyBackend),
		Codec:   a.cfg.GetString(cfgKeyCodec),
		Path:    dbPath,
		KeyEnv:  a.cfg.GetString(cfgKeyKeyEnv),
		History: a.cfg.GetInt(cfgKeyHistory),
	}
	if a.flags.keyEnv != "" {
		cfg.KeyEnv = a.flags.keyEnv
	}
	if a.flags.passphraseEnv != "" {
		pass, ok := a.lookupEnv(a.flags.passphraseEnv)
		if !ok || pass == "" {
			return types.Config{}, fmt.Errorf("%w: %s is not set", errUsage, a.flags.passphraseEnv)
		}
		cfg.Passphrase = pass
	}
	return cfg.Normalize(), nil
}

// keyConfigured reports whether cfg names a key source, so that Open will
// not generate a key.
func (a *app) keyConfigured(cfg types.Config) bool {
	if cfg.Key != "" || cfg.Passphrase != "" {
		return true
	}
	v, _ := a.lookupEnv(cfg.KeyEnv)
	return v != ""
}

// withStore opens the store, runs fn, and closes the store. Only init may
// run with a generated key, since it is the command that prints it.
func (a *app) withStore(fn func(types.TableStore) error) error {
	cfg, err := a.storeConfig()
	if err != nil {
		return err
	}
	if !a.keyConfigured(cfg) {
		return fmt.Errorf("%w: no encryption key: $%s is not set; run \"tablestore init\" "+
			"or \"tablestore keygen\" and export the key, or use --passphrase-env", errUsage, cfg.KeyEnv)
	}
	return a.useStore(cfg, fn)
}

// useStore opens the store for cfg, runs fn, and closes the store.
func (a *app) useStore(cfg types.Config, fn func(types.TableStore) error) error {
	s, err := tablestore.Open(cfg, tablestore.WithLogger(a.log), tablestore.WithLookupEnv(a.lookupEnv))
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		s.Close()
		return err
	}
	return s.Close()
}

// exitCode maps an error to the process exit code.
func exitCode(err error) int {
	var pathErr *fs.PathError
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrFileIO),
		errors.Is(err, types.ErrDecrypt),
		errors.Is(err, types.ErrDeserialize),
		errors.As(err, &pathErr):
		return exitSysError
	default:
		return exitUserError
	}
}

// run executes root with args and reports errors on errOut.
func run(root *cobra.Command, args []string, out, errOut io.Writer) int {
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(errOut, "Error:", err)
	}
	return exitCode(err)
}

// Execute runs the CLI with the process arguments and returns the exit code.
func Execute() int {
	return run(NewRootCmd(), os.Args[1:], os.Stdout, os.Stderr)
}
