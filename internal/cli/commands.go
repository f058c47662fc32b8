package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tablestore/internal/cipher"
	"github.com/mesh-intelligence/tablestore/pkg/tablestore"
	"github.com/mesh-intelligence/tablestore/pkg/types"
)

type updateResult struct {
	Table   string `json:"table"`
	Matched int    `json:"matched"`
}

type deleteResult struct {
	Table   string `json:"table"`
	Deleted int    `json:"deleted"`
}

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a new random encryption key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := cipher.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), k.String())
			return nil
		},
	}
}

func newDefineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "define <table> <column>...",
		Short: "Register a table with ordered columns",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.TableStore) error {
				if err := s.DefineTable(args[0], args[1:]); err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"table": args[0], "columns": args[1:]})
			})
		},
	}
}

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables in definition order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.TableStore) error {
				return printJSON(cmd, s.ListTables())
			})
		},
	}
}

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Print a table's columns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.TableStore) error {
				cols, err := s.TableSchema(args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, cols)
			})
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print every table with its columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s types.TableStore) error {
				return printJSON(cmd, s.DatabaseInfo())
			})
		},
	}
}

func newInsertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <table> <json-object>",
		Short: "Append a record; its keys must equal the table's columns",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := types.ParseRecord([]byte(args[1]))
			if err != nil {
				return fmt.Errorf("%w: %v", errUsage, err)
			}
			return a.withStore(func(s types.TableStore) error {
				if err := s.Insert(args[0], rec); err != nil {
					return err
				}
				return printJSON(cmd, rec)
			})
		},
	}
}

func newReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read <table> [col=value...]",
		Short: "Print records matching every col=value filter",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseFilter(args[1:], false, false)
			if err != nil {
				return err
			}
			return a.withStore(func(s types.TableStore) error {
				rows, err := s.Read(args[0], filter)
				if err != nil {
					return err
				}
				return printJSON(cmd, rows)
			})
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	var (
		sets []string
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "update <table> --set col=value [col=value...]",
		Short: "Set columns on records matching the filter",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(sets) == 0 {
				return fmt.Errorf("%w: at least one --set col=value is required", errUsage)
			}
			updates, err := parseAssignments(sets)
			if err != nil {
				return err
			}
			filter, err := parseFilter(args[1:], true, all)
			if err != nil {
				return err
			}
			return a.withStore(func(s types.TableStore) error {
				n, err := s.Update(args[0], filter, updates)
				if err != nil {
					return err
				}
				return printJSON(cmd, updateResult{Table: args[0], Matched: n})
			})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "col=value to assign (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "update every row when no filter is given")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "delete <table> [col=value...]",
		Short: "Remove records matching the filter",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseFilter(args[1:], true, all)
			if err != nil {
				return err
			}
			return a.withStore(func(s types.TableStore) error {
				n, err := s.Delete(args[0], filter)
				if err != nil {
					return err
				}
				return printJSON(cmd, deleteResult{Table: args[0], Deleted: n})
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "delete every row when no filter is given")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List revisions kept by the sqlite backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.storeConfig()
			if err != nil {
				return err
			}
			revs, err := tablestore.Revisions(cfg)
			if err != nil {
				return err
			}
			if revs == nil {
				revs = []tablestore.Revision{}
			}
			return printJSON(cmd, revs)
		},
	}
}
