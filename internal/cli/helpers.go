package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/mesh-intelligence/tablestore/pkg/types"
)

// printJSON writes v to the command's stdout as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseValue reads a command-line value: valid JSON is decoded, anything
// else is taken as a string. So 42 is a number, "42" (quoted) and abc are
// strings.
func parseValue(text string) (types.Value, error) {
	if !gjson.Valid(text) {
		return types.String(text), nil
	}
	return types.ParseValue([]byte(text))
}

// parseAssignments turns col=value arguments into a record.
func parseAssignments(args []string) (types.Record, error) {
	rec := make(types.Record, len(args))
	for _, arg := range args {
		col, text, ok := strings.Cut(arg, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("%w: expected col=value, got %q", errUsage, arg)
		}
		if _, dup := rec[col]; dup {
			return nil, fmt.Errorf("%w: column %q given twice", errUsage, col)
		}
		v, err := parseValue(text)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q: %v", errUsage, col, err)
		}
		rec[col] = v
	}
	return rec, nil
}

// parseFilter turns col=value arguments into a filter. An unfiltered
// mutation needs all to be set.
func parseFilter(args []string, mutating, all bool) (types.Filter, error) {
	if mutating && len(args) == 0 && !all {
		return nil, fmt.Errorf("%w: no filter given; pass --all to affect every row", errUsage)
	}
	if all && len(args) > 0 {
		return nil, fmt.Errorf("%w: --all cannot be combined with a filter", errUsage)
	}
	rec, err := parseAssignments(args)
	if err != nil {
		return nil, err
	}
	return types.Filter(rec), nil
}
