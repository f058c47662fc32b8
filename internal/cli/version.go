package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tablestore/pkg/tablestore"
)

const modulePath = "github.com/mesh-intelligence/tablestore"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tablestore version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "tablestore v%s\nmodule: %s\n", tablestore.Version, modulePath)
			return nil
		},
	}
}
