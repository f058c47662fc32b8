// Command tablestore manages an encrypted single-file table store.
package main

import (
	"os"

	"github.com/mesh-intelligence/tablestore/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
