// Command shellserve-server runs the file-transfer/pipeline server: the
// public "serve" subcommand, and the hidden "session-worker" subcommand
// the supervisor re-execs itself as for every accepted connection.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "shellserve-server",
		Short: "Accepts client connections and runs authenticated file-transfer and pipeline sessions",
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newWorkerCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
