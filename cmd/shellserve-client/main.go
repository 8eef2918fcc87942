// Command shellserve-client is a thin interactive client for the
// shellserve-server: it performs the username/password handshake, then
// hands the terminal to the user for get/put/help/exit commands and
// arbitrary pipeline lines.
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newConnectCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newConnectCommand() *cobra.Command {
	var address, username, password string

	cmd := &cobra.Command{
		Use:   "shellserve-client [ip [port]]",
		Short: "Connect to a shellserve-server and run an interactive session",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				port := "1234"
				if len(args) > 1 {
					port = args[1]
				}
				address = net.JoinHostPort(args[0], port)
			}
			return runClient(address, username, password)
		},
	}
	cmd.Flags().StringVar(&address, "server", "127.0.0.1:1234", "Server address to connect to")
	cmd.Flags().StringVar(&username, "username", "", "Username (prompted if omitted)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	return cmd
}
