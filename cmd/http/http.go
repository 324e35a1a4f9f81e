package http

import "github.com/spf13/cobra"

// NewHTTPCommand groups the API server subcommands.
func NewHTTPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Run the lab API over HTTP and WebSocket",
	}
	cmd.AddCommand(NewStartCommand())
	return cmd
}
