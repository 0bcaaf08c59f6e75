package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/hbmartin/webview-ipc/pkg/rpc"
)

func callCmd() *cobra.Command {
	var flags connFlags

	cmd := &cobra.Command{
		Use:   "call <key> [params...]",
		Short: "Invoke an RPC handler on a running host",
		Long: `Connect as a view, send one request and print the result as JSON.

Each param is decoded as JSON when possible and sent as a string
otherwise.

Examples:
  bridge call echo hello '{"n": 1}'
  bridge call add 1 2 3
  bridge call time --view-id=sidebar --timeout=2s`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ws, logger, err := dial(ctx, cfg, &flags)
			if err != nil {
				return err
			}
			defer ws.Close()

			client, err := rpc.NewClient(ws,
				rpc.WithLogger(logger),
				rpc.WithDefaultTimeout(flags.requestTimeout(cfg)),
			)
			if err != nil {
				return err
			}
			defer client.Dispose()
			ws.Start()

			value, err := client.Call(ctx, args[0], parseArgs(args[1:])...)
			if err != nil {
				return err
			}
			return printJSON(os.Stdout, value)
		},
	}

	cmd.Flags().StringVarP(&flags.url, "url", "u", "", "Host WebSocket URL (default from bridge.json)")
	cmd.Flags().StringVar(&flags.viewID, "view-id", "", "View id to register as")
	cmd.Flags().DurationVarP(&flags.timeout, "timeout", "t", 0, "Request timeout (default from bridge.json)")

	return cmd
}
