package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hbmartin/webview-ipc/internal/errors"
	"github.com/hbmartin/webview-ipc/pkg/logsink"
	"github.com/hbmartin/webview-ipc/pkg/reducer"
)

func actCmd() *cobra.Command {
	var (
		flags    connFlags
		provider string
	)

	cmd := &cobra.Command{
		Use:   "act <key> [params...]",
		Short: "Dispatch a counter action and print the patched state",
		Long: `Connect as a view, dispatch one action to the demo counter provider and
print the state after the host's patch has been applied.

Examples:
  bridge act increment
  bridge act increment 5
  bridge act reset`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if provider == "" {
				provider = cfg.Provider.ID
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

			store, err := reducer.New(provider, ws, 0.0, reducer.Reducers[float64]{
				"increment": applyTotal,
				"reset":     applyTotal,
			}, reducer.WithLogger(logger))
			if err != nil {
				return err
			}
			if err := store.Mount(); err != nil {
				return err
			}
			defer store.Unmount()

			applied := make(chan float64, 1)
			store.Watch(func(total float64) {
				select {
				case applied <- total:
				default:
				}
			})
			ws.Start()

			remote := logsink.NewRemote(ws, logsink.WithLogger(logger))
			remote.Log(ctx, logsink.LevelInfo, "cli action", map[string]any{"key": args[0]})

			if err := store.Actor().Invoke(ctx, args[0], parseArgs(args[1:])...); err != nil {
				return err
			}

			timeout := flags.requestTimeout(cfg)
			select {
			case total := <-applied:
				return printJSON(os.Stdout, map[string]any{"provider": provider, "state": total})
			case <-time.After(timeout):
				return errors.New(errors.CodeTimeout).WithSubject(args[0])
			case <-ws.Done():
				return errors.New(errors.CodeTransportClosed)
			}
		},
	}

	cmd.Flags().StringVarP(&flags.url, "url", "u", "", "Host WebSocket URL (default from bridge.json)")
	cmd.Flags().StringVar(&flags.viewID, "view-id", "", "View id to register as")
	cmd.Flags().DurationVarP(&flags.timeout, "timeout", "t", 0, "How long to wait for the patch (default from bridge.json)")
	cmd.Flags().StringVar(&provider, "provider", "", "Provider id (default from bridge.json)")

	return cmd
}
