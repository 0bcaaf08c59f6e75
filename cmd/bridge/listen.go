package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hbmartin/webview-ipc/pkg/protocol"
)

func listenCmd() *cobra.Command {
	var (
		flags connFlags
		keys  []string
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print events broadcast by a running host",
		Long: `Connect as a view and print every event the host broadcasts, one JSON
object per line, until interrupted or the host closes the connection.

Examples:
  bridge listen
  bridge listen --key=tick --view-id=monitor`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ws, _, err := dial(ctx, cfg, &flags)
			if err != nil {
				return err
			}
			defer ws.Close()

			filter := make(map[string]bool, len(keys))
			for _, k := range keys {
				filter[k] = true
			}
			lines := make(chan *protocol.Event, 64)
			ws.Subscribe(func(msg any) {
				ev, ok := protocol.ParseEvent(msg)
				if !ok || (len(filter) > 0 && !filter[ev.Key]) {
					return
				}
				select {
				case lines <- ev:
				default:
				}
			})
			ws.Start()

			for {
				select {
				case ev := <-lines:
					if err := printJSON(os.Stdout, map[string]any{"key": ev.Key, "args": ev.Value}); err != nil {
						return err
					}
				case <-ws.Done():
					return nil
				case <-ctx.Done():
					return nil
				}
			}
		},
	}

	cmd.Flags().StringVarP(&flags.url, "url", "u", "", "Host WebSocket URL (default from bridge.json)")
	cmd.Flags().StringVar(&flags.viewID, "view-id", "", "View id to register as")
	cmd.Flags().StringSliceVarP(&keys, "key", "k", nil, "Only print events with these keys")

	return cmd
}
