package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/hbmartin/webview-ipc/internal/config"
	"github.com/hbmartin/webview-ipc/pkg/action"
	"github.com/hbmartin/webview-ipc/pkg/host"
	"github.com/hbmartin/webview-ipc/pkg/middleware"
	"github.com/hbmartin/webview-ipc/pkg/rpc"
	"github.com/hbmartin/webview-ipc/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		port     int
		hostName string
		tick     time.Duration
		anyOrig  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a demo host",
		Long: `Run a host that serves the demo provider over WebSocket.

RPC handlers:
  echo   returns its params
  time   returns the current time and the caller's view id
  add    sums numeric params

Actions (provider id from bridge.json, default "counter"):
  increment [step]   adds step (default 1) and patches the new total
  reset              patches 0

Examples:
  bridge serve
  bridge serve --port=8080 --tick=5s
  bridge serve --any-origin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if hostName != "" {
				cfg.Server.Host = hostName
			}
			if tick > 0 {
				cfg.Provider.TickInterval = tick.String()
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, anyOrig)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from bridge.json)")
	cmd.Flags().StringVarP(&hostName, "host", "H", "", "Host to bind to (default from bridge.json)")
	cmd.Flags().DurationVar(&tick, "tick", 0, "Broadcast a tick event at this interval")
	cmd.Flags().BoolVar(&anyOrig, "any-origin", false, "Accept WebSocket upgrades from any origin")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, anyOrigin bool) error {
	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	srvCfg := server.ConfigFrom(cfg)
	if anyOrigin {
		srvCfg.CheckOrigin = server.AllowAnyOrigin
	}

	var (
		chain    []middleware.Middleware
		observer host.Observer
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := middleware.NewMetrics(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(reg),
		)
		chain = append(chain, metrics)
		observer = metrics
		srvCfg.Gatherer = reg
	}
	if cfg.Tracing.Enabled {
		chain = append(chain, middleware.OpenTelemetry(middleware.WithTracerName(cfg.Tracing.TracerName)))
	}

	handlers := rpc.NewDispatcher(demoHandlers(), rpc.WithLogger(logger), rpc.WithMiddleware(chain...))

	c := &counter{}
	actions, err := action.NewDispatcher(cfg.Provider.ID, map[string]action.Delegate{
		"increment": c.increment,
		"reset":     c.reset,
	}, action.WithLogger(logger), action.WithMiddleware(chain...))
	if err != nil {
		return err
	}

	opts := []host.Option{
		host.WithLogger(logger),
		host.WithRPC(handlers),
		host.WithActions(actions),
		host.WithErrorHandler(func(err error) {
			logger.Error("host error", "error", err)
		}),
	}
	if observer != nil {
		opts = append(opts, host.WithObserver(observer))
	}
	provider := host.NewProvider(cfg.Provider.ViewType, opts...)
	defer provider.Dispose()

	if d := cfg.TickInterval(); d > 0 {
		go broadcastTicks(ctx, provider, d)
	}

	srv := server.New(provider, srvCfg, server.WithLogger(logger))
	success("Serving %s views at %s", cfg.Provider.ViewType, cfg.URL())
	if srvCfg.RPCPath != "" {
		info("JSON-RPC:  http://%s%s", cfg.Address(), srvCfg.RPCPath)
	}
	if srvCfg.MetricsPath != "" {
		info("Metrics:   http://%s%s", cfg.Address(), srvCfg.MetricsPath)
	}
	return srv.ListenAndServe(ctx)
}

func broadcastTicks(ctx context.Context, p *host.Provider, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	var n int
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			n++
			p.Broadcast(ctx, "tick", n, t.UTC().Format(time.RFC3339))
		}
	}
}
