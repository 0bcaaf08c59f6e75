package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/hbmartin/webview-ipc/internal/config"
	"github.com/hbmartin/webview-ipc/internal/errors"
	"github.com/hbmartin/webview-ipc/pkg/transport"
)

// connFlags are shared by the commands that connect as a view.
type connFlags struct {
	url     string
	viewID  string
	timeout time.Duration
}

func (f *connFlags) target(cfg *config.Config) (string, error) {
	raw := f.url
	if raw == "" {
		raw = cfg.URL()
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.New(errors.CodeDialFailed).WithSubject(raw).Wrap(err)
	}
	if f.viewID != "" {
		q := u.Query()
		q.Set("viewId", f.viewID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (f *connFlags) requestTimeout(cfg *config.Config) time.Duration {
	if f.timeout > 0 {
		return f.timeout
	}
	return cfg.RequestTimeout()
}

// dial connects to the host. The caller subscribes and then calls Start.
func dial(ctx context.Context, cfg *config.Config, f *connFlags) (*transport.WebSocket, *slog.Logger, error) {
	target, err := f.target(cfg)
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.Logger(os.Stderr)

	dialCtx, cancel := context.WithTimeout(ctx, f.requestTimeout(cfg))
	defer cancel()
	ws, err := transport.Dial(dialCtx, target,
		transport.WithLogger(logger),
		transport.WithReadLimit(cfg.Server.MaxMessageSize),
	)
	if err != nil {
		return nil, nil, errors.New(errors.CodeDialFailed).WithSubject(target).Wrap(err)
	}
	return ws, logger, nil
}

// parseArgs decodes each argument as JSON, keeping it as a string when it
// is not valid JSON.
func parseArgs(args []string) []any {
	params := make([]any, 0, len(args))
	for _, a := range args {
		var v any
		if err := json.Unmarshal([]byte(a), &v); err != nil {
			v = a
		}
		params = append(params, v)
	}
	return params
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
