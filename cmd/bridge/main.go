package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hbmartin/webview-ipc/internal/config"
	"github.com/hbmartin/webview-ipc/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// configPath is the --config flag shared by every command.
var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "bridge",
		Short: "Typed message bridge between a host process and its webviews",
		Long: `bridge hosts and exercises a webview message bridge.

A host serves RPC handlers, action delegates and event broadcasts to
views connected over WebSocket. The call, act and listen commands
connect as a view, which makes them useful for poking at a running host.

Settings are read from bridge.json in the working directory when it
exists, or from the file named by --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to bridge.json")

	rootCmd.AddCommand(
		serveCmd(),
		callCmd(),
		actCmd(),
		listenCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		if isTerminal(os.Stderr) {
			errors.Fprint(os.Stderr, err)
		} else {
			errors.FprintCompact(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a character device.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// loadConfig reads --config, or bridge.json in the working directory, or
// falls back to defaults.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	if config.Exists(".") {
		return config.Load(".")
	}
	return config.New(), nil
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
