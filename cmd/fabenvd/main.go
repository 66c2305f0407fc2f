package main

import (
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"fabenv"
	"fabenv/cmd/fabenv/cmdutil"
	"fabenv/config"
	"fabenv/daemon"
	"fabenv/internal/buildinfo"
	"fabenv/internal/logging"

	"github.com/spf13/cobra"
)

func main() {
	if err := logging.Configure(logging.LevelInfo); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := rootCmd().Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var socketPath string
	var debug bool

	cmd := &cobra.Command{
		Use:     "fabenvd",
		Short:   "Ledger network runtime daemon",
		Version: buildinfo.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelInfo
			if debug {
				level = logging.LevelDebug
			}
			return logging.Configure(level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !debug {
				if err := logging.Configure(cfg.LogLevel); err != nil {
					return err
				}
			}

			env, err := cmdutil.BuildWith(cfg)
			if err != nil {
				return err
			}
			defer env.Close()

			srv := daemon.NewServer(env.Controller, env.Wallets, gatewayLister{env}, buildinfo.Version,
				daemon.WithJournal(env.Journal),
				daemon.WithNodeRemover(env.Registry),
			)
			return daemon.Run(ctx, srv, env.Registry, socketPath)
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&socketPath, "socket", defaultSocketPath(), "Unix socket path")
	return cmd
}

func defaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "fabenvd.sock")
	}
	return "/tmp/fabenvd.sock"
}

// gatewayLister adapts the Env to the daemon's Gateways interface.
type gatewayLister struct {
	env *cmdutil.Env
}

func (g gatewayLister) List() ([]fabenv.Gateway, error) {
	return g.env.Gateways()
}
