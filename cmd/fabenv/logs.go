package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"fabenv/cmd/fabenv/cmdutil"

	"github.com/spf13/cobra"
)

func logsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Tail the network's aggregated container logs",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, env *cmdutil.Env, sink io.Writer) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := env.Streamer.Start(ctx, sink); err != nil {
				return err
			}
			defer env.Streamer.Stop()

			<-ctx.Done()
			return nil
		}),
	}
}
