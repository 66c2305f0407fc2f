package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"fabenv"
	"fabenv/cmd/fabenv/cmdutil"
	"fabenv/cmd/fabenv/ui"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show runtime status",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, env *cmdutil.Env, _ io.Writer) error {
			st := env.Controller.Status()

			// Controller state starts from Stopped in a fresh process; a
			// live probe is authoritative for display when idle.
			state := st.State
			if !st.Busy {
				state = fabenv.StateStopped
				if env.Controller.IsRunning(ctx) {
					state = fabenv.StateStarted
				}
			}

			fmt.Println(ui.KeyValues("  ",
				ui.KV("Name", ui.Bold(env.Cfg.Name)),
				ui.KV("State", ui.State(state)),
				ui.KV("Busy", strconv.FormatBool(st.Busy)),
				ui.KV("Created", strconv.FormatBool(env.Controller.IsCreated())),
				ui.KV("Generated", strconv.FormatBool(env.Controller.IsGenerated(ctx))),
				ui.KV("Directory", ui.Muted(env.Cfg.Directory)),
			))
			return nil
		}),
	}
}

func nodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List the network's nodes",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, env *cmdutil.Env, _ io.Writer) error {
			nodes, err := env.Controller.Nodes(ctx)
			if err != nil {
				return err
			}
			if len(nodes) == 0 {
				fmt.Println(ui.Muted("No nodes found. Is the network started?"))
				return nil
			}

			rows := make([][]string, 0, len(nodes))
			for _, n := range nodes {
				rows = append(rows, []string{string(n.Type), n.Name, n.APIURL, n.ContainerName})
			}
			fmt.Println(ui.Table([]string{"TYPE", "NAME", "API", "CONTAINER"}, rows))
			return nil
		}),
	}
}

func operationsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "operations",
		Short: "Show recent lifecycle operations",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, env *cmdutil.Env, _ io.Writer) error {
			ops, err := env.Journal.Recent(limit)
			if err != nil {
				return err
			}
			if len(ops) == 0 {
				fmt.Println(ui.Muted("No operations recorded yet."))
				return nil
			}

			rows := make([][]string, 0, len(ops))
			for _, op := range ops {
				outcome := ui.SuccessStyle.Render("ok")
				if op.Error != "" {
					outcome = ui.ErrorStyle.Render(op.Error)
				}
				rows = append(rows, []string{
					op.Name,
					op.Started.Local().Format(time.DateTime),
					op.Finished.Sub(op.Started).Round(time.Millisecond).String(),
					op.Result.String(),
					outcome,
				})
			}
			fmt.Println(ui.Table([]string{"OPERATION", "STARTED", "TOOK", "RESULT", "OUTCOME"}, rows))
			return nil
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of operations to show")
	return cmd
}
