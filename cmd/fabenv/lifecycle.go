package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"fabenv/cmd/fabenv/cmdutil"
	"fabenv/cmd/fabenv/ui"
	"fabenv/config"

	"github.com/spf13/cobra"
)

// withEnv builds the runtime environment, runs fn, and tears the
// environment down again. Script output goes straight to stdout.
func withEnv(fn func(ctx context.Context, env *cmdutil.Env, sink io.Writer) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		env, err := cmdutil.Build()
		if err != nil {
			return err
		}
		defer env.Close()
		return fn(cmd.Context(), env, os.Stdout)
	}
}

func initCmd() *cobra.Command {
	var basePort int
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the runtime directory and assign a port window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cfg.Ports.Assigned() {
				if err := cfg.AssignPorts(basePort); err != nil {
					return err
				}
			}

			env, err := cmdutil.BuildWith(cfg)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.Controller.Create(cmd.Context()); err != nil {
				return err
			}
			if err := cfg.Save(); err != nil {
				return err
			}

			fmt.Println(ui.SuccessMsg("Runtime %s created in %s.", ui.Bold(cfg.Name), cfg.Directory))
			return nil
		},
	}
	cmd.Flags().IntVar(&basePort, "base-port", config.DefaultBasePort, "Start of the free-port scan")
	return cmd
}

func generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate crypto material and channel artifacts",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, env *cmdutil.Env, sink io.Writer) error {
			if err := env.Controller.Generate(ctx, sink); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("Artifacts generated."))
			return nil
		}),
	}
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the network",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, env *cmdutil.Env, sink io.Writer) error {
			if err := env.Controller.Start(ctx, sink); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("Network %s started.", ui.Bold(env.Cfg.Name)))
			return nil
		}),
	}
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the network",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, env *cmdutil.Env, sink io.Writer) error {
			if err := env.Controller.Stop(ctx, sink); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("Network %s stopped.", ui.Bold(env.Cfg.Name)))
			return nil
		}),
	}
}

func restartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the network",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, env *cmdutil.Env, sink io.Writer) error {
			if err := env.Controller.Restart(ctx, sink); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("Network %s restarted.", ui.Bold(env.Cfg.Name)))
			return nil
		}),
	}
}

func teardownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "teardown",
		Short: "Destroy the network and recreate a fresh runtime directory",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(ctx context.Context, env *cmdutil.Env, sink io.Writer) error {
			if err := env.Controller.Teardown(ctx, sink); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("Network %s torn down.", ui.Bold(env.Cfg.Name)))
			return nil
		}),
	}
}

func chaincodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chaincode",
		Short: "Manage chaincode containers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "kill <name> <version>",
		Short: "Force-remove a running chaincode container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.Build()
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.Controller.KillChaincode(cmd.Context(), args[0], args[1], os.Stdout); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("Chaincode %s killed.", ui.Bold(args[0]+":"+args[1])))
			return nil
		},
	})
	return cmd
}
