package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"fabenv/cmd/fabenv/cmdutil"
	"fabenv/cmd/fabenv/ui"

	"github.com/spf13/cobra"
)

func gatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Inspect gateway connection profiles",
	}
	cmd.AddCommand(gatewayListCmd())
	cmd.AddCommand(gatewayShowCmd())
	return cmd
}

func gatewayListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List gateway profiles",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(_ context.Context, env *cmdutil.Env, _ io.Writer) error {
			gws, err := env.Gateways()
			if err != nil {
				return err
			}
			if len(gws) == 0 {
				fmt.Println(ui.Muted("No gateway profiles. Run fabenv init first."))
				return nil
			}

			rows := make([][]string, 0, len(gws))
			for _, gw := range gws {
				rows = append(rows, []string{gw.Name, gw.Path})
			}
			fmt.Println(ui.Table([]string{"NAME", "PROFILE"}, rows))
			return nil
		}),
	}
}

func gatewayShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Print a gateway connection profile as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.Build()
			if err != nil {
				return err
			}
			defer env.Close()

			gws, err := env.Gateways()
			if err != nil {
				return err
			}
			for _, gw := range gws {
				if gw.Name != args[0] {
					continue
				}
				out, err := json.MarshalIndent(gw.Profile, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}
			return fmt.Errorf("no gateway profile named %q", args[0])
		},
	}
}
