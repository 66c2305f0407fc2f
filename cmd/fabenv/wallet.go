package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"fabenv"
	"fabenv/cmd/fabenv/cmdutil"
	"fabenv/cmd/fabenv/ui"

	"github.com/spf13/cobra"
)

func walletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage credential wallets",
	}
	cmd.AddCommand(walletListCmd())
	cmd.AddCommand(walletCreateCmd())
	cmd.AddCommand(walletDeleteCmd())
	cmd.AddCommand(walletIdentitiesCmd())
	cmd.AddCommand(walletImportCmd())
	return cmd
}

func walletListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List wallets",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(_ context.Context, env *cmdutil.Env, _ io.Writer) error {
			wallets, err := env.Wallets.List()
			if err != nil {
				return err
			}
			if len(wallets) == 0 {
				fmt.Println(ui.Muted("No wallets."))
				return nil
			}
			for _, w := range wallets {
				fmt.Println(w.Name)
			}
			return nil
		}),
	}
}

func walletCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.Build()
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.Wallets.Create(args[0]); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("Wallet %s created.", ui.Bold(args[0])))
			return nil
		},
	}
}

func walletDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a wallet and its identities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.Build()
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.Wallets.Delete(args[0]); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("Wallet %s deleted.", ui.Bold(args[0])))
			return nil
		},
	}
}

func walletIdentitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "identities <wallet>",
		Short: "List the identities in a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdutil.Build()
			if err != nil {
				return err
			}
			defer env.Close()

			ids, err := env.Wallets.Identities(args[0])
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Println(ui.Muted("No identities."))
				return nil
			}

			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				rows = append(rows, []string{id.Name, id.MSPID})
			}
			fmt.Println(ui.Table([]string{"NAME", "MSP"}, rows))
			return nil
		},
	}
}

func walletImportCmd() *cobra.Command {
	var mspID, certPath, keyPath string
	cmd := &cobra.Command{
		Use:   "import <wallet> <identity>",
		Short: "Import an identity from PEM files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cert, err := os.ReadFile(certPath)
			if err != nil {
				return fmt.Errorf("read certificate: %w", err)
			}
			key, err := os.ReadFile(keyPath)
			if err != nil {
				return fmt.Errorf("read private key: %w", err)
			}

			env, err := cmdutil.Build()
			if err != nil {
				return err
			}
			defer env.Close()

			id := fabenv.Identity{
				Name:        args[1],
				MSPID:       mspID,
				Certificate: string(cert),
				PrivateKey:  string(key),
			}
			if err := env.Wallets.Import(args[0], id); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("Identity %s imported into %s.", ui.Bold(args[1]), ui.Bold(args[0])))
			return nil
		},
	}
	cmd.Flags().StringVar(&mspID, "msp", "", "MSP the identity belongs to")
	cmd.Flags().StringVar(&certPath, "cert", "", "Path to the certificate PEM")
	cmd.Flags().StringVar(&keyPath, "key", "", "Path to the private key PEM")
	_ = cmd.MarkFlagRequired("msp")
	_ = cmd.MarkFlagRequired("cert")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}
