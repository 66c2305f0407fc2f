package main

import (
	"fmt"
	"os"

	"fabenv/cmd/fabenv/ui"
	"fabenv/internal/buildinfo"
	"fabenv/internal/logging"

	"github.com/spf13/cobra"
)

func main() {
	var (
		debug   bool
		noColor bool
	)
	if err := logging.Configure(logging.LevelWarn); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "fabenv",
		Short:         "Local ledger network environment manager",
		Version:       buildinfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			ui.Configure(noColor)
			level := logging.LevelWarn
			if debug {
				level = logging.LevelDebug
			}
			return logging.Configure(level)
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	root.AddCommand(initCmd())
	root.AddCommand(generateCmd())
	root.AddCommand(startCmd())
	root.AddCommand(stopCmd())
	root.AddCommand(restartCmd())
	root.AddCommand(teardownCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(nodesCmd())
	root.AddCommand(operationsCmd())
	root.AddCommand(logsCmd())
	root.AddCommand(walletCmd())
	root.AddCommand(gatewayCmd())
	root.AddCommand(chaincodeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorMsg("%v", err))
		os.Exit(1)
	}
}
