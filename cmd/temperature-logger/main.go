package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "temperature-logger",
		Short:         "Sensor temperature logging service",
		Long:          "temperature-logger accepts sensor temperature readings over HTTP, keeps them in a JSON data file and exports them as CSV.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd := newServeCommand()
	rootCmd.RunE = serveCmd.RunE
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newExportCommand())
	rootCmd.AddCommand(newSendCommand())
	rootCmd.AddCommand(newReadingsCommand())
	rootCmd.AddCommand(newResetCommand())
	rootCmd.AddCommand(newVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the temperature-logger version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "temperature-logger", version)
		},
	}
}
