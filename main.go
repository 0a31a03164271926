package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "codebug",
	Short: "codebug emulates a CodeBug LED matrix on a pseudo-terminal",
	Long: `codebug emulates a CodeBug LED matrix on a pseudo-terminal, so software
written against the CodeBug serial protocol can be tried without the board.

Without a subcommand it behaves like "codebug serve".`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print the version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}

func main() {
	addServeFlags(rootCmd)
	addServeFlags(serveCmd)
	rootCmd.RunE = serveCmd.RunE

	addSendFlags(sendCmd)
	addTraceFlags(traceCmd)
	rootCmd.AddCommand(serveCmd, sendCmd, traceCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
