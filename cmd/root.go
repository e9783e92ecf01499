package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// rootCmd is the entry point when lwsgo is called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "lwsgo",
	Short: "Run a local emulator for object storage, document storage, queues, pubsub, workflows and compute functions",
	Long: `lwsgo emulates a small set of cloud building blocks in a single
process, wired together from a deployment model file: object storage,
a document store, queues, pubsub topics, a workflow engine and compute
functions, scheduled and health-checked the way a real deployment would
be.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute runs the root command.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "lwsgo version %s\n" .Version}}`)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}
