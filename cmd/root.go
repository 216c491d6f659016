package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the arc-messenger backend
var rootCmd = &cobra.Command{
	Use:   "arc-messenger",
	Short: "Gmail-backed messaging backend",
	Long: `arc-messenger turns a Gmail mailbox into a chat-style messaging
backend: threads become conversations, emails become chat messages, and
label mutations drive read/star/archive state.

The serve command starts the HTTP API the messenger frontend talks to.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "arc-messenger version %s\n" .Version}}`)

	// Serving is the only mode that matters in production; make it the
	// default when no subcommand is given.
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}
