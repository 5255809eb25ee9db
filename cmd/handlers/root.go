package handlers

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pressroom/internal/config"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pressroom",
		Short: "Pressroom runs the content production pipeline.",
		Long: `Pressroom advances content topics through generation, approval,
quality gating and multi-channel publishing.

The scheduled publish/cross-post stages run unattended: an external
scheduler hits the HTTP trigger hourly, or 'pressroom publish' runs one
batch pass from the command line.`,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pressroom.yaml)")

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewPublishCmd())
	rootCmd.AddCommand(NewQualityCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in the config file and environment variables.
func initConfig() {
	if _, err := config.Load(cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}
