// Package app provides the entry point for the kcgate command-line
// application.
package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kcgate/kcgate/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:               "kcgate",
	DisableAutoGenTag: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Re-initialize so the parsed --debug flag takes effect.
		logger.Initialize()
	},
	Short: "kcgate is an authentication gateway for Keycloak-backed services",
	Long: `kcgate sits in front of HTTP services and authenticates every request
against a Keycloak realm, with bearer token validation, server-side
sessions, role and scope based authorization, and cached access to the
realm management API.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
}

// NewRootCmd creates a new root command for the kcgate CLI.
func NewRootCmd() *cobra.Command {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
