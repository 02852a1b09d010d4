// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "teamgrid",
	Short: "TeamGrid is the access control and security audit service of the TeamGrid platform",
	Long: `TeamGrid provides role-based access control with expiring assignments and
team-scoped roles, a durable audit trail of user activity, and automatic
detection and incident tracking of anomalous behaviour.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
