package cmd

import (
	"github.com/desktopqa/terminal-bdd/internal/output"
	"github.com/desktopqa/terminal-bdd/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return output.Fprint(cmd.OutOrStdout(), output.OutputFormat, map[string]string{
			"version": version.Version,
			"commit":  version.Commit,
			"built":   version.BuildDate,
		})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
