package cmd

import (
	"fmt"

	"github.com/desktopqa/terminal-bdd/internal/dconf"
	"github.com/desktopqa/terminal-bdd/internal/output"
	"github.com/spf13/cobra"
)

var dconfCmd = &cobra.Command{
	Use:   "dconf",
	Short: "Inspect and reset the settings the suite touches",
}

var dconfReadCmd = &cobra.Command{
	Use:   "read <key>",
	Short: "Print the stored value of a key",
	Args:  cobra.ExactArgs(1),
	RunE:  runDconfRead,
}

var dconfListCmd = &cobra.Command{
	Use:   "list <dir>",
	Short: "List the entries of a directory (sub-directories end in /)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDconfList,
}

var dconfResetCmd = &cobra.Command{
	Use:   "reset [paths...]",
	Short: "Reset settings the way the scenario hooks do",
	Long: `Reset the given paths, or the configured cleanup paths when none are
given. A path ending in / is reset recursively.`,
	RunE: runDconfReset,
}

func init() {
	rootCmd.AddCommand(dconfCmd)
	dconfCmd.AddCommand(dconfReadCmd, dconfListCmd, dconfResetCmd)
}

type dconfValue struct {
	Key   string `yaml:"key"   json:"key"`
	Value string `yaml:"value" json:"value"`
}

type dconfListing struct {
	Dir     string   `yaml:"dir"     json:"dir"`
	Entries []string `yaml:"entries" json:"entries"`
}

func runDconfRead(cmd *cobra.Command, args []string) error {
	value, err := newStore().Read(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return output.Fprint(cmd.OutOrStdout(), output.OutputFormat, dconfValue{Key: args[0], Value: value})
}

func runDconfList(cmd *cobra.Command, args []string) error {
	entries, err := newStore().List(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return output.Fprint(cmd.OutOrStdout(), output.OutputFormat, dconfListing{Dir: args[0], Entries: entries})
}

func runDconfReset(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		paths = cfg.CleanupPaths
	}
	if len(paths) == 0 {
		return fmt.Errorf("no paths to reset")
	}
	if err := dconf.ResetPaths(cmd.Context(), newStore(), paths); err != nil {
		return err
	}
	return output.Fprint(cmd.OutOrStdout(), output.OutputFormat, map[string][]string{"reset": paths})
}
