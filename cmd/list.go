package cmd

import (
	"github.com/desktopqa/terminal-bdd/internal/output"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List applications on the accessibility bus",
	Long:  "List the names of all applications registered with the AT-SPI registry. These are the names dump and find accept.",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().Bool("pretty", false, "Pretty-print JSON")
}

// appEntry is one line of list output.
type appEntry struct {
	App string `yaml:"app" json:"app"`
}

func runList(cmd *cobra.Command, args []string) error {
	provider, closeProvider, err := openProvider()
	if err != nil {
		return err
	}
	defer closeProvider()

	names, err := provider.Reader.Applications()
	if err != nil {
		return err
	}
	entries := make([]appEntry, 0, len(names))
	for _, n := range names {
		entries = append(entries, appEntry{App: n})
	}
	return output.Fprint(cmd.OutOrStdout(), output.OutputFormat, entries)
}
