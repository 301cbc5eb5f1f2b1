package cmd

import (
	"time"

	"github.com/desktopqa/terminal-bdd/internal/model"
	"github.com/desktopqa/terminal-bdd/internal/output"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <application>",
	Short: "Print an application's accessible tree",
	Long: `Print the accessible tree of an application registered on the AT-SPI bus,
for example "gnome-terminal-server" or "gnome-terminal-preferences". Use it
to find the names and roles to put into step phrases.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().Bool("flat", false, "Flatten the tree into a list with path breadcrumbs")
	dumpCmd.Flags().Bool("showing", false, "Omit subtrees that are not showing")
	dumpCmd.Flags().Bool("pretty", false, "Pretty-print JSON")
}

func runDump(cmd *cobra.Command, args []string) error {
	flat, _ := cmd.Flags().GetBool("flat")
	showing, _ := cmd.Flags().GetBool("showing")

	provider, closeProvider, err := openProvider()
	if err != nil {
		return err
	}
	defer closeProvider()

	root, err := readTree(provider.Reader, args[0], showing)
	if err != nil {
		return err
	}
	return output.Fprint(cmd.OutOrStdout(), output.OutputFormat, dumpResult(args[0], root, flat, time.Now()))
}

func dumpResult(app string, root *model.Node, flat bool, now time.Time) interface{} {
	if flat {
		return output.FlatResult{App: app, TS: now.Unix(), Elements: model.Flatten(root)}
	}
	return output.TreeResult{App: app, TS: now.Unix(), Root: root}
}
