package cmd

import (
	"fmt"

	"github.com/desktopqa/terminal-bdd/internal/model"
	"github.com/desktopqa/terminal-bdd/internal/output"
	"github.com/spf13/cobra"
)

var findCmd = &cobra.Command{
	Use:   "find",
	Short: "Search for accessible nodes",
	Long: `Search the accessible trees for nodes by name or text, role and state.
Without --app every registered application is searched.`,
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)
	findCmd.Flags().String("text", "", "Text to search for (case-insensitive match on name or text)")
	findCmd.Flags().String("roles", "", "Filter by role (e.g. \"push button,menu items\")")
	findCmd.Flags().String("state", "", "Only nodes with this state (showing, checked, ...)")
	findCmd.Flags().String("app", "", "Limit search to this application")
	findCmd.Flags().Int("limit", 10, "Max total matching nodes to return")
	findCmd.Flags().Bool("exact", false, "Require exact match instead of substring")
}

// findAppMatch groups matches by application.
type findAppMatch struct {
	App   string           `yaml:"app"   json:"app"`
	Nodes []model.FlatNode `yaml:"nodes" json:"nodes"`
}

type findResult struct {
	Text    string         `yaml:"text,omitempty" json:"text,omitempty"`
	Matches []findAppMatch `yaml:"matches"        json:"matches"`
	Total   int            `yaml:"total"          json:"total"`
}

func runFind(cmd *cobra.Command, args []string) error {
	text, _ := cmd.Flags().GetString("text")
	rolesStr, _ := cmd.Flags().GetString("roles")
	state, _ := cmd.Flags().GetString("state")
	appFilter, _ := cmd.Flags().GetString("app")
	limit, _ := cmd.Flags().GetInt("limit")
	exact, _ := cmd.Flags().GetBool("exact")

	if text == "" && rolesStr == "" {
		return fmt.Errorf("--text or --roles is required")
	}

	provider, closeProvider, err := openProvider()
	if err != nil {
		return err
	}
	defer closeProvider()

	apps := []string{appFilter}
	if appFilter == "" {
		if apps, err = provider.Reader.Applications(); err != nil {
			return err
		}
	}
	res, err := searchApps(apps, func(app string) (*model.Node, error) {
		return readTree(provider.Reader, app, false)
	}, findQuery{Text: text, Exact: exact, Roles: parseRoles(rolesStr), State: state, Limit: limit})
	if err != nil {
		return err
	}
	return output.Fprint(cmd.OutOrStdout(), output.OutputFormat, res)
}

// searchApps runs q over each application until the limit is reached.
// Applications whose tree cannot be read are skipped unless named alone.
func searchApps(apps []string, tree func(string) (*model.Node, error), q findQuery) (findResult, error) {
	res := findResult{Text: q.Text, Matches: []findAppMatch{}}
	for _, app := range apps {
		root, err := tree(app)
		if err != nil {
			if len(apps) == 1 {
				return res, err
			}
			continue
		}
		remaining := q
		if q.Limit > 0 {
			remaining.Limit = q.Limit - res.Total
		}
		nodes, err := findNodes(root, remaining)
		if err != nil {
			return res, err
		}
		if len(nodes) == 0 {
			continue
		}
		res.Matches = append(res.Matches, findAppMatch{App: app, Nodes: nodes})
		res.Total += len(nodes)
		if q.Limit > 0 && res.Total >= q.Limit {
			break
		}
	}
	return res, nil
}
