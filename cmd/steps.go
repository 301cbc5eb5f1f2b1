package cmd

import (
	"fmt"

	"github.com/desktopqa/terminal-bdd/internal/output"
	"github.com/desktopqa/terminal-bdd/internal/steps"
	"github.com/spf13/cobra"
)

var stepsCmd = &cobra.Command{
	Use:   "steps",
	Short: "Print the step catalog",
	Long: `Print every step pattern with example phrases. With --match, print the
step a phrase resolves to and the arguments it captures.`,
	RunE: runSteps,
}

func init() {
	rootCmd.AddCommand(stepsCmd)
	stepsCmd.Flags().String("match", "", "Resolve a step phrase")
	stepsCmd.Flags().Bool("pretty", false, "Pretty-print JSON")
}

type stepEntry struct {
	Pattern  string   `yaml:"pattern"            json:"pattern"`
	Examples []string `yaml:"examples,omitempty" json:"examples,omitempty"`
}

type matchResult struct {
	Text    string   `yaml:"text"           json:"text"`
	Pattern string   `yaml:"pattern"        json:"pattern"`
	Args    []string `yaml:"args,omitempty" json:"args,omitempty"`
}

// catalogSuite builds a suite that is only used for its catalog.
func catalogSuite() *steps.Suite {
	return steps.NewSuite(steps.Options{}, nil, nil, nil, nil)
}

func runSteps(cmd *cobra.Command, args []string) error {
	suite := catalogSuite()
	if text, _ := cmd.Flags().GetString("match"); text != "" {
		st, captured, ok := suite.Match(text)
		if !ok {
			return fmt.Errorf("no step matches %q", text)
		}
		return output.Fprint(cmd.OutOrStdout(), output.OutputFormat, matchResult{Text: text, Pattern: st.Pattern, Args: captured})
	}

	var entries []stepEntry
	for _, st := range suite.Catalog() {
		entries = append(entries, stepEntry{Pattern: st.Pattern, Examples: st.Examples})
	}
	return output.Fprint(cmd.OutOrStdout(), output.OutputFormat, entries)
}
