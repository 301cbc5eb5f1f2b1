package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cucumber/godog"
	"github.com/desktopqa/terminal-bdd/internal/config"
	"github.com/desktopqa/terminal-bdd/internal/output"
	"github.com/desktopqa/terminal-bdd/internal/sandbox"
	"github.com/desktopqa/terminal-bdd/internal/steps"
	"github.com/desktopqa/terminal-bdd/internal/telemetry"
	"github.com/spf13/cobra"
)

const component = "gnome-terminal"

var runCmd = &cobra.Command{
	Use:   "run [feature paths...]",
	Short: "Run feature files",
	Long: `Run Gherkin feature files against the desktop session. Paths default to
the "features" config key. The process exits non-zero when a scenario
fails or the environment cannot be prepared.

Examples:
  terminal-bdd run
  terminal-bdd run features/profiles.feature --tags '@smoke && ~@leapp'
  terminal-bdd run --report-dir artifacts --metrics-textfile /var/lib/node_exporter/bdd.prom`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("tags", "", "Tag expression selecting scenarios")
	runCmd.Flags().String("formatter", "pretty", "godog formatter: pretty, progress, cucumber, junit")
	runCmd.Flags().Bool("strict", true, "Fail on undefined or pending steps")
	runCmd.Flags().String("report-dir", "", "Directory for the scenario report")
	runCmd.Flags().String("session", "", "Session type override: x11, wayland")
	runCmd.Flags().String("metrics-textfile", "", "Write Prometheus metrics to this file after the run")
	runCmd.Flags().Bool("abort-on-setup-failure", false, "Stop the run when the environment cannot be set up")

	for key, flag := range map[string]string{
		"tags":                   "tags",
		"format":                 "formatter",
		"strict":                 "strict",
		"report.dir":             "report-dir",
		"session.type":           "session",
		"metrics.textfile":       "metrics-textfile",
		"setup.abort_on_failure": "abort-on-setup-failure",
	} {
		_ = v.BindPFlag(key, runCmd.Flags().Lookup(flag))
	}
}

// suiteOptions maps the run configuration onto the step suite.
func suiteOptions(c config.Config, f output.Format) steps.Options {
	return steps.Options{
		AbortOnSetupFailure: c.AbortOnSetupFailure,
		SkipTag:             c.CleanupSkipTag,
		CleanupPaths:        c.CleanupPaths,
		Interval:            c.RetryInterval,
		FindAttempts:        c.FindAttempts,
		DecorationOffset:    c.DecorationOffset,
		ReportDir:           c.ReportDir,
		ReportFormat:        f,
	}
}

// sandboxOptions maps the run configuration onto the sandbox.
func sandboxOptions(c config.Config, m *telemetry.Metrics, report *sandbox.Report, logger *slog.Logger) sandbox.Options {
	return sandbox.Options{
		SessionType:         c.SessionType,
		Resolution:          c.Resolution,
		AppAttempts:         c.AppAttempts,
		Interval:            c.RetryInterval,
		ScreenshotOnFailure: c.ScreenshotOnFailure,
		ScreenshotScale:     c.ScreenshotScale,
		Report:              report,
		Observe:             m.RetryObserver,
		Logger:              logger,
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	c := cfg
	if len(args) > 0 {
		c.Features = args
	}
	logger := slog.Default()
	metrics := telemetry.NewMetrics()

	// The provider is opened inside BeforeAll so a missing accessibility
	// bus is handled like any other setup failure.
	closeProvider := func() {}
	factory := func(report *sandbox.Report) (*sandbox.Sandbox, error) {
		provider, closer, err := openProvider()
		if err != nil {
			return nil, err
		}
		closeProvider = closer
		return sandbox.New(component, provider, sandbox.SystemProcesses{}, sandboxOptions(c, metrics, report, logger)), nil
	}

	finish := func() {
		closeProvider()
		if err := metrics.WriteTextfile(c.MetricsTextfile); err != nil {
			logger.Error("could not write metrics", "error", err)
		}
	}

	opts := suiteOptions(c, output.OutputFormat)
	opts.Exit = func(code int) {
		finish()
		os.Exit(code)
	}
	suite := steps.NewSuite(opts, factory, newStore(), metrics, logger)

	status := godog.TestSuite{
		Name:                 component,
		TestSuiteInitializer: suite.InitializeTestSuite,
		ScenarioInitializer:  suite.InitializeScenario,
		Options: &godog.Options{
			Format:      c.Format,
			Paths:       c.Features,
			Tags:        c.Tags,
			Strict:      c.Strict,
			Concurrency: 1,
			Output:      cmd.OutOrStdout(),
		},
	}.Run()
	finish()

	if status != 0 {
		return fmt.Errorf("feature run failed (status %d, %d failed scenarios)", status, suite.Report().Failed())
	}
	return nil
}
