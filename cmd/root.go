package cmd

import (
	"fmt"
	"os"

	"github.com/desktopqa/terminal-bdd/internal/config"
	"github.com/desktopqa/terminal-bdd/internal/dconf"
	"github.com/desktopqa/terminal-bdd/internal/output"
	"github.com/desktopqa/terminal-bdd/internal/platform"
	"github.com/desktopqa/terminal-bdd/internal/telemetry"
	"github.com/desktopqa/terminal-bdd/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	v       = viper.New()
	cfg     config.Config

	closeLog = func() error { return nil }

	// Swapped out in tests.
	newProvider = platform.NewProvider
	newStore    = func() dconf.Store { return dconf.NewCLI() }
)

var rootCmd = &cobra.Command{
	Use:   "terminal-bdd",
	Short: "Behaviour tests for GNOME Terminal",
	Long: `Run Gherkin feature files against GNOME Terminal through the AT-SPI
accessibility bus, and inspect the accessible trees and settings the steps
work with.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version.Version, version.Commit, version.BuildDate)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./terminal-bdd.yaml)")
	rootCmd.PersistentFlags().String("format", "", "Output format: yaml, json")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log at debug level")
	rootCmd.PersistentPreRunE = setup
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return closeLog()
	}
}

// setup loads the configuration, selects the output format and installs
// the logger. It runs before every subcommand.
func setup(cmd *cobra.Command, args []string) error {
	if err := config.Load(v, cfgFile); err != nil {
		return err
	}
	c, err := config.Decode(v)
	if err != nil {
		return err
	}

	// Use the root persistent flag directly; subcommands may define their
	// own --format-like flags.
	format, _ := rootCmd.PersistentFlags().GetString("format")
	f, err := output.ParseFormat(format)
	if err != nil {
		return err
	}
	output.OutputFormat = f
	if prettyFlag := cmd.Flags().Lookup("pretty"); prettyFlag != nil {
		if pretty, err := cmd.Flags().GetBool("pretty"); err == nil && pretty {
			output.PrettyOutput = true
		}
	}

	if verbose, _ := rootCmd.PersistentFlags().GetBool("verbose"); verbose {
		c.LogLevel = "debug"
	}
	closer, err := telemetry.InitLogger(telemetry.LogOptions{Level: c.LogLevel, Format: c.LogFormat, File: c.LogFile})
	if err != nil {
		return err
	}
	closeLog = closer
	cfg = c
	return nil
}

// openProvider connects to the accessibility bus. The returned closer is
// never nil.
func openProvider() (*platform.Provider, func(), error) {
	p, err := newProvider()
	if err != nil {
		return nil, nil, err
	}
	return p, func() {
		if p.Close != nil {
			_ = p.Close()
		}
	}, nil
}
