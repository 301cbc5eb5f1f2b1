package steps

import (
	"context"
	"errors"
	"fmt"

	"github.com/desktopqa/terminal-bdd/internal/dconf"
	"github.com/desktopqa/terminal-bdd/internal/sandbox"
)

// Embed captions used in the report.
const (
	CaptionSetup          = "Failed setup in Before All"
	CaptionBeforeScenario = "Failed cleanup in Before Scenario"
	CaptionAfterScenario  = "Failed cleanup in After Scenario"
)

// Applications registered by BeforeAll.
var applications = []struct {
	handle string
	spec   sandbox.AppSpec
}{
	{Terminal, sandbox.AppSpec{
		Name:         "gnome-terminal",
		A11yName:     "gnome-terminal-server",
		DesktopFile:  "org.gnome.Terminal.desktop",
		ExitShortcut: "<Ctrl><Shift><Q>",
	}},
	{Preferences, sandbox.AppSpec{
		Name:        "gnome-terminal",
		A11yName:    "gnome-terminal-preferences",
		DesktopFile: "org.gnome.Terminal.Preferences.desktop",
	}},
	{Settings, sandbox.AppSpec{
		Name:        "gnome-control-center",
		DesktopFile: "org.gnome.Settings.desktop",
	}},
	{Gedit, sandbox.AppSpec{
		Name:        "gedit",
		DesktopFile: "org.gnome.gedit.desktop",
	}},
}

// BeforeAll builds the sandbox and registers the application handles.
// When AbortOnSetupFailure is false a failure is kept and reported by every
// following BeforeScenario instead of being returned.
func (s *Suite) BeforeAll() error {
	sb, err := s.newSandbox(s.report)
	if err != nil {
		s.logger.Error("environment error: before all", "error", err)
		s.metrics.HookFailed("before_all")
		if s.opts.AbortOnSetupFailure {
			return fmt.Errorf("before all: %w", err)
		}
		s.setupErr = err
		return nil
	}
	s.sb = sb
	for _, a := range applications {
		sb.GetApplication(a.handle, a.spec)
	}
	return nil
}

// BeforeScenario resets settings (unless the scenario carries the skip tag)
// and prepares the sandbox. A failure is embedded into the report, the
// report is flushed and Exit(1) is called.
func (s *Suite) BeforeScenario(ctx context.Context, name string, tags []string) error {
	s.tags = tags
	s.storedSize = nil
	s.rec = nil

	if s.setupErr != nil {
		s.rec = s.report.Begin(name, tags, s.opts.Now())
		s.rec.Embed("text/plain", []byte(s.setupErr.Error()), CaptionSetup)
		return fmt.Errorf("environment setup failed: %w", s.setupErr)
	}

	err := s.cleanup(ctx)
	if err == nil {
		err = s.sb.BeforeScenario(ctx, name, tags)
		s.rec = s.sb.Current()
	}
	if err == nil {
		return nil
	}

	s.logger.Error("environment error: before scenario", "scenario", name, "error", err)
	s.metrics.HookFailed("before_scenario")
	if s.rec == nil {
		s.rec = s.report.Begin(name, tags, s.opts.Now())
		s.sb.Attach(s.rec)
	}
	s.rec.Embed("text/plain", []byte(err.Error()), CaptionBeforeScenario)
	s.rec.Finish(err, s.opts.Now())
	if ferr := s.Flush(); ferr != nil {
		s.logger.Error("could not write report", "error", ferr)
	}
	if s.opts.Exit != nil {
		s.opts.Exit(1)
	}
	return fmt.Errorf("before scenario: %w", err)
}

// AfterScenario resets settings and tears the sandbox down. Failures are
// logged and embedded but do not fail the run.
func (s *Suite) AfterScenario(ctx context.Context, scenarioErr error) {
	s.metrics.ObserveScenario(scenarioErr)
	if s.sb == nil {
		if s.rec != nil {
			s.rec.Finish(scenarioErr, s.opts.Now())
		}
		return
	}

	rec := s.rec
	if rec == nil {
		rec = s.sb.Current()
	}
	err := s.cleanup(ctx)
	if serr := s.sb.AfterScenario(ctx, scenarioErr); serr != nil {
		err = errors.Join(err, serr)
	}
	if err != nil {
		s.logger.Error("environment error: after scenario", "scenario", rec.Name, "error", err)
		s.metrics.HookFailed("after_scenario")
		rec.Embed("text/plain", []byte(err.Error()), CaptionAfterScenario)
	}
}

func (s *Suite) cleanup(ctx context.Context) error {
	if hasTag(s.tags, s.opts.SkipTag) {
		s.logger.Debug("skipping settings cleanup", "tag", s.opts.SkipTag)
		return nil
	}
	return dconf.ResetPaths(ctx, s.store, s.opts.CleanupPaths)
}

// Flush writes the report into ReportDir.
func (s *Suite) Flush() error {
	path, err := s.report.Write(s.opts.ReportDir, s.opts.ReportFormat)
	if err == nil && path != "" {
		s.logger.Info("report written", "path", path)
	}
	return err
}
