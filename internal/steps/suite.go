// Package steps implements the environment hooks and the step library of
// the GNOME Terminal acceptance suite.
package steps

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/desktopqa/terminal-bdd/internal/dconf"
	"github.com/desktopqa/terminal-bdd/internal/model"
	"github.com/desktopqa/terminal-bdd/internal/output"
	"github.com/desktopqa/terminal-bdd/internal/platform"
	"github.com/desktopqa/terminal-bdd/internal/retry"
	"github.com/desktopqa/terminal-bdd/internal/sandbox"
	"github.com/desktopqa/terminal-bdd/internal/telemetry"
)

// Application handles.
const (
	Terminal    = "terminal"
	Preferences = "preferences"
	Settings    = "settings"
	Gedit       = "gedit"
)

// Options configures a Suite.
type Options struct {
	AbortOnSetupFailure bool
	SkipTag             string   // scenarios with this tag skip settings cleanup
	CleanupPaths        []string // dconf paths reset around every scenario; a trailing / resets recursively

	Interval         time.Duration // pause between retry attempts
	FindAttempts     int           // attempts when locating nodes
	DecorationOffset int           // title bar height tolerated by size comparisons

	ReportDir    string
	ReportFormat output.Format

	Exit func(code int) // hard stop after a failed BeforeScenario
	Now  func() time.Time
}

// SandboxFactory builds the run sandbox. It is called once from BeforeAll.
type SandboxFactory func(report *sandbox.Report) (*sandbox.Sandbox, error)

// Suite is the run-scoped context shared by hooks and steps. Scenarios run
// one at a time, so scenario state lives here too and is reset by
// BeforeScenario.
type Suite struct {
	opts       Options
	newSandbox SandboxFactory
	store      dconf.Store
	metrics    *telemetry.Metrics
	logger     *slog.Logger
	report     *sandbox.Report

	sb       *sandbox.Sandbox
	setupErr error

	// scenario state
	tags       []string
	rec        *sandbox.ScenarioRecord
	storedSize *model.Size
	stepStart  time.Time
}

// NewSuite creates a suite. metrics may be nil.
func NewSuite(opts Options, newSandbox SandboxFactory, store dconf.Store, metrics *telemetry.Metrics, logger *slog.Logger) *Suite {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.FindAttempts < 1 {
		opts.FindAttempts = 5
	}
	if opts.ReportFormat == "" {
		opts.ReportFormat = output.FormatYAML
	}
	if opts.SkipTag == "" {
		opts.SkipTag = "@leapp"
	}
	if metrics == nil {
		metrics = telemetry.NewMetrics()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Suite{
		opts:       opts,
		newSandbox: newSandbox,
		store:      store,
		metrics:    metrics,
		logger:     logger,
		report:     sandbox.NewReport("gnome-terminal", opts.Now()),
	}
}

// Report returns the run report.
func (s *Suite) Report() *sandbox.Report { return s.report }

// Metrics returns the run metrics.
func (s *Suite) Metrics() *telemetry.Metrics { return s.metrics }

func (s *Suite) app(handle string) (*sandbox.Application, error) {
	if s.sb == nil {
		return nil, fmt.Errorf("application %q: environment was not set up", handle)
	}
	return s.sb.Application(handle)
}

func (s *Suite) instance(handle string) (*model.Node, error) {
	app, err := s.app(handle)
	if err != nil {
		return nil, err
	}
	return app.Instance()
}

func (s *Suite) input() platform.Inputter { return s.sb.Provider().Inputter }

func (s *Suite) sleep(d time.Duration) { s.sb.Sleep(d) }

// Retry loop kinds, used as the metrics label.
const (
	loopFind          = "find"
	loopState         = "state"
	loopText          = "text"
	loopMenubar       = "menubar"
	loopColourChooser = "colour_chooser"
	loopCombo         = "combo"
	loopCount         = "count"
	loopPageTab       = "page_tab"
)

func (s *Suite) policy(kind string, attempts int) retry.Policy {
	return s.sb.Policy(kind, attempts, s.opts.Interval)
}

// locate polls the application tree until find succeeds, re-reading the
// tree on every attempt.
func (s *Suite) locate(handle, what string, find func(root *model.Node) (*model.Node, error)) (*model.Node, error) {
	var found *model.Node
	err := s.policy(loopFind, s.opts.FindAttempts).Do("find "+what+" in "+handle, func(int) error {
		root, err := s.instance(handle)
		if err != nil {
			return err
		}
		found, err = find(root)
		return err
	})
	return found, err
}

// tree polls until the application's tree can be read.
func (s *Suite) tree(handle string) (*model.Node, error) {
	return s.locate(handle, "application", func(root *model.Node) (*model.Node, error) {
		return root, nil
	})
}

// item finds name/role preferring a showing match.
func (s *Suite) item(handle, name, role string) (*model.Node, error) {
	return s.locate(handle, fmt.Sprintf("[%s | %s]", name, role), func(root *model.Node) (*model.Node, error) {
		return firstShowing(root, model.Named(name, role), name, role)
	})
}

func firstShowing(root *model.Node, p model.Predicate, name, role string) (*model.Node, error) {
	matches := root.FindChildren(p)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: name=%q role=%q under %s", model.ErrNotFound, name, role, root)
	}
	for _, m := range matches {
		if m.States.Showing {
			return m, nil
		}
	}
	return matches[0], nil
}

func (s *Suite) clickNode(n *model.Node, button platform.MouseButton) error {
	x, y := n.Bounds.Center()
	if err := s.input().Click(x, y, button); err != nil {
		return fmt.Errorf("click %s at (%d,%d): %w", n, x, y, err)
	}
	return nil
}

func (s *Suite) setText(n *model.Node, text string) error {
	if err := s.sb.Provider().ValueSetter.SetText(n.Ref, text); err != nil {
		return fmt.Errorf("set text of %s: %w", n, err)
	}
	return nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
