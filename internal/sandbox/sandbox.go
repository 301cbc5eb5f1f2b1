// Package sandbox owns the desktop session a test run drives: the
// application handles, per-scenario bookkeeping and the run report.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/desktopqa/terminal-bdd/internal/platform"
	"github.com/desktopqa/terminal-bdd/internal/retry"
)

// Options configures a Sandbox.
type Options struct {
	SessionType         string // x11 or wayland; empty reads XDG_SESSION_TYPE
	Resolution          string // WxH override of the measured resolution
	AppAttempts         int
	Interval            time.Duration
	ScreenshotOnFailure bool
	ScreenshotScale     float64

	Report *Report // shared run report, created when nil

	Sleeper retry.Sleeper
	Observe retry.Observer
	Logger  *slog.Logger
	Now     func() time.Time
}

// Sandbox is the run-scoped session.
type Sandbox struct {
	Component string
	Report    *Report

	provider *platform.Provider
	procs    Processes
	opts     Options
	logger   *slog.Logger

	mu      sync.Mutex
	apps    map[string]*Application
	started map[string]*Application
	width   int
	height  int
	current *ScenarioRecord
}

// New creates a sandbox for component.
func New(component string, provider *platform.Provider, procs Processes, opts Options) *Sandbox {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AppAttempts < 1 {
		opts.AppAttempts = 30
	}
	if opts.ScreenshotScale <= 0 {
		opts.ScreenshotScale = 0.5
	}
	if opts.Report == nil {
		opts.Report = NewReport(component, opts.Now())
	}
	return &Sandbox{
		Component: component,
		Report:    opts.Report,
		provider:  provider,
		procs:     procs,
		opts:      opts,
		logger:    opts.Logger.With("component", component),
		apps:      make(map[string]*Application),
		started:   make(map[string]*Application),
	}
}

// Provider returns the platform backends.
func (s *Sandbox) Provider() *platform.Provider { return s.provider }

// Policy returns a retry policy of the given kind with the sandbox's
// sleeper, logger and observer and the given budget.
func (s *Sandbox) Policy(kind string, attempts int, interval time.Duration) retry.Policy {
	return retry.Policy{
		Kind:     kind,
		Attempts: attempts,
		Interval: interval,
		Sleeper:  s.opts.Sleeper,
		Logger:   s.logger,
		Observe:  s.opts.Observe,
	}
}

func (s *Sandbox) appPolicy() retry.Policy {
	return s.Policy("app", s.opts.AppAttempts, s.opts.Interval)
}

// Sleep pauses through the configured sleeper.
func (s *Sandbox) Sleep(d time.Duration) {
	sl := s.opts.Sleeper
	if sl == nil {
		sl = retry.RealSleeper
	}
	sl.Sleep(d)
}

// GetApplication registers an application under handle and returns it.
// Missing fields of spec are filled with defaults.
func (s *Sandbox) GetApplication(handle string, spec AppSpec) *Application {
	if spec.A11yName == "" {
		spec.A11yName = spec.Name
	}
	if spec.DesktopFile == "" {
		spec.DesktopFile = spec.Name + ".desktop"
	}
	if spec.ExitShortcut == "" {
		spec.ExitShortcut = "<Ctrl><Q>"
	}
	app := &Application{AppSpec: spec, sb: s}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[handle] = app
	return app
}

// Application looks up a registered handle.
func (s *Sandbox) Application(handle string) (*Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[handle]
	if !ok {
		return nil, fmt.Errorf("unknown application %q (known: %v)", handle, s.handlesLocked())
	}
	return app, nil
}

func (s *Sandbox) handlesLocked() []string {
	handles := make([]string, 0, len(s.apps))
	for h := range s.apps {
		handles = append(handles, h)
	}
	sort.Strings(handles)
	return handles
}

func (s *Sandbox) markStarted(a *Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started[a.A11yName] = a
}

// SessionType returns "x11" or "wayland".
func (s *Sandbox) SessionType() string {
	if s.opts.SessionType != "" {
		return s.opts.SessionType
	}
	if t := os.Getenv("XDG_SESSION_TYPE"); t == "wayland" {
		return t
	}
	return "x11"
}

// Resolution returns the screen size, measured once and cached.
func (s *Sandbox) Resolution() (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		return s.width, s.height, nil
	}
	var w, h int
	var err error
	if s.opts.Resolution != "" {
		w, h, err = platform.ParseResolution(s.opts.Resolution)
	} else {
		w, h, err = s.provider.Screen.Resolution()
	}
	if err != nil {
		return 0, 0, fmt.Errorf("screen resolution: %w", err)
	}
	s.width, s.height = w, h
	return w, h, nil
}

// Current returns the record of the running scenario, creating a
// placeholder when called outside a scenario.
func (s *Sandbox) Current() *ScenarioRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		s.current = s.Report.Begin("(setup)", nil, s.opts.Now())
	}
	return s.current
}

// Attach makes rec the record of the running scenario. It is used when the
// record was opened before the sandbox saw the scenario.
func (s *Sandbox) Attach(rec *ScenarioRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = rec
}

// BeforeScenario opens the report record and forgets applications started
// by earlier scenarios that are no longer running.
func (s *Sandbox) BeforeScenario(_ context.Context, name string, tags []string) error {
	rec := s.Report.Begin(name, tags, s.opts.Now())
	s.mu.Lock()
	s.current = rec
	started := s.startedLocked()
	s.mu.Unlock()

	for _, app := range started {
		running, err := app.IsRunning()
		if err != nil {
			return fmt.Errorf("before scenario %q: %w", name, err)
		}
		if !running {
			s.mu.Lock()
			delete(s.started, app.A11yName)
			s.mu.Unlock()
		}
	}
	s.logger.Debug("scenario started", "scenario", name, "tags", tags)
	return nil
}

func (s *Sandbox) startedLocked() []*Application {
	apps := make([]*Application, 0, len(s.started))
	for _, a := range s.started {
		apps = append(apps, a)
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].A11yName < apps[j].A11yName })
	return apps
}

// AfterScenario embeds a screenshot when the scenario failed, kills every
// application the sandbox started and closes the report record.
func (s *Sandbox) AfterScenario(ctx context.Context, scenarioErr error) error {
	rec := s.Current()
	var errs []error

	if scenarioErr != nil && s.opts.ScreenshotOnFailure && s.provider.Screenshotter != nil {
		png, err := s.provider.Screenshotter.CaptureScreen(s.opts.ScreenshotScale)
		if err != nil {
			s.logger.Warn("screenshot failed", "error", err)
		} else {
			rec.Embed("image/png", png, "Screenshot")
		}
	}

	s.mu.Lock()
	started := s.startedLocked()
	s.mu.Unlock()
	for _, app := range started {
		running, err := app.IsRunning()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if running {
			if _, err := s.procs.Kill(ctx, app.Name); err != nil {
				errs = append(errs, fmt.Errorf("kill %s: %w", app.A11yName, err))
				continue
			}
		}
		s.mu.Lock()
		delete(s.started, app.A11yName)
		s.mu.Unlock()
	}

	rec.Finish(scenarioErr, s.opts.Now())
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	return errors.Join(errs...)
}
