package sandbox

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/desktopqa/terminal-bdd/internal/model"
)

// ErrNotRunning is returned when an application has no accessible tree.
var ErrNotRunning = errors.New("application is not running")

// Start methods.
const (
	ViaCommand     = "command"
	ViaDesktopFile = "desktop file"
)

// Close methods.
const (
	ViaShortcut = "shortcut"
	ViaKill     = "kill"
)

// AppSpec describes how to find and drive one application.
type AppSpec struct {
	Name         string // process and command name
	A11yName     string // name on the accessibility bus, defaults to Name
	DesktopFile  string // defaults to Name + ".desktop"
	ExitShortcut string // defaults to <Ctrl><Q>
}

// Application is a handle on one desktop application.
type Application struct {
	AppSpec
	sb *Sandbox
}

func (a *Application) String() string { return a.A11yName }

// Instance returns the current accessible tree of the application.
func (a *Application) Instance() (*model.Node, error) {
	root, err := a.sb.provider.Reader.Tree(a.A11yName)
	if errors.Is(err, model.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotRunning, a.A11yName)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", a.A11yName, err)
	}
	return root, nil
}

// IsRunning reports whether the application is registered on the
// accessibility bus.
func (a *Application) IsRunning() (bool, error) {
	apps, err := a.sb.provider.Reader.Applications()
	if err != nil {
		return false, err
	}
	return slices.Contains(apps, a.A11yName), nil
}

// WaitRunning polls until the application is running.
func (a *Application) WaitRunning() error {
	return a.sb.appPolicy().Until("application "+a.A11yName+" running", func() (bool, string) {
		ok, err := a.IsRunning()
		if err != nil {
			return false, err.Error()
		}
		return ok, a.A11yName + " is not running"
	})
}

// WaitGone polls until the application is no longer running.
func (a *Application) WaitGone() error {
	return a.sb.appPolicy().Until("application "+a.A11yName+" gone", func() (bool, string) {
		ok, err := a.IsRunning()
		if err != nil {
			return false, err.Error()
		}
		return !ok, a.A11yName + " is still running"
	})
}

// WaitExited polls until no process matches the application name.
func (a *Application) WaitExited(ctx context.Context) error {
	return a.sb.appPolicy().Until("process "+a.Name+" exited", func() (bool, string) {
		running, err := a.sb.procs.Running(ctx, a.Name)
		if err != nil {
			return false, err.Error()
		}
		return !running, a.Name + " process is still running"
	})
}

// Start launches the application and waits until it is running.
func (a *Application) Start(ctx context.Context, method string) error {
	var argv []string
	switch method {
	case ViaCommand, "":
		argv = []string{a.Name}
	case ViaDesktopFile:
		argv = []string{"gtk-launch", strings.TrimSuffix(a.DesktopFile, ".desktop")}
	default:
		return fmt.Errorf("unknown start method %q (expected %q or %q)", method, ViaCommand, ViaDesktopFile)
	}
	a.sb.logger.Info("starting application", "app", a.A11yName, "via", method)
	if err := a.sb.procs.Start(ctx, argv); err != nil {
		return err
	}
	a.sb.markStarted(a)
	return a.WaitRunning()
}

// Close stops the application and waits until it is gone.
func (a *Application) Close(ctx context.Context, method string) error {
	a.sb.logger.Info("closing application", "app", a.A11yName, "via", method)
	switch method {
	case ViaShortcut, "":
		if err := a.sb.provider.Inputter.KeyCombo(a.ExitShortcut); err != nil {
			return fmt.Errorf("close %s: %w", a.A11yName, err)
		}
	case ViaKill:
		if _, err := a.sb.procs.Kill(ctx, a.Name); err != nil {
			return fmt.Errorf("close %s: %w", a.A11yName, err)
		}
		if err := a.WaitExited(ctx); err != nil {
			return fmt.Errorf("close %s: %w", a.A11yName, err)
		}
	default:
		return fmt.Errorf("unknown close method %q (expected %q or %q)", method, ViaShortcut, ViaKill)
	}
	return a.WaitGone()
}
