package platform

import (
	"fmt"
	"runtime"
)

// Provider bundles all platform backends for the current OS.
type Provider struct {
	Reader        Reader
	Inputter      Inputter
	ValueSetter   ValueSetter
	Screenshotter Screenshotter
	Screen        Screen

	// Close releases bus connections. May be nil.
	Close func() error
}

// ErrUnsupported is returned on unsupported platforms.
var ErrUnsupported = fmt.Errorf("terminal-bdd is not supported on %s/%s; an AT-SPI desktop (linux) is required", runtime.GOOS, runtime.GOARCH)

// NewProviderFunc is set by platform-specific packages via init().
// See internal/platform/atspi/init.go for the Linux registration.
var NewProviderFunc func() (*Provider, error)

// NewProvider returns a Provider for the current OS.
func NewProvider() (*Provider, error) {
	if NewProviderFunc == nil {
		return nil, ErrUnsupported
	}
	return NewProviderFunc()
}
