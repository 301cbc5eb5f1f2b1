//go:build linux

package atspi

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/godbus/dbus/v5"
	"golang.org/x/image/draw"
)

// Screenshotter implements platform.Screenshotter and platform.Screen on
// top of the GNOME Shell screenshot service.
type Screenshotter struct {
	session *dbus.Conn
	tmpDir  string

	width, height int
}

// NewScreenshotter creates a screenshotter on the session bus.
func NewScreenshotter(session *dbus.Conn) *Screenshotter {
	return &Screenshotter{session: session, tmpDir: os.TempDir()}
}

func (s *Screenshotter) capture() (image.Image, error) {
	f, err := os.CreateTemp(s.tmpDir, "terminal-bdd-*.png")
	if err != nil {
		return nil, fmt.Errorf("screenshot temp file: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	var ok bool
	var used string
	err = s.session.Object("org.gnome.Shell.Screenshot", "/org/gnome/Shell/Screenshot").
		Call("org.gnome.Shell.Screenshot.Screenshot", 0, false, false, filepath.Clean(path)).
		Store(&ok, &used)
	if err != nil {
		return nil, fmt.Errorf("gnome-shell screenshot: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("gnome-shell screenshot: service reported failure")
	}

	data, err := os.ReadFile(used)
	if err != nil {
		return nil, fmt.Errorf("read screenshot: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

// CaptureScreen grabs the full screen and scales it down by scale.
func (s *Screenshotter) CaptureScreen(scale float64) ([]byte, error) {
	if scale <= 0 || scale > 1.0 {
		scale = 0.5
	}
	img, err := s.capture()
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	s.width, s.height = b.Dx(), b.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, int(float64(b.Dx())*scale), int(float64(b.Dy())*scale)))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Resolution returns the screen size, measured from a full screenshot the
// first time it is needed.
func (s *Screenshotter) Resolution() (int, int, error) {
	if s.width > 0 && s.height > 0 {
		return s.width, s.height, nil
	}
	img, err := s.capture()
	if err != nil {
		return 0, 0, fmt.Errorf("measure resolution: %w", err)
	}
	b := img.Bounds()
	s.width, s.height = b.Dx(), b.Dy()
	return s.width, s.height, nil
}
