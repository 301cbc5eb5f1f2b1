//go:build linux

package main

// Registers the AT-SPI provider.
import _ "github.com/desktopqa/terminal-bdd/internal/platform/atspi"
