//go:build linux

// Package atspi provides Linux platform support using the AT-SPI2
// accessibility bus and GNOME Shell D-Bus services.
package atspi
