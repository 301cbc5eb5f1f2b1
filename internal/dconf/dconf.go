// Package dconf reads and writes the desktop settings database through
// the dconf command line tool.
package dconf

import (
	"context"
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Store is the subset of settings operations the suite needs.
type Store interface {
	Reset(ctx context.Context, key string) error
	ResetDir(ctx context.Context, dir string) error
	Read(ctx context.Context, key string) (string, error)
	List(ctx context.Context, dir string) ([]string, error)
	Write(ctx context.Context, key, value string) error
}

// CLI implements Store with the dconf binary.
type CLI struct {
	Runner Runner
	Binary string
}

// NewCLI returns a Store backed by the dconf binary on $PATH.
func NewCLI() *CLI {
	return &CLI{Runner: ExecRunner{}, Binary: "dconf"}
}

func (c *CLI) run(ctx context.Context, args ...string) (string, error) {
	return c.Runner.Run(ctx, shellquote.Join(append([]string{c.Binary}, args...)...))
}

// Reset removes a single key.
func (c *CLI) Reset(ctx context.Context, key string) error {
	if strings.HasSuffix(key, "/") {
		return fmt.Errorf("dconf reset: %q is a directory, use ResetDir", key)
	}
	_, err := c.run(ctx, "reset", key)
	return err
}

// ResetDir recursively removes every key below dir.
func (c *CLI) ResetDir(ctx context.Context, dir string) error {
	if !strings.HasSuffix(dir, "/") {
		return fmt.Errorf("dconf reset -f: %q is not a directory path", dir)
	}
	_, err := c.run(ctx, "reset", "-f", dir)
	return err
}

// Read returns the GVariant text of key with the trailing newline removed.
// An unset key reads as "".
func (c *CLI) Read(ctx context.Context, key string) (string, error) {
	out, err := c.run(ctx, "read", key)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

// List returns the entries directly below dir, in dconf's order.
func (c *CLI) List(ctx context.Context, dir string) ([]string, error) {
	out, err := c.run(ctx, "list", dir)
	if err != nil {
		return nil, err
	}
	var entries []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			entries = append(entries, line)
		}
	}
	return entries, nil
}

// Write stores a GVariant text value such as "true" or "'block'".
func (c *CLI) Write(ctx context.Context, key, value string) error {
	_, err := c.run(ctx, "write", key, value)
	return err
}

// ResetPaths resets each path, choosing recursive reset for directory
// paths (trailing slash). It stops at the first failure.
func ResetPaths(ctx context.Context, s Store, paths []string) error {
	for _, p := range paths {
		var err error
		if strings.HasSuffix(p, "/") {
			err = s.ResetDir(ctx, p)
		} else {
			err = s.Reset(ctx, p)
		}
		if err != nil {
			return fmt.Errorf("reset %s: %w", p, err)
		}
	}
	return nil
}
