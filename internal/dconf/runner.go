package dconf

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
)

// Runner runs a shell-style command line and returns its stdout.
type Runner interface {
	Run(ctx context.Context, cmdline string) (string, error)
}

// ExecRunner runs commands directly (no shell), splitting the command line
// with POSIX quoting rules.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, cmdline string) (string, error) {
	args, err := shellquote.Split(cmdline)
	if err != nil {
		return "", fmt.Errorf("parse command %q: %w", cmdline, err)
	}
	if len(args) == 0 {
		return "", fmt.Errorf("empty command")
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("%s: %w: %s", cmdline, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
