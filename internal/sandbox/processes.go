package sandbox

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// Processes starts and stops desktop applications.
type Processes interface {
	Start(ctx context.Context, argv []string) error
	Running(ctx context.Context, name string) (bool, error)
	// Kill terminates every process matching name and returns how many
	// were signalled.
	Kill(ctx context.Context, name string) (int, error)
}

// SystemProcesses implements Processes with os/exec and gopsutil.
type SystemProcesses struct{}

// Start launches argv detached from the test process.
func (SystemProcesses) Start(_ context.Context, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("start: empty command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", argv[0], err)
	}
	return cmd.Process.Release()
}

func (SystemProcesses) Running(ctx context.Context, name string) (bool, error) {
	procs, err := matching(ctx, name)
	return len(procs) > 0, err
}

func (SystemProcesses) Kill(ctx context.Context, name string) (int, error) {
	procs, err := matching(ctx, name)
	if err != nil {
		return 0, err
	}
	killed := 0
	for _, p := range procs {
		if err := p.KillWithContext(ctx); err != nil {
			return killed, fmt.Errorf("kill %s (pid %d): %w", name, p.Pid, err)
		}
		killed++
	}
	return killed, nil
}

func matching(ctx context.Context, name string) ([]*process.Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	var out []*process.Process
	for _, p := range procs {
		pname, err := p.NameWithContext(ctx)
		if err != nil {
			continue // exited while listing
		}
		if NameMatches(pname, name) {
			out = append(out, p)
		}
	}
	return out, nil
}

// commLen is the kernel's limit for /proc/<pid>/comm, minus the NUL.
const commLen = 15

// NameMatches reports whether the process name pname belongs to the
// application name. Matching is by prefix, so "gnome-terminal" also covers
// its "gnome-terminal-server" helper. Names truncated by the kernel match
// when they are a prefix of the wanted name.
func NameMatches(pname, name string) bool {
	if pname == "" || name == "" {
		return false
	}
	if strings.HasPrefix(pname, name) {
		return true
	}
	return len(pname) == commLen && strings.HasPrefix(name, pname)
}
