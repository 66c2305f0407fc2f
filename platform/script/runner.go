// Package script runs lifecycle scripts as child processes.
// Implements runtime.Executor.
package script

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Runner executes scripts from the runtime's working directory,
// resolving the platform suffix (.cmd on windows, .sh elsewhere) and
// streaming combined stdout/stderr to the caller's sink as it is
// produced. Operations can run for minutes; buffering to completion
// would starve operators of feedback.
type Runner struct {
	dir   string
	shell string
}

// Option configures a Runner.
type Option func(*Runner)

// WithShell overrides the interpreter used for .sh scripts. Defaults
// to "/bin/sh".
func WithShell(shell string) Option {
	return func(r *Runner) { r.shell = shell }
}

// New creates a Runner rooted at dir.
func New(dir string, opts ...Option) *Runner {
	r := &Runner{dir: dir, shell: "/bin/sh"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs <script>.sh (or .cmd) inside the runner's directory.
// env is merged over the ambient process environment. A non-zero exit
// is returned as an error; output written so far has already reached
// the sink.
func (r *Runner) Execute(ctx context.Context, script string, args []string, env map[string]string, sink io.Writer) error {
	path := filepath.Join(r.dir, script+suffix())
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("resolve script %q: %w", script, err)
	}

	cmd := r.command(ctx, path, args)
	cmd.Dir = r.dir
	cmd.Env = mergeEnv(os.Environ(), env)
	if sink == nil {
		sink = io.Discard
	}
	cmd.Stdout = sink
	cmd.Stderr = sink

	slog.Debug("Running lifecycle script.", "script", script, "args", args)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run script %q: %w", script, err)
	}
	return nil
}

func (r *Runner) command(ctx context.Context, path string, args []string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", append([]string{"/c", path}, args...)...)
	}
	return exec.CommandContext(ctx, r.shell, append([]string{path}, args...)...)
}

func suffix() string {
	if runtime.GOOS == "windows" {
		return ".cmd"
	}
	return ".sh"
}

func mergeEnv(ambient []string, extra map[string]string) []string {
	out := make([]string, len(ambient), len(ambient)+len(extra))
	copy(out, ambient)
	for k, v := range extra {
		out = append(out, k+"="+v)
	}
	return out
}
