// Package launch spawns the dev-environment services, either in the
// foreground of the invoking terminal or detached into their own process
// group, and sequences the composite "start everything" flow.
package launch

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/datachat-labs/devup/pkg/registry"
	"github.com/datachat-labs/devup/pkg/state"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Mode selects how a service is attached to the invoking session.
type Mode int

const (
	// Foreground inherits the caller's stdio and blocks until the child
	// exits. Used for single-service invocations.
	Foreground Mode = iota
	// Detached runs the child in its own process group with output captured
	// to log files, returning as soon as the spawn is issued. Used by the
	// composite launch so all services run concurrently.
	Detached
)

// Result is the outcome of one launch attempt. Err is the spawn (or, in
// foreground mode, run) failure; a nil Err means the launch was issued
// successfully, not that the service is serving traffic.
type Result struct {
	Service   string
	PID       int
	StdoutLog string
	StderrLog string
	StartedAt time.Time
	Err       error
}

func (r Result) OK() bool { return r.Err == nil }

type Options struct {
	RepoRoot string
	DryRun   bool

	// Streams for announcements and foreground children. Default to the
	// process's own stdio.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

type Launcher struct {
	opts Options
}

func New(opts Options) *Launcher {
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	return &Launcher{opts: opts}
}

// Launch spawns svc. The working directory is passed to the child via the
// spawn call; the launcher's own working directory is never changed.
func (l *Launcher) Launch(ctx context.Context, svc registry.ServiceDefinition, mode Mode) Result {
	res := Result{Service: svc.Name}

	if svc.Name == "" {
		res.Err = errors.New("service name is required")
		return res
	}
	if len(svc.Command) == 0 {
		res.Err = errors.Errorf("service %q missing command", svc.Name)
		return res
	}
	if l.opts.RepoRoot == "" {
		res.Err = errors.New("missing RepoRoot")
		return res
	}

	if l.opts.DryRun {
		_, _ = fmt.Fprintln(l.opts.Stderr, "+ "+strings.Join(svc.Command, " "))
		return res
	}

	cwd := l.opts.RepoRoot
	if svc.Dir != "" {
		if filepath.IsAbs(svc.Dir) {
			cwd = svc.Dir
		} else {
			cwd = filepath.Join(l.opts.RepoRoot, svc.Dir)
		}
	}
	if _, err := os.Stat(cwd); err != nil {
		res.Err = errors.Wrapf(err, "service %q working directory", svc.Name)
		return res
	}

	_, _ = fmt.Fprintf(l.opts.Stdout, "Starting %s...\n", svc.Name)

	if mode == Foreground {
		return l.launchForeground(ctx, svc, cwd, res)
	}
	return l.launchDetached(svc, cwd, res)
}

func (l *Launcher) launchForeground(ctx context.Context, svc registry.ServiceDefinition, cwd string, res Result) Result {
	// #nosec G204 -- commands come from the static service table or repo config.
	cmd := exec.CommandContext(ctx, svc.Command[0], svc.Command[1:]...)
	cmd.Dir = cwd
	cmd.Env = mergeEnv(os.Environ(), svc.Env)
	cmd.Stdin = l.opts.Stdin
	cmd.Stdout = l.opts.Stdout
	cmd.Stderr = l.opts.Stderr

	if err := cmd.Start(); err != nil {
		res.Err = errors.Wrapf(err, "start service %q", svc.Name)
		return res
	}
	res.PID = cmd.Process.Pid
	res.StartedAt = time.Now()
	log.Info().Str("service", svc.Name).Int("pid", res.PID).Msg("service started (foreground)")

	if err := cmd.Wait(); err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			res.Err = errors.Errorf("service %q exited with code %d", svc.Name, ee.ExitCode())
		} else {
			res.Err = errors.Wrapf(err, "wait for service %q", svc.Name)
		}
	}
	return res
}

func (l *Launcher) launchDetached(svc registry.ServiceDefinition, cwd string, res Result) Result {
	logsDir := state.LogsDir(l.opts.RepoRoot)
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		res.Err = errors.Wrap(err, "mkdir logs dir")
		return res
	}

	ts := time.Now().Format("20060102-150405")
	res.StdoutLog = filepath.Join(logsDir, svc.Name+"-"+ts+".stdout.log")
	res.StderrLog = filepath.Join(logsDir, svc.Name+"-"+ts+".stderr.log")

	stdoutFile, err := os.OpenFile(res.StdoutLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		res.Err = errors.Wrap(err, "open stdout log")
		return res
	}
	defer func() { _ = stdoutFile.Close() }()

	stderrFile, err := os.OpenFile(res.StderrLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		res.Err = errors.Wrap(err, "open stderr log")
		return res
	}
	defer func() { _ = stderrFile.Close() }()

	// Plain Command, not CommandContext: the child must outlive this process.
	// #nosec G204 -- commands come from the static service table or repo config.
	cmd := exec.Command(svc.Command[0], svc.Command[1:]...)
	cmd.Dir = cwd
	cmd.Env = mergeEnv(os.Environ(), svc.Env)
	cmd.Stdout = stdoutFile
	cmd.Stderr = stderrFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		res.Err = errors.Wrapf(err, "start service %q", svc.Name)
		return res
	}

	res.PID = cmd.Process.Pid
	res.StartedAt = time.Now()
	log.Info().Str("service", svc.Name).Int("pid", res.PID).Str("cwd", cwd).Msg("service started (detached)")

	// Reap the child if it exits while we are still around; once we exit it
	// is init's problem, which is the point of a fire-and-forget launch.
	go func() { _ = cmd.Wait() }()

	return res
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	out := append([]string{}, base...)
	for k, v := range extra {
		out = append(out, k+"="+v)
	}
	return out
}
