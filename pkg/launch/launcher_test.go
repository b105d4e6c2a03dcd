package launch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/datachat-labs/devup/pkg/registry"
	"github.com/datachat-labs/devup/pkg/state"
	"github.com/stretchr/testify/require"
)

func TestLauncher_ForegroundExitCode(t *testing.T) {
	repoRoot := t.TempDir()
	var out bytes.Buffer
	l := New(Options{RepoRoot: repoRoot, Stdout: &out, Stderr: &out, Stdin: strings.NewReader("")})

	res := l.Launch(context.Background(), registry.ServiceDefinition{
		Name:    "server",
		Command: []string{"bash", "-c", "exit 0"},
	}, Foreground)
	require.NoError(t, res.Err)
	require.Greater(t, res.PID, 0)
	require.Contains(t, out.String(), "Starting server...")

	res = l.Launch(context.Background(), registry.ServiceDefinition{
		Name:    "server",
		Command: []string{"bash", "-c", "exit 3"},
	}, Foreground)
	require.Error(t, res.Err)
	require.Contains(t, res.Err.Error(), "exited with code 3")
}

func TestLauncher_ForegroundWorkingDirectory(t *testing.T) {
	repoRoot := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(repoRoot, "redis"), 0o755))

	before, err := os.Getwd()
	require.NoError(t, err)

	var out bytes.Buffer
	l := New(Options{RepoRoot: repoRoot, Stdout: &out, Stderr: &out, Stdin: strings.NewReader("")})
	res := l.Launch(context.Background(), registry.ServiceDefinition{
		Name:    "redis",
		Command: []string{"pwd"},
		Dir:     "redis",
	}, Foreground)
	require.NoError(t, res.Err)
	require.Contains(t, out.String(), filepath.Join(repoRoot, "redis"))

	// The launcher passes the workdir to the child; its own cwd is untouched.
	after, err := os.Getwd()
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestLauncher_Detached(t *testing.T) {
	repoRoot := t.TempDir()
	var out bytes.Buffer
	l := New(Options{RepoRoot: repoRoot, Stdout: &out, Stderr: &out})

	res := l.Launch(context.Background(), registry.ServiceDefinition{
		Name:    "worker",
		Command: []string{"bash", "-c", "echo started; sleep 10"},
	}, Detached)
	require.NoError(t, res.Err)
	require.Greater(t, res.PID, 0)
	require.True(t, state.ProcessAlive(res.PID))
	defer func() { _ = syscall.Kill(-res.PID, syscall.SIGKILL) }()

	require.FileExists(t, res.StdoutLog)
	require.FileExists(t, res.StderrLog)
	require.Contains(t, res.StdoutLog, state.LogsDir(repoRoot))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		b, err := os.ReadFile(res.StdoutLog)
		if err == nil && strings.Contains(string(b), "started") {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("child stdout never reached the log file")
}

func TestLauncher_SpawnErrors(t *testing.T) {
	repoRoot := t.TempDir()
	var out bytes.Buffer
	l := New(Options{RepoRoot: repoRoot, Stdout: &out, Stderr: &out})

	res := l.Launch(context.Background(), registry.ServiceDefinition{
		Name:    "worker",
		Command: []string{"definitely-not-on-path-3720"},
	}, Detached)
	require.Error(t, res.Err)
	require.Contains(t, res.Err.Error(), "worker")

	res = l.Launch(context.Background(), registry.ServiceDefinition{
		Name:    "redis",
		Command: []string{"true"},
		Dir:     "does-not-exist",
	}, Detached)
	require.Error(t, res.Err)
	require.Contains(t, res.Err.Error(), "working directory")

	res = l.Launch(context.Background(), registry.ServiceDefinition{Name: "worker"}, Foreground)
	require.Error(t, res.Err)

	res = l.Launch(context.Background(), registry.ServiceDefinition{Command: []string{"true"}}, Foreground)
	require.Error(t, res.Err)
}

func TestLauncher_DryRun(t *testing.T) {
	var stdout, stderr bytes.Buffer
	l := New(Options{RepoRoot: t.TempDir(), DryRun: true, Stdout: &stdout, Stderr: &stderr})

	res := l.Launch(context.Background(), registry.ServiceDefinition{
		Name:    "redis",
		Command: []string{"docker", "compose", "up"},
		Dir:     "redis",
	}, Detached)
	require.NoError(t, res.Err)
	require.Zero(t, res.PID)
	require.Contains(t, stderr.String(), "+ docker compose up")
}
