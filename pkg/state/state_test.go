package state

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSaveLoadRemove(t *testing.T) {
	repoRoot := t.TempDir()

	st := &State{
		RepoRoot:  repoRoot,
		CreatedAt: time.Now().UTC(),
		Services: []ServiceRecord{
			{
				Name:      "redis",
				PID:       1234,
				Command:   []string{"docker", "compose", "up"},
				Dir:       filepath.Join(repoRoot, "redis"),
				StdoutLog: filepath.Join(LogsDir(repoRoot), "redis.stdout.log"),
				StderrLog: filepath.Join(LogsDir(repoRoot), "redis.stderr.log"),
				StartedAt: time.Now().UTC(),
			},
		},
	}
	require.NoError(t, Save(repoRoot, st))

	loaded, err := Load(repoRoot)
	require.NoError(t, err)
	require.Equal(t, st.RepoRoot, loaded.RepoRoot)
	require.Len(t, loaded.Services, 1)
	require.Equal(t, "redis", loaded.Services[0].Name)
	require.Equal(t, 1234, loaded.Services[0].PID)

	require.NoError(t, Remove(repoRoot))
	_, err = Load(repoRoot)
	require.Error(t, err)

	// Removing twice is fine.
	require.NoError(t, Remove(repoRoot))
}

func TestSave_NilState(t *testing.T) {
	require.Error(t, Save(t.TempDir(), nil))
}

func TestProcessAlive(t *testing.T) {
	require.False(t, ProcessAlive(0))
	require.False(t, ProcessAlive(-1))
	require.True(t, ProcessAlive(os.Getpid()))

	cmd := exec.Command("sleep", "10")
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid
	require.True(t, ProcessAlive(pid))

	require.NoError(t, cmd.Process.Kill())
	_ = cmd.Wait()
	deadline := time.Now().Add(2 * time.Second)
	for ProcessAlive(pid) && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	require.False(t, ProcessAlive(pid))
}

func TestTailLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString("line\n")
	}
	b.WriteString("last\n")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	lines, err := TailLines(path, 3, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"line", "line", "last"}, lines)

	_, err = TailLines(filepath.Join(t.TempDir(), "missing.log"), 3, 0)
	require.Error(t, err)
}
