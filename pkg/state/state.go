// Package state persists the record of detached launches under .devup/ so a
// later invocation can report on them. The launcher is fire-and-forget; this
// record is the only trace it keeps of the children it spawned.
package state

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

const (
	StateDirName  = ".devup"
	StateFilename = "state.json"
	LogsDirName   = "logs"
)

type State struct {
	RepoRoot  string          `json:"repo_root"`
	CreatedAt time.Time       `json:"created_at"`
	Services  []ServiceRecord `json:"services"`
}

// ServiceRecord is one detached launch: enough to find the process and its
// logs later, nothing more.
type ServiceRecord struct {
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	Command   []string  `json:"command"`
	Dir       string    `json:"dir"`
	StdoutLog string    `json:"stdout_log"`
	StderrLog string    `json:"stderr_log"`
	StartedAt time.Time `json:"started_at"`
}

func StatePath(repoRoot string) string {
	return filepath.Join(repoRoot, StateDirName, StateFilename)
}

func LogsDir(repoRoot string) string {
	return filepath.Join(repoRoot, StateDirName, LogsDirName)
}

func Load(repoRoot string) (*State, error) {
	b, err := os.ReadFile(StatePath(repoRoot))
	if err != nil {
		return nil, errors.Wrap(err, "read state")
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, errors.Wrap(err, "parse state json")
	}
	return &s, nil
}

func Save(repoRoot string, s *State) error {
	if s == nil {
		return errors.New("nil state")
	}
	if err := os.MkdirAll(filepath.Dir(StatePath(repoRoot)), 0o755); err != nil {
		return errors.Wrap(err, "mkdir state dir")
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal state")
	}
	if err := os.WriteFile(StatePath(repoRoot), b, 0o644); err != nil {
		return errors.Wrap(err, "write state")
	}
	return nil
}

func Remove(repoRoot string) error {
	if err := os.Remove(StatePath(repoRoot)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "remove state")
	}
	return nil
}

// ProcessAlive reports whether pid is a live, non-zombie process we could
// signal. EPERM counts as alive: the process exists, we just don't own it.
func ProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	if isZombie(pid) {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return stderrors.Is(err, syscall.EPERM)
}

func isZombie(pid int) bool {
	b, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return false
	}
	// Format: pid (comm) state ... — state is the field after the last ')'.
	i := bytes.LastIndexByte(b, ')')
	if i < 0 {
		return false
	}
	fields := bytes.Fields(bytes.TrimSpace(b[i+1:]))
	if len(fields) == 0 || len(fields[0]) == 0 {
		return false
	}
	return fields[0][0] == 'Z'
}
