package registry

import (
	"strings"
)

// Command is the closed set of launcher actions. Free-form input resolves to
// exactly one of these or to nothing; there is no default fallthrough.
type Command int

const (
	CommandServer Command = iota
	CommandWorker
	CommandRedis
	CommandAll
)

func (c Command) String() string {
	switch c {
	case CommandServer:
		return "server"
	case CommandWorker:
		return "worker"
	case CommandRedis:
		return "redis"
	case CommandAll:
		return "all"
	default:
		return "unknown"
	}
}

// Resolve maps a command name to its Command. The second return is false for
// anything outside the recognized set, including the empty string.
func Resolve(name string) (Command, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "server":
		return CommandServer, true
	case "worker":
		return CommandWorker, true
	case "redis", "cache":
		return CommandRedis, true
	case "all":
		return CommandAll, true
	default:
		return 0, false
	}
}

// ServiceDefinition describes one launchable unit. Definitions are
// configuration: built once at startup and never mutated.
type ServiceDefinition struct {
	Name    string
	Command []string
	// Dir is the working directory relative to the repo root; empty means the
	// repo root itself.
	Dir string
	Env map[string]string
	// Broker marks the service the others depend on; the sequencer starts it
	// first and gates on it.
	Broker bool
	// ReadyAddr is the host:port the broker answers PING on once it accepts
	// connections. Only meaningful when Broker is true.
	ReadyAddr string
	Short     string
}

// Table returns the built-in service table in dependency order: the broker
// first, dependents after. Callers own the returned slice.
func Table() []ServiceDefinition {
	return []ServiceDefinition{
		{
			Name:      "redis",
			Command:   []string{"docker", "compose", "up"},
			Dir:       "redis",
			Broker:    true,
			ReadyAddr: "127.0.0.1:6379",
			Short:     "cache/broker via its compose definition",
		},
		{
			Name:    "worker",
			Command: []string{"celery", "-A", "src.worker.celery_app", "worker", "--loglevel=info"},
			Short:   "background task worker",
		},
		{
			Name:    "server",
			Command: []string{"uvicorn", "src.main:app", "--reload", "--port", "8000"},
			Short:   "API server",
		},
	}
}

// Find returns the definition named name. Lookup is by exact service name;
// command aliases are handled by Resolve, not here.
func Find(defs []ServiceDefinition, name string) (ServiceDefinition, bool) {
	for _, d := range defs {
		if d.Name == name {
			return d, true
		}
	}
	return ServiceDefinition{}, false
}

// ServiceName returns the service table key a single-service command targets.
func (c Command) ServiceName() string {
	switch c {
	case CommandServer:
		return "server"
	case CommandWorker:
		return "worker"
	case CommandRedis:
		return "redis"
	default:
		return ""
	}
}
