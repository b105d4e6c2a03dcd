package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/datachat-labs/devup/pkg/registry"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultConfigFilename = ".devup.yaml"

// File is the optional repo-local override file. Everything in it is
// optional; an absent file means the built-in service table is used as-is.
type File struct {
	Services map[string]Service `yaml:"services,omitempty"`
	Broker   Broker             `yaml:"broker,omitempty"`
	// StartDelay is the blind gate between the broker launch and its
	// dependents when readiness probing is off, e.g. "5s".
	StartDelay string `yaml:"start_delay,omitempty"`
}

type Service struct {
	Command []string          `yaml:"command,omitempty"`
	Dir     string            `yaml:"dir,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

type Broker struct {
	Address string `yaml:"address,omitempty"`
	// Ready disables the PING probe when explicitly set to false, falling
	// back to the fixed start delay.
	Ready *bool `yaml:"ready,omitempty"`
}

// Settings is the launch configuration after defaults and overrides are
// applied.
type Settings struct {
	StartDelay time.Duration
	Ready      bool
}

const DefaultStartDelay = 5 * time.Second

func DefaultPath(repoRoot string) string {
	return filepath.Join(repoRoot, DefaultConfigFilename)
}

func LoadFromFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	var cfg File
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse config yaml")
	}
	return &cfg, nil
}

func LoadOptional(path string) (*File, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, errors.Wrap(err, "stat config")
	}
	return LoadFromFile(path)
}

// Apply merges cfg onto the built-in table and resolves the effective
// settings. Service names in cfg that are not in the table are an error, so
// typos fail loudly instead of being ignored.
func Apply(cfg *File, defs []registry.ServiceDefinition) ([]registry.ServiceDefinition, Settings, error) {
	if cfg == nil {
		cfg = &File{}
	}

	out := make([]registry.ServiceDefinition, len(defs))
	copy(out, defs)

	for name, svc := range cfg.Services {
		idx := -1
		for i, d := range out {
			if d.Name == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, Settings{}, errors.Errorf("unknown service %q in config", name)
		}
		if len(svc.Command) > 0 {
			out[idx].Command = svc.Command
		}
		if svc.Dir != "" {
			out[idx].Dir = svc.Dir
		}
		if len(svc.Env) > 0 {
			out[idx].Env = mergeEnv(out[idx].Env, svc.Env)
		}
	}

	settings := Settings{StartDelay: DefaultStartDelay, Ready: true}
	if cfg.StartDelay != "" {
		d, err := time.ParseDuration(cfg.StartDelay)
		if err != nil {
			return nil, Settings{}, errors.Wrap(err, "parse start_delay")
		}
		if d < 0 {
			return nil, Settings{}, errors.New("start_delay must be >= 0")
		}
		settings.StartDelay = d
	}
	if cfg.Broker.Ready != nil {
		settings.Ready = *cfg.Broker.Ready
	}
	if cfg.Broker.Address != "" {
		for i := range out {
			if out[i].Broker {
				out[i].ReadyAddr = cfg.Broker.Address
			}
		}
	}

	return out, settings, nil
}

func mergeEnv(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
