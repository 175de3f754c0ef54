package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ActionConfig declares one externally implemented action.
type ActionConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Type        string            `yaml:"type" json:"type"` // "process" or "webhook"
	Description string            `yaml:"description" json:"description"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Env         map[string]string `yaml:"env" json:"env"`
	URL         string            `yaml:"url" json:"url"`
	Headers     map[string]string `yaml:"headers" json:"headers"`
	Timeout     string            `yaml:"timeout" json:"timeout"`
}

// ConfigFile represents the structure of actions.yaml.
type ConfigFile struct {
	Actions []ActionConfig `yaml:"actions" json:"actions"`
}

// LoadConfig reads an actions file (YAML, or JSON by extension).
// A missing file means no external actions.
func LoadConfig(path string) (*ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ConfigFile{}, nil
		}
		return nil, fmt.Errorf("failed to read actions config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return &cfg, nil
}

// Build wires a Router from the config. Relative commands run from baseDir.
// Funcs, when given, serve every action the config does not name.
func Build(cfg *ConfigFile, baseDir string, funcs *Funcs) (*Router, error) {
	router := NewRouter()
	proc := NewProcess(WithBaseDir(baseDir))

	var errs []error
	seen := map[string]bool{}
	for _, a := range cfg.Actions {
		if a.Name == "" {
			errs = append(errs, errors.New("action without name"))
			continue
		}
		if seen[a.Name] {
			errs = append(errs, fmt.Errorf("action %s declared twice", a.Name))
			continue
		}
		seen[a.Name] = true

		switch a.Type {
		case "", "process":
			if a.Command == "" {
				errs = append(errs, fmt.Errorf("action %s: command is required", a.Name))
				continue
			}
			proc.Register(a.Name, Command{Command: a.Command, Args: a.Args, Env: a.Env})
			router.Route(a.Name, proc)
		case "webhook":
			if a.URL == "" {
				errs = append(errs, fmt.Errorf("action %s: url is required", a.Name))
				continue
			}
			opts := []WebhookOption{WithHeaders(a.Headers)}
			if a.Timeout != "" {
				d, err := time.ParseDuration(a.Timeout)
				if err != nil {
					errs = append(errs, fmt.Errorf("action %s: invalid timeout: %w", a.Name, err))
					continue
				}
				opts = append(opts, WithTimeout(d))
			}
			router.Route(a.Name, NewWebhook(a.URL, opts...))
		default:
			errs = append(errs, fmt.Errorf("action %s: unknown type %q", a.Name, a.Type))
		}
	}
	if funcs != nil {
		router.Fallback(funcs)
	}
	return router, errors.Join(errs...)
}
