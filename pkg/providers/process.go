package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"unicode"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
)

// EnvPrefix prefixes the environment variables carrying session variables.
const EnvPrefix = "SWITCHBOARD_VAR_"

// Command is an allow-listed local command.
type Command struct {
	Command string
	Args    []string
	Env     map[string]string
}

// Process runs allow-listed local commands as actions.
// Session variables are passed as environment variables, never as
// arguments, so they cannot inject flags.
type Process struct {
	mu       sync.RWMutex
	commands map[string]Command
	baseDir  string
}

// ProcessOption configures the Process provider.
type ProcessOption func(*Process)

// WithBaseDir sets the working directory for executed commands.
func WithBaseDir(dir string) ProcessOption {
	return func(p *Process) {
		p.baseDir = dir
	}
}

// NewProcess creates a Process provider with an empty allow-list.
func NewProcess(opts ...ProcessOption) *Process {
	p := &Process{
		commands: make(map[string]Command),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register adds a trusted command to the allow-list.
func (p *Process) Register(action string, cmd Command) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands[action] = cmd
}

// Invoke runs the command registered for action.
//
// Stdout is either a JSON object {"outcome": ..., "variables": {...}} or
// plain text used as the outcome. A non-zero exit is a failure.
func (p *Process) Invoke(ctx context.Context, action string, vars map[string]string) (domain.ActionResult, error) {
	p.mu.RLock()
	proc, ok := p.commands[action]
	p.mu.RUnlock()
	if !ok {
		return domain.ActionResult{}, fmt.Errorf("%w: process %s not registered", ports.ErrUnknownAction, action)
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = p.baseDir

	env := cmd.Environ()
	for k, v := range proc.Env {
		env = append(env, k+"="+v)
	}
	for k, v := range vars {
		env = append(env, EnvPrefix+envKey(k)+"="+v)
	}
	env = append(env, "SWITCHBOARD_ACTION="+action)
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return domain.ActionResult{}, fmt.Errorf("process %s failed: %w: %s", action, err, strings.TrimSpace(stderr.String()))
	}

	out := strings.TrimSpace(stdout.String())
	if strings.HasPrefix(out, "{") && strings.HasSuffix(out, "}") {
		var raw map[string]any
		if err := json.Unmarshal([]byte(out), &raw); err == nil {
			return DecodeResult(raw)
		}
	}
	return domain.ActionResult{Outcome: out}, nil
}

// envKey upper-cases a variable name and replaces anything outside
// [A-Z0-9_] with an underscore.
func envKey(name string) string {
	return strings.Map(func(r rune) rune {
		r = unicode.ToUpper(r)
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, name)
}
