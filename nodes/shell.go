package nodes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"vortex"
)

// ShellConfig controls how an external command is executed. The node's
// component data is marshaled to JSON and piped to the command's stdin.
type ShellConfig struct {
	Name       string
	Component  string // defaults to Name
	Command    string
	Args       []string
	Dir        string
	Env        map[string]string
	Timeout    time.Duration
	OutputKey  string
	ParseJSON  bool
	RetryWaits []time.Duration
}

// NewShellNode builds a node that runs an external command and merges its
// stdout back into the component.
func NewShellNode(cfg ShellConfig) (*vortex.Node, error) {
	if cfg.Name == "" {
		return nil, errors.New("shell node requires a name")
	}
	if cfg.Command == "" {
		return nil, errors.New("shell node requires a command")
	}
	if cfg.Component == "" {
		cfg.Component = cfg.Name
	}
	if cfg.OutputKey == "" {
		cfg.OutputKey = fmt.Sprintf("%s_output", cfg.Name)
	}

	node := vortex.NewNode(vortex.NodeConfig{
		Name:       cfg.Name,
		Component:  cfg.Component,
		RetryWaits: cfg.RetryWaits,
		Prelude: func(_ context.Context, shared *vortex.SharedContext, _ map[string]any) (any, error) {
			payload, err := json.Marshal(shared.Component(cfg.Component))
			if err != nil {
				return nil, fmt.Errorf("shell node %s: marshal stdin payload: %w", cfg.Name, err)
			}
			return payload, nil
		},
		Dispatch: func(ctx context.Context, prepRes any, _ map[string]any) (any, error) {
			if cfg.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
				defer cancel()
			}

			payload, _ := prepRes.([]byte)
			cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
			if cfg.Dir != "" {
				cmd.Dir = cfg.Dir
			}
			if len(cfg.Env) > 0 {
				env := os.Environ()
				for key, value := range cfg.Env {
					env = append(env, fmt.Sprintf("%s=%s", key, value))
				}
				cmd.Env = env
			}
			cmd.Stdin = bytes.NewReader(payload)

			out, err := cmd.Output()
			if err != nil {
				return nil, fmt.Errorf("shell node %s: %w", cfg.Name, err)
			}
			return out, nil
		},
		Postlude: func(_ context.Context, shared *vortex.SharedContext, _, execRes any, _ map[string]any) (string, error) {
			out, _ := execRes.([]byte)
			data := shared.Component(cfg.Component)

			stored := any(strings.TrimSpace(string(out)))
			if cfg.ParseJSON {
				var parsed any
				if err := json.Unmarshal(out, &parsed); err == nil {
					stored = parsed
				}
			}
			data[cfg.OutputKey] = stored
			return "", nil
		},
	})
	return node, nil
}

func init() {
	Register(Definition{
		ID:          "shell",
		Description: "Runs an external command with the component as JSON stdin, capturing stdout.",
		Example:     `nodes.NewShellNode(nodes.ShellConfig{Name: "grep", Command: "grep", Args: []string{"-c", "hit"}})`,
	})
}
