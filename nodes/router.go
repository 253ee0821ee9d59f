package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"vortex"
)

// RouterConfig configures how a router turns LLM outputs into actions.
type RouterConfig struct {
	Name        string
	Component   string // defaults to Name
	Model       string
	Prompt      string
	Actions     []string
	InputKey    string
	Default     string
	Temperature float32
	MaxTokens   int
	RetryWaits  []time.Duration
}

// NewLLMRouter builds a node that asks the LLM which branch to execute next.
// The model's answer is matched against the configured actions; no match
// (and a nil client) falls through to the default action.
func NewLLMRouter(client *openai.Client, cfg RouterConfig) *vortex.Node {
	if cfg.Name == "" {
		cfg.Name = "llm-router"
	}
	if cfg.Component == "" {
		cfg.Component = cfg.Name
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT3Dot5Turbo
	}
	if cfg.InputKey == "" {
		cfg.InputKey = "input"
	}
	if cfg.Default == "" && len(cfg.Actions) > 0 {
		cfg.Default = cfg.Actions[0]
	}

	return vortex.NewNode(vortex.NodeConfig{
		Name:       cfg.Name,
		Component:  cfg.Component,
		RetryWaits: cfg.RetryWaits,
		Prelude: func(_ context.Context, shared *vortex.SharedContext, _ map[string]any) (any, error) {
			return fmt.Sprintf("%v", shared.Component(cfg.Component)[cfg.InputKey]), nil
		},
		Dispatch: func(ctx context.Context, prepRes any, merged map[string]any) (any, error) {
			if client == nil {
				return cfg.Default, nil
			}

			model := cfg.Model
			if m, ok := merged["model"].(string); ok && m != "" {
				model = m
			}

			resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model: model,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleSystem, Content: cfg.Prompt},
					{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("%v", prepRes)},
				},
				Temperature: cfg.Temperature,
				MaxTokens:   cfg.MaxTokens,
			})
			if err != nil {
				return nil, fmt.Errorf("llm router %s: %w", cfg.Name, err)
			}
			if len(resp.Choices) == 0 {
				return nil, fmt.Errorf("llm router %s: no choices", cfg.Name)
			}

			answer := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
			for _, action := range cfg.Actions {
				if strings.Contains(answer, strings.ToLower(action)) {
					return action, nil
				}
			}
			return cfg.Default, nil
		},
		Postlude: func(_ context.Context, _ *vortex.SharedContext, _, execRes any, _ map[string]any) (string, error) {
			action, _ := execRes.(string)
			return action, nil
		},
	})
}

func init() {
	Register(Definition{
		ID:          "llm_router",
		Description: "Prompts an LLM to pick a named action from the supplied list.",
		Example:     `nodes.NewLLMRouter(client, nodes.RouterConfig{Actions: []string{"search", "summarize"}, Prompt: "Pick one action"})`,
	})
}
