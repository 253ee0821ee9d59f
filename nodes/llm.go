package nodes

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"vortex"
)

// LLMConfig controls how the LLM is called.
type LLMConfig struct {
	Name         string
	Component    string // defaults to Name
	Model        string
	SystemPrompt string
	InputKey     string
	OutputKey    string
	Temperature  float32
	MaxTokens    int
	RetryWaits   []time.Duration
}

// DefaultLLMConfig returns a starter config for a prompt-based node.
func DefaultLLMConfig(name string) LLMConfig {
	return LLMConfig{
		Name:         name,
		Model:        openai.GPT3Dot5Turbo,
		SystemPrompt: "You are a helpful assistant.",
		InputKey:     "input",
		OutputKey:    "llm_output",
		Temperature:  0.5,
		MaxTokens:    256,
	}
}

// NewLLMNode builds a node that reads a prompt from its component, sends it
// through a chat completion, and writes the reply back. A nil client
// produces a deterministic mock response, which keeps pipelines runnable
// without credentials.
//
// The merged configuration can override "model" and "system_prompt" per
// component, so one node definition serves differently tuned pipelines.
func NewLLMNode(client *openai.Client, cfg LLMConfig) *vortex.Node {
	if cfg.Name == "" {
		cfg.Name = "llm"
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
	if cfg.OutputKey == "" {
		cfg.OutputKey = "llm_output"
	}

	return vortex.NewNode(vortex.NodeConfig{
		Name:       cfg.Name,
		Component:  cfg.Component,
		RetryWaits: cfg.RetryWaits,
		Prelude: func(_ context.Context, shared *vortex.SharedContext, _ map[string]any) (any, error) {
			raw, ok := shared.Component(cfg.Component)[cfg.InputKey]
			if !ok {
				return "", fmt.Errorf("llm node %s: input key %q missing", cfg.Name, cfg.InputKey)
			}
			return fmt.Sprintf("%v", raw), nil
		},
		Dispatch: func(ctx context.Context, prepRes any, merged map[string]any) (any, error) {
			prompt, _ := prepRes.(string)
			if client == nil {
				return "mock response for " + prompt, nil
			}

			model := cfg.Model
			if m, ok := merged["model"].(string); ok && m != "" {
				model = m
			}
			system := cfg.SystemPrompt
			if s, ok := merged["system_prompt"].(string); ok && s != "" {
				system = s
			}

			resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model: model,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleSystem, Content: system},
					{Role: openai.ChatMessageRoleUser, Content: prompt},
				},
				Temperature: cfg.Temperature,
				MaxTokens:   cfg.MaxTokens,
			})
			if err != nil {
				return nil, fmt.Errorf("llm node %s: %w", cfg.Name, err)
			}
			if len(resp.Choices) == 0 {
				return nil, fmt.Errorf("llm node %s: empty choice list", cfg.Name)
			}
			return strings.TrimSpace(resp.Choices[0].Message.Content), nil
		},
		Postlude: func(_ context.Context, shared *vortex.SharedContext, _, execRes any, _ map[string]any) (string, error) {
			content, _ := execRes.(string)
			shared.Component(cfg.Component)[cfg.OutputKey] = content
			return "", nil
		},
	})
}

func init() {
	Register(Definition{
		ID:          "llm",
		Description: "Sends a component prompt through go-openai; nil client produces a mock response.",
		Example:     `nodes.NewLLMNode(client, nodes.DefaultLLMConfig("translate"))`,
	})
}
