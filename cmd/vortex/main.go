// Command vortex runs a multi-step LLM interaction pipeline: a planner model
// generates a prompt for a candidate model, the candidate answers, and an
// assessor model judges the answer against the original problem, looping for
// a bounded number of rounds until the assessor is satisfied.
//
// Set OPENAI_API_KEY (directly or via a .env file) to call real models;
// without it the pipeline runs against deterministic mock clients.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"

	"vortex"
	"vortex/logging"
	"vortex/utils"
)

const (
	iteratorComponent = "llm_iterator"
	maxRounds         = 5
)

// textClient is the minimal surface the pipeline needs from a model.
type textClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// openaiText adapts go-openai chat completions to textClient.
type openaiText struct {
	client *openai.Client
	model  string
}

func (c *openaiText) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choice list")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// mockText simulates model responses so the showcase runs offline.
type mockText struct{ role string }

func (c *mockText) Generate(_ context.Context, prompt string) (string, error) {
	lower := strings.ToLower(prompt)
	switch c.role {
	case "planner":
		return "Generate a short poem about a happy cat.", nil
	case "candidate":
		if strings.Contains(lower, "poem") && strings.Contains(lower, "cat") {
			return "Upon a mat, a cat once sat, purring soft, a furry plat.", nil
		}
		return "Default candidate response.", nil
	default: // assessor
		if strings.Contains(prompt, "purring soft") {
			return "YES", nil
		}
		return "NO", nil
	}
}

// stepResult threads an action decision alongside a payload between a node's
// own phases, mirroring how hooks that need explicit branching report both.
type stepResult struct {
	action string
	text   string
}

func main() {
	_ = godotenv.Load()
	logging.Init(logging.FromEnv())
	log := logging.Component("showcase")

	var planner, candidate, assessor textClient
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		client := openai.NewClient(key)
		planner = &openaiText{client: client, model: openai.GPT4oMini}
		candidate = &openaiText{client: client, model: openai.GPT3Dot5Turbo}
		assessor = &openaiText{client: client, model: openai.GPT4oMini}
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, using mock clients")
		planner = &mockText{role: "planner"}
		candidate = &mockText{role: "candidate"}
		assessor = &mockText{role: "assessor"}
	}

	flow := buildShowcaseFlow()
	flow.AddMonitor(logMonitor{})

	shared := vortex.NewSharedContext(map[string]any{
		"max_rounds": maxRounds,
	})
	comp := shared.Component(iteratorComponent)
	comp["problem_definition"] = "Write a short and sweet poem about a happy cat."
	shared.SetComponentConfig(iteratorComponent, map[string]any{
		"planner_client":   planner,
		"candidate_client": candidate,
		"assessor_client":  assessor,
		"prompt_template": "You are an assistant that generates concise prompts for another " +
			"AI. Based on the problem definition: %q, generate a short, clear prompt to fulfill it.",
		"assessment_template": "Problem definition: %q. Does the following text satisfy it? " +
			"TEXT: %q. Respond with only YES or NO.",
	})

	err := utils.WithTimeout(context.Background(), 2*time.Minute, func(ctx context.Context) error {
		final, err := flow.Run(ctx, shared)
		if err != nil {
			return err
		}
		log.Info().Str("final_action", final).Msg("pipeline finished")
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("pipeline failed")
		os.Exit(1)
	}

	log.Info().
		Any("rounds", comp["round_count"]).
		Any("response", comp["current_response"]).
		Msg("final state")
}

// logMonitor streams flow events through the structured logger.
type logMonitor struct{}

func (logMonitor) Notify(_ context.Context, event vortex.Event) {
	logging.Component("flow-events").Debug().
		Str("type", string(event.Type)).
		Str("run_id", event.RunID).
		Str("stage", event.Stage).
		Str("action", event.Action).
		Err(event.Err).
		Msg("flow event")
}

// buildShowcaseFlow wires the four pipeline nodes:
//
//	generate -"prompt_generated"-> evaluate -> assess
//	assess -"iterate"-> generate, everything else -> finish
func buildShowcaseFlow() *vortex.Flow {
	generate := newPromptGenerationNode()
	evaluate := newEvaluationNode()
	assess := newAssessmentNode()
	finish := newFinishNode()

	generate.Next(evaluate, "prompt_generated")
	generate.Next(finish, "max_rounds")
	generate.Next(finish, "missing_problem")
	evaluate.Next(assess)
	assess.Next(finish, "satisfied")
	assess.Next(finish, "max_rounds")
	assess.Next(finish, "failed")
	assess.Next(generate, "iterate")

	return vortex.NewFlow("llm-showcase", generate)
}

// newPromptGenerationNode bumps the round counter and asks the planner model
// to produce a prompt for the candidate.
func newPromptGenerationNode() *vortex.Node {
	return vortex.NewNode(vortex.NodeConfig{
		Name:       "prompt-generation",
		Component:  iteratorComponent,
		RetryWaits: []time.Duration{time.Second, 3 * time.Second},
		Prelude: func(_ context.Context, shared *vortex.SharedContext, cfg map[string]any) (any, error) {
			data := shared.Component(iteratorComponent)

			problem, _ := data["problem_definition"].(string)
			if problem == "" {
				return stepResult{action: "missing_problem"}, nil
			}

			round, _ := data["round_count"].(int)
			round++
			data["round_count"] = round
			if round > configInt(cfg, "max_rounds", maxRounds) {
				return stepResult{action: "max_rounds"}, nil
			}

			template, _ := cfg["prompt_template"].(string)
			return stepResult{action: "proceed", text: fmt.Sprintf(template, problem)}, nil
		},
		Dispatch: func(ctx context.Context, prepRes any, cfg map[string]any) (any, error) {
			prep := prepRes.(stepResult)
			if prep.action != "proceed" {
				return prep, nil
			}
			planner := cfg["planner_client"].(textClient)
			prompt, err := planner.Generate(ctx, prep.text)
			if err != nil {
				return nil, err
			}
			return stepResult{action: "prompt_generated", text: prompt}, nil
		},
		Postlude: func(_ context.Context, shared *vortex.SharedContext, _, execRes any, _ map[string]any) (string, error) {
			res := execRes.(stepResult)
			if res.action == "prompt_generated" {
				shared.Component(iteratorComponent)["current_prompt"] = res.text
			}
			return res.action, nil
		},
	})
}

// newEvaluationNode sends the generated prompt to the candidate model.
func newEvaluationNode() *vortex.Node {
	return vortex.NewNode(vortex.NodeConfig{
		Name:       "evaluation",
		Component:  iteratorComponent,
		RetryWaits: []time.Duration{time.Second, 3 * time.Second},
		Prelude: func(_ context.Context, shared *vortex.SharedContext, _ map[string]any) (any, error) {
			prompt, _ := shared.Component(iteratorComponent)["current_prompt"].(string)
			if prompt == "" {
				return nil, fmt.Errorf("no prompt to evaluate")
			}
			return prompt, nil
		},
		Dispatch: func(ctx context.Context, prepRes any, cfg map[string]any) (any, error) {
			candidate := cfg["candidate_client"].(textClient)
			return candidate.Generate(ctx, prepRes.(string))
		},
		Postlude: func(_ context.Context, shared *vortex.SharedContext, _, execRes any, _ map[string]any) (string, error) {
			shared.Component(iteratorComponent)["current_response"] = execRes
			return "", nil
		},
	})
}

// newAssessmentNode asks the assessor model whether the candidate response
// satisfies the problem, then decides between iterating and finishing.
func newAssessmentNode() *vortex.Node {
	return vortex.NewNode(vortex.NodeConfig{
		Name:       "assessment",
		Component:  iteratorComponent,
		RetryWaits: []time.Duration{time.Second, 3 * time.Second},
		Prelude: func(_ context.Context, shared *vortex.SharedContext, cfg map[string]any) (any, error) {
			data := shared.Component(iteratorComponent)
			response, _ := data["current_response"].(string)
			problem, _ := data["problem_definition"].(string)
			if response == "" || problem == "" {
				return stepResult{action: "failed"}, nil
			}
			template, _ := cfg["assessment_template"].(string)
			return stepResult{action: "proceed", text: fmt.Sprintf(template, problem, response)}, nil
		},
		Dispatch: func(ctx context.Context, prepRes any, cfg map[string]any) (any, error) {
			prep := prepRes.(stepResult)
			if prep.action != "proceed" {
				return prep, nil
			}
			assessor := cfg["assessor_client"].(textClient)
			verdict, err := assessor.Generate(ctx, prep.text)
			if err != nil {
				return nil, err
			}
			return stepResult{action: "assessed", text: strings.ToUpper(strings.TrimSpace(verdict))}, nil
		},
		Postlude: func(_ context.Context, shared *vortex.SharedContext, _, execRes any, cfg map[string]any) (string, error) {
			res := execRes.(stepResult)
			if res.action != "assessed" {
				return "failed", nil
			}
			if res.text == "YES" {
				return "satisfied", nil
			}
			round, _ := shared.Component(iteratorComponent)["round_count"].(int)
			if round >= configInt(cfg, "max_rounds", maxRounds) {
				return "max_rounds", nil
			}
			return "iterate", nil
		},
	})
}

// newFinishNode logs the final state collected across rounds.
func newFinishNode() *vortex.Node {
	return vortex.NewNode(vortex.NodeConfig{
		Name:      "finish",
		Component: iteratorComponent,
		Postlude: func(_ context.Context, shared *vortex.SharedContext, _, _ any, _ map[string]any) (string, error) {
			data := shared.Component(iteratorComponent)
			logging.Component("showcase").Info().
				Any("rounds", data["round_count"]).
				Any("problem", data["problem_definition"]).
				Any("response", data["current_response"]).
				Msg("flow reached its end")
			return "done", nil
		},
	})
}

func configInt(cfg map[string]any, key string, fallback int) int {
	if v, ok := cfg[key].(int); ok {
		return v
	}
	return fallback
}
