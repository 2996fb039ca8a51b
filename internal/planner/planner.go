package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ssvmg10-debug/UI-automation/internal/llm"
	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

// Planner turns a natural-language task into an executable step plan.
type Planner interface {
	Plan(ctx context.Context, task, startURL string) ([]step.Step, error)
}

const planSystemPrompt = `You convert a web task into a JSON array of steps.
Allowed actions: NAVIGATE, CLICK, TYPE, SELECT, WAIT.
Each step: {"action": "...", "target": "...", "value": "...", "region": "..."}.
- NAVIGATE target is a full URL.
- CLICK target is the visible text of the element to click.
- TYPE/SELECT target describes the field, value is what to enter or choose.
- WAIT value is seconds, or target describes what to wait for.
- region is optional: header, nav, main, footer, form.
Respond with the JSON array only, no commentary.`

type llmPlanner struct {
	client llm.Client
	log    zerolog.Logger
}

func NewLLMPlanner(client llm.Client, log zerolog.Logger) Planner {
	return &llmPlanner{client: client, log: log.With().Str("component", "planner").Logger()}
}

func (p *llmPlanner) Plan(ctx context.Context, task, startURL string) ([]step.Step, error) {
	user := fmt.Sprintf("Task: %s\nStart URL: %s", task, startURL)
	resp, err := p.client.Generate(ctx, llm.Request{
		System:      planSystemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: user}},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("plan generation: %w", err)
	}
	steps, err := ParseSteps(resp.Text)
	if err != nil {
		return nil, err
	}
	p.log.Info().Int("steps", len(steps)).Str("model", p.client.Name()).Msg("plan compiled")
	return steps, nil
}

type rawStep struct {
	Action string `json:"action" yaml:"action"`
	Target string `json:"target" yaml:"target"`
	Value  string `json:"value" yaml:"value"`
	Region string `json:"region" yaml:"region"`
}

// ParseSteps reads a step array out of model output. The payload is
// untrusted: unknown actions and malformed entries become errors, never
// panics.
func ParseSteps(text string) ([]step.Step, error) {
	payload := extractJSONArray(text)
	if payload == "" {
		return nil, fmt.Errorf("no JSON array in model output")
	}
	var raw []rawStep
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("parse steps: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty plan")
	}
	steps := make([]step.Step, 0, len(raw))
	for i, r := range raw {
		kind, err := step.ParseKind(r.Action)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		steps = append(steps, step.Step{
			Action: kind,
			Target: strings.TrimSpace(r.Target),
			Value:  strings.TrimSpace(r.Value),
			Region: strings.TrimSpace(r.Region),
		})
	}
	return steps, nil
}

// extractJSONArray finds the first balanced top-level JSON array in free
// text, tolerating surrounding prose and code fences.
func extractJSONArray(s string) string {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// LoadPlan reads a static plan from a YAML or JSON file, for deterministic
// runs without a model in the loop.
func LoadPlan(path string) ([]step.Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	var raw []rawStep
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	steps := make([]step.Step, 0, len(raw))
	for i, r := range raw {
		kind, err := step.ParseKind(r.Action)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		st := step.Step{Action: kind, Target: r.Target, Value: r.Value, Region: r.Region}
		if err := st.Validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		steps = append(steps, st)
	}
	return steps, nil
}
