package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssvmg10-debug/UI-automation/internal/exec"
	"github.com/ssvmg10-debug/UI-automation/internal/llm"
)

const recoverySystemPrompt = `A browser automation step failed to find its element.
Given the intended target and the clickable texts actually on the page, suggest
a better target phrasing, or a short wait if the page likely needs to load.
Respond with JSON only: {"target": "...", "wait_seconds": 0}.
Use an empty target if none of the visible elements fits the intent.`

// LLMRecovery asks the model for an alternative target phrasing when a
// step exhausts its candidates. One suggestion per failure; the executor
// bounds the retry.
type LLMRecovery struct {
	client llm.Client
	log    zerolog.Logger
}

func NewLLMRecovery(client llm.Client, log zerolog.Logger) *LLMRecovery {
	return &LLMRecovery{client: client, log: log.With().Str("component", "recovery").Logger()}
}

func (r *LLMRecovery) Suggest(ctx context.Context, fc exec.FailureContext) (exec.Suggestion, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Intended target: %q (action %s)\n", fc.Step.Target, fc.Step.Action)
	fmt.Fprintf(&sb, "Failure: %s (best score %.2f)\n", fc.Reason, fc.BestScore)
	fmt.Fprintf(&sb, "Page: %s (%s)\n", fc.PageURL, fc.PageType)
	sb.WriteString("Visible candidates:\n")
	for _, c := range fc.Candidates {
		fmt.Fprintf(&sb, "- %s\n", c)
	}

	resp, err := r.client.Generate(ctx, llm.Request{
		System:      recoverySystemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: sb.String()}},
		Temperature: 0,
	})
	if err != nil {
		return exec.Suggestion{}, fmt.Errorf("recovery generation: %w", err)
	}

	payload := extractJSONObject(resp.Text)
	if payload == "" {
		return exec.Suggestion{}, fmt.Errorf("no JSON object in recovery output")
	}
	var parsed struct {
		Target      string  `json:"target"`
		WaitSeconds float64 `json:"wait_seconds"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return exec.Suggestion{}, fmt.Errorf("parse recovery suggestion: %w", err)
	}
	sug := exec.Suggestion{
		AlternativeTarget: strings.TrimSpace(parsed.Target),
		Wait:              time.Duration(parsed.WaitSeconds * float64(time.Second)),
	}
	if sug.Wait > 10*time.Second {
		sug.Wait = 10 * time.Second
	}
	r.log.Info().Str("alternative", sug.AlternativeTarget).Dur("wait", sug.Wait).Msg("recovery suggestion")
	return sug, nil
}

func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
