package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ssvmg10-debug/UI-automation/internal/browser"
	"github.com/ssvmg10-debug/UI-automation/internal/dom"
	"github.com/ssvmg10-debug/UI-automation/internal/exec"
	"github.com/ssvmg10-debug/UI-automation/internal/flow"
	"github.com/ssvmg10-debug/UI-automation/internal/rank"
	"github.com/ssvmg10-debug/UI-automation/internal/state"
	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

// Report is the outcome of one run.
type Report struct {
	ID             string            `json:"id"`
	Task           string            `json:"task,omitempty"`
	StartURL       string            `json:"start_url"`
	Results        []exec.StepResult `json:"results"`
	Success        bool              `json:"success"`
	FragmentSkips  int               `json:"fragment_skips"`
	ShortcutSkips  int               `json:"shortcut_skips"`
	FragmentsSaved int               `json:"fragments_saved"`
	Started        time.Time         `json:"started"`
	Finished       time.Time         `json:"finished"`
}

// Runner drives a plan through the optimizer and executor, one step at a
// time. The browser session is strictly sequential; concurrency lives in
// the shared fragment store, not here.
type Runner struct {
	ctrl          browser.Controller
	executor      *exec.Executor
	optimizer     *flow.Optimizer
	recorder      *flow.Recorder
	graph         *state.Graph
	snapCache     *dom.SnapshotCache
	simCache      *rank.SimCache
	stopOnFailure bool
	log           zerolog.Logger
}

func New(
	ctrl browser.Controller,
	executor *exec.Executor,
	optimizer *flow.Optimizer,
	recorder *flow.Recorder,
	graph *state.Graph,
	snapCache *dom.SnapshotCache,
	simCache *rank.SimCache,
	stopOnFailure bool,
	log zerolog.Logger,
) *Runner {
	return &Runner{
		ctrl:          ctrl,
		executor:      executor,
		optimizer:     optimizer,
		recorder:      recorder,
		graph:         graph,
		snapCache:     snapCache,
		simCache:      simCache,
		stopOnFailure: stopOnFailure,
		log:           log.With().Str("component", "runner").Logger(),
	}
}

// Run executes the plan. Steps are deduplicated first; each remaining step
// goes through the optimizer (fragment replay, shortcuts) before falling
// back to full resolution.
func (r *Runner) Run(ctx context.Context, task string, steps []step.Step) (*Report, error) {
	report := &Report{
		ID:      uuid.NewString(),
		Task:    task,
		Started: time.Now(),
	}
	defer func() { report.Finished = time.Now() }()

	steps = flow.Dedup(steps)
	if len(steps) == 0 {
		report.Success = true
		return report, nil
	}
	report.StartURL = r.startURL(ctx, steps)
	r.log.Info().Str("run", report.ID).Int("steps", len(steps)).Str("start_url", report.StartURL).Msg("run started")

	// endURLs[i] is the page after step i, tracked only while the success
	// prefix is unbroken; it feeds fragment recording.
	var endURLs []string
	prefixIntact := true

	for idx := 0; idx < len(steps); idx++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if dec := r.consider(ctx, steps[idx:]); dec != nil {
			if r.applyDecision(ctx, dec, steps, idx, report) {
				if dec.Kind == flow.DecisionFragment {
					// Credit the replayed fragment. The intermediate page
					// URLs were never observed, so the success prefix stops
					// here rather than recording guessed end states.
					if r.recorder != nil {
						r.recorder.Reinforce(ctx, dec.FragmentID)
					}
					prefixIntact = false
				} else if prefixIntact {
					endURLs = append(endURLs, dec.TargetURL)
				}
				idx += dec.Skip - 1
				continue
			}
			// Shortcut navigation failed; resolve the step normally.
		}

		res := r.executor.Execute(ctx, idx, steps[idx])
		report.Results = append(report.Results, res)
		if res.Success {
			if steps[idx].Action == step.Navigate || res.Change == state.ChangeURL {
				r.invalidateCaches()
			}
			if prefixIntact {
				endURLs = append(endURLs, res.After.URL)
			}
			continue
		}
		prefixIntact = false
		if r.stopOnFailure {
			r.log.Warn().Int("step", idx).Str("reason", string(res.Reason)).Msg("stopping run on failure")
			break
		}
	}

	report.Success = len(report.Results) > 0
	for _, res := range report.Results {
		if !res.Success {
			report.Success = false
			break
		}
	}
	report.Success = report.Success && len(report.Results) >= len(steps)

	r.record(ctx, report, steps, endURLs)
	r.log.Info().
		Str("run", report.ID).
		Bool("success", report.Success).
		Int("fragment_skips", report.FragmentSkips).
		Int("shortcut_skips", report.ShortcutSkips).
		Int("fragments_saved", report.FragmentsSaved).
		Msg("run finished")
	return report, nil
}

func (r *Runner) consider(ctx context.Context, upcoming []step.Step) *flow.Decision {
	if r.optimizer == nil {
		return nil
	}
	currentURL, err := r.ctrl.URL(ctx)
	if err != nil {
		return nil
	}
	pageType := state.Unknown
	if title, err := r.ctrl.Title(ctx); err == nil {
		pageType = state.Classify(currentURL, title)
	}
	dec, err := r.optimizer.Consider(ctx, currentURL, pageType, upcoming)
	if err != nil {
		r.log.Warn().Err(err).Msg("optimizer check failed")
		return nil
	}
	return dec
}

// applyDecision navigates to the decision's target URL and, on success,
// marks the covered steps as skipped. Returns false when the navigation
// itself fails, so the caller falls back to normal execution.
func (r *Runner) applyDecision(ctx context.Context, dec *flow.Decision, steps []step.Step, idx int, report *Report) bool {
	if err := r.ctrl.Navigate(ctx, dec.TargetURL); err != nil {
		r.log.Warn().Err(err).Str("url", dec.TargetURL).Msg("optimizer navigation failed")
		return false
	}
	r.invalidateCaches()
	switch dec.Kind {
	case flow.DecisionFragment:
		report.FragmentSkips += dec.Skip
	default:
		report.ShortcutSkips += dec.Skip
	}
	for i := 0; i < dec.Skip; i++ {
		st := steps[idx+i]
		report.Results = append(report.Results, exec.StepResult{
			Index:   idx + i,
			Action:  st.Action,
			Target:  st.Target,
			Value:   st.Value,
			Success: true,
			Skipped: true,
			Matched: string(dec.Kind),
		})
	}
	r.log.Info().
		Str("kind", string(dec.Kind)).
		Int("skip", dec.Skip).
		Str("url", dec.TargetURL).
		Msg("steps fulfilled by optimizer")
	return true
}

func (r *Runner) record(ctx context.Context, report *Report, steps []step.Step, endURLs []string) {
	if r.recorder == nil || len(endURLs) == 0 || report.StartURL == "" {
		return
	}
	n := len(endURLs)
	if n > len(steps) {
		n = len(steps)
	}
	saved, err := r.recorder.Record(ctx, report.StartURL, steps[:n], endURLs[:n])
	if err != nil {
		r.log.Warn().Err(err).Msg("fragment recording failed")
		return
	}
	report.FragmentsSaved = saved
}

func (r *Runner) startURL(ctx context.Context, steps []step.Step) string {
	if steps[0].Action == step.Navigate {
		return steps[0].Target
	}
	if url, err := r.ctrl.URL(ctx); err == nil {
		return url
	}
	return ""
}

func (r *Runner) invalidateCaches() {
	if r.snapCache != nil {
		r.snapCache.Invalidate()
	}
	if r.simCache != nil {
		r.simCache.Invalidate()
	}
}
