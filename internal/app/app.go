// Package app wires the pipeline together: browser session, resolution
// components, flow optimization and the run loop.
package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ssvmg10-debug/UI-automation/internal/browser"
	"github.com/ssvmg10-debug/UI-automation/internal/config"
	"github.com/ssvmg10-debug/UI-automation/internal/dom"
	"github.com/ssvmg10-debug/UI-automation/internal/exec"
	"github.com/ssvmg10-debug/UI-automation/internal/flow"
	"github.com/ssvmg10-debug/UI-automation/internal/llm"
	"github.com/ssvmg10-debug/UI-automation/internal/planner"
	"github.com/ssvmg10-debug/UI-automation/internal/rank"
	"github.com/ssvmg10-debug/UI-automation/internal/runner"
	"github.com/ssvmg10-debug/UI-automation/internal/state"
	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

// App owns the session and every component of the pipeline for one
// process.
type App struct {
	launcher *browser.Launcher
	ctrl     browser.Controller
	store    *flow.Store
	runner   *runner.Runner
	plan     planner.Planner
	graph    *state.Graph
	log      zerolog.Logger
}

func New(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	launcher, err := browser.NewLauncher(ctx, cfg.Browser.Headless)
	if err != nil {
		return nil, err
	}
	ctrl, err := launcher.NewController(ctx, cfg.Browser.StoragePath)
	if err != nil {
		_ = launcher.Close()
		return nil, err
	}

	extractor := dom.NewExtractor(ctrl, dom.ExtractorConfig{
		MaxClickables:     cfg.Extract.MaxClickables,
		MaxInputs:         cfg.Extract.MaxInputs,
		PerElementTimeout: cfg.Extract.PerElementTimeout,
		MultiRegion: func(url string) bool {
			return state.Classify(url, "").ListingLike()
		},
	}, log)
	filter := dom.NewFilter(dom.FilterConfig{MinArea: cfg.Filter.MinArea}, log)
	simCache := rank.NewSimCache(0)
	ranker := rank.NewRanker(cfg.Rank.Weights, cfg.Rank.Thresholds, simCache, log)
	graph := state.NewGraph()
	snapCache := dom.NewSnapshotCache(0)
	dismisser := exec.NewDismisser(ctrl, log)

	executor := exec.New(ctrl, extractor, filter, ranker, state.NewValidator(), graph, dismisser, snapCache, exec.Config{
		MaxAttempts:   cfg.Exec.MaxAttempts,
		ActionTimeout: cfg.Exec.ActionTimeout,
		WaitTimeout:   cfg.Exec.WaitTimeout,
		WaitPoll:      exec.DefaultConfig().WaitPoll,
		SettleTimeout: exec.DefaultConfig().SettleTimeout,
	}, log)

	a := &App{launcher: launcher, ctrl: ctrl, graph: graph, log: log}

	var optimizer *flow.Optimizer
	var recorder *flow.Recorder
	if cfg.Flow.Enabled {
		store, err := flow.OpenStore(cfg.Flow.StorePath)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.store = store
		shortcuts := flow.DefaultShortcuts()
		if cfg.Flow.ShortcutsPath != "" {
			shortcuts, err = flow.LoadShortcuts(cfg.Flow.ShortcutsPath)
			if err != nil {
				_ = a.Close()
				return nil, err
			}
		}
		optimizer = flow.NewOptimizer(flow.NewMatcher(store, log), shortcuts, log)
		recorder = flow.NewRecorder(store, cfg.Flow.MinFragmentLen, cfg.Flow.IncludeFormSteps, log)
	}

	// LLM pieces are optional: no key means static plans only, and no
	// recovery hook.
	if client, err := llm.NewClientFromEnv(log); err == nil {
		a.plan = planner.NewLLMPlanner(client, log)
		executor.SetRecovery(planner.NewLLMRecovery(client, log))
	} else {
		log.Debug().Err(err).Msg("no llm client, running without planner and recovery")
	}

	a.runner = runner.New(ctrl, executor, optimizer, recorder, graph, snapCache, simCache, cfg.Exec.StopOnFailure, log)
	return a, nil
}

// ResolveSteps loads a plan file, or compiles one from a task description
// when no file is given.
func (a *App) ResolveSteps(ctx context.Context, planPath, task, startURL string) ([]step.Step, error) {
	if strings.TrimSpace(planPath) != "" {
		return planner.LoadPlan(planPath)
	}
	if strings.TrimSpace(task) == "" {
		return nil, fmt.Errorf("need --plan or --task")
	}
	if a.plan == nil {
		return nil, fmt.Errorf("--task needs an LLM key (ANTHROPIC_API_KEY or OPENAI_API_KEY)")
	}
	if strings.TrimSpace(startURL) == "" {
		return nil, fmt.Errorf("--task needs --url")
	}
	return a.plan.Plan(ctx, task, startURL)
}

func (a *App) Run(ctx context.Context, task string, steps []step.Step) (*runner.Report, error) {
	return a.runner.Run(ctx, task, steps)
}

// Graph exposes the run's transition trace.
func (a *App) Graph() *state.Graph { return a.graph }

func (a *App) Close() error {
	ctx := context.Background()
	if a.ctrl != nil {
		_ = a.ctrl.Close(ctx)
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.launcher != nil {
		return a.launcher.Close()
	}
	return nil
}

// PrintReport renders a run report for the terminal.
func PrintReport(w io.Writer, r *runner.Report) {
	fmt.Fprintf(w, "run %s: success=%v steps=%d\n", r.ID, r.Success, len(r.Results))
	for _, res := range r.Results {
		status := "ok"
		switch {
		case res.Skipped:
			status = "skipped (" + res.Matched + ")"
		case !res.Success:
			status = "FAILED " + string(res.Reason)
		}
		fmt.Fprintf(w, "  %2d %-8s %-40q %s\n", res.Index, res.Action, res.Target, status)
		if res.Success && !res.Skipped && res.Matched != "" {
			fmt.Fprintf(w, "      matched %q score %.2f attempts %d\n", res.Matched, res.Score, res.Attempts)
		}
		if res.Err != "" {
			fmt.Fprintf(w, "      error: %s\n", res.Err)
		}
	}
	if r.FragmentSkips > 0 || r.ShortcutSkips > 0 {
		fmt.Fprintf(w, "  optimizer: %d fragment skips, %d shortcut skips\n", r.FragmentSkips, r.ShortcutSkips)
	}
	if r.FragmentsSaved > 0 {
		fmt.Fprintf(w, "  recorded %d fragments\n", r.FragmentsSaved)
	}
}
