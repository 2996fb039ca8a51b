package exec

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssvmg10-debug/UI-automation/internal/browser"
	"github.com/ssvmg10-debug/UI-automation/internal/dom"
	"github.com/ssvmg10-debug/UI-automation/internal/rank"
	"github.com/ssvmg10-debug/UI-automation/internal/state"
	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

// Phase is where a step currently sits in the resolution pipeline.
type Phase string

const (
	PhasePending    Phase = "PENDING"
	PhaseExtracted  Phase = "CANDIDATES_EXTRACTED"
	PhaseFiltered   Phase = "FILTERED"
	PhaseRanked     Phase = "RANKED"
	PhaseAttempting Phase = "ATTEMPTING"
	PhaseSucceeded  Phase = "SUCCEEDED"
	PhaseExhausted  Phase = "EXHAUSTED"
)

// StepResult is the full outcome record for one executed step.
type StepResult struct {
	Index    int                `json:"index"`
	Action   step.Kind          `json:"action"`
	Target   string             `json:"target"`
	Value    string             `json:"value,omitempty"`
	Success  bool               `json:"success"`
	Skipped  bool               `json:"skipped,omitempty"`
	Matched  string             `json:"matched,omitempty"`
	Score    float64            `json:"score,omitempty"`
	Attempts int                `json:"attempts"`
	Reason   step.FailureReason `json:"reason,omitempty"`
	Err      string             `json:"error,omitempty"`
	Change   state.Change       `json:"change,omitempty"`
	Before   state.Fingerprint  `json:"before"`
	After    state.Fingerprint  `json:"after"`
	Duration time.Duration      `json:"duration"`
}

// FailureContext is handed to the recovery hook when a step exhausts its
// candidates.
type FailureContext struct {
	Step       step.Step
	Reason     step.FailureReason
	BestScore  float64
	Candidates []string
	PageURL    string
	PageType   state.PageType
}

// Suggestion is what recovery proposes: an alternative target phrasing, a
// hold before retrying, or both.
type Suggestion struct {
	AlternativeTarget string
	Wait              time.Duration
}

// Recovery supplies one bounded retry hint after exhaustion.
type Recovery interface {
	Suggest(ctx context.Context, fc FailureContext) (Suggestion, error)
}

// Config bounds the executor.
type Config struct {
	MaxAttempts   int
	ActionTimeout time.Duration
	WaitTimeout   time.Duration
	WaitPoll      time.Duration
	SettleTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:   3,
		ActionTimeout: 10 * time.Second,
		WaitTimeout:   15 * time.Second,
		WaitPoll:      500 * time.Millisecond,
		SettleTimeout: 2 * time.Second,
	}
}

// Executor resolves a step's target on the live page and performs it,
// validating the resulting state transition. One step at a time; the
// browser session is single-threaded by construction.
type Executor struct {
	ctrl      browser.Controller
	extractor *dom.Extractor
	filter    *dom.Filter
	ranker    *rank.Ranker
	validator *state.Validator
	graph     *state.Graph
	dismisser *Dismisser
	cache     *dom.SnapshotCache
	recovery  Recovery
	cfg       Config
	log       zerolog.Logger
}

func New(
	ctrl browser.Controller,
	extractor *dom.Extractor,
	filter *dom.Filter,
	ranker *rank.Ranker,
	validator *state.Validator,
	graph *state.Graph,
	dismisser *Dismisser,
	cache *dom.SnapshotCache,
	cfg Config,
	log zerolog.Logger,
) *Executor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Executor{
		ctrl:      ctrl,
		extractor: extractor,
		filter:    filter,
		ranker:    ranker,
		validator: validator,
		graph:     graph,
		dismisser: dismisser,
		cache:     cache,
		cfg:       cfg,
		log:       log.With().Str("component", "executor").Logger(),
	}
}

// SetRecovery installs the exhaustion hook. Optional.
func (e *Executor) SetRecovery(r Recovery) { e.recovery = r }

// Execute runs one step end to end and returns its outcome. The result is
// always populated; errors surface as typed failures, never panics.
func (e *Executor) Execute(ctx context.Context, idx int, st step.Step) StepResult {
	start := time.Now()
	res := StepResult{Index: idx, Action: st.Action, Target: st.Target, Value: st.Value}
	defer func() { res.Duration = time.Since(start) }()

	if err := st.Validate(); err != nil {
		res.Reason = step.ReasonInvalidStep
		res.Err = err.Error()
		return res
	}

	switch st.Action {
	case step.Navigate:
		e.navigate(ctx, st, &res)
	case step.Wait:
		e.wait(ctx, st, &res)
	default:
		e.resolveAndAct(ctx, st, &res)
	}

	evt := e.log.Info()
	if !res.Success {
		evt = e.log.Warn().Str("reason", string(res.Reason))
	}
	evt.Int("step", idx).
		Str("action", string(st.Action)).
		Str("target", st.Target).
		Bool("success", res.Success).
		Int("attempts", res.Attempts).
		Dur("took", res.Duration).
		Msg("step executed")
	return res
}

func (e *Executor) navigate(ctx context.Context, st step.Step, res *StepResult) {
	before, err := state.Capture(ctx, e.ctrl)
	if err != nil {
		res.Reason = step.ReasonActionFailed
		res.Err = err.Error()
		return
	}
	res.Before = before
	res.Attempts = 1
	if err := e.ctrl.Navigate(ctx, st.Target); err != nil {
		res.Reason = step.ReasonActionFailed
		res.Err = err.Error()
		return
	}
	_ = e.ctrl.WaitForLoad(ctx, e.cfg.SettleTimeout)
	after, err := state.Capture(ctx, e.ctrl)
	if err != nil {
		res.Reason = step.ReasonActionFailed
		res.Err = err.Error()
		return
	}
	res.After = after
	valid, change := e.validator.Validate(before, after, st.Action, st.Target)
	if valid && after.LooksLikeError() {
		valid = false
		res.Err = "landed on an error page"
	}
	res.Change = change
	e.graph.Append(state.Transition{
		From: before, To: after, Action: st.Action, Target: st.Target,
		Valid: valid, Change: change,
	})
	if !valid {
		res.Reason = step.ReasonNoValidTransition
		return
	}
	res.Success = true
}

func (e *Executor) wait(ctx context.Context, st step.Step, res *StepResult) {
	res.Attempts = 1
	if d, ok := st.WaitDuration(); ok {
		if d > e.cfg.WaitTimeout {
			d = e.cfg.WaitTimeout
		}
		select {
		case <-ctx.Done():
			res.Reason = step.ReasonWaitTimeout
			res.Err = ctx.Err().Error()
		case <-time.After(d):
			res.Success = true
		}
		return
	}
	// Element wait: poll for anything on the page that matches the target
	// description reasonably well.
	deadline := time.Now().Add(e.cfg.WaitTimeout)
	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			res.Reason = step.ReasonWaitTimeout
			res.Err = err.Error()
			return
		}
		cands, err := e.extractor.Clickables(ctx)
		if err == nil {
			filtered := e.filter.Apply(cands, step.Click, st.Region)
			ranked := e.ranker.Rank(filtered, step.Step{Action: step.Click, Target: st.Target, Region: st.Region})
			if len(ranked) > 0 && ranked[0].Score >= e.ranker.EffectiveThreshold(st.Target, len(ranked)) {
				res.Matched = ranked[0].Candidate.Element.DisplayName()
				res.Score = ranked[0].Score
				res.Success = true
				return
			}
		}
		time.Sleep(e.cfg.WaitPoll)
	}
	res.Reason = step.ReasonWaitTimeout
}

func (e *Executor) resolveAndAct(ctx context.Context, st step.Step, res *StepResult) {
	before, err := state.Capture(ctx, e.ctrl)
	if err != nil {
		res.Reason = step.ReasonActionFailed
		res.Err = err.Error()
		return
	}
	res.Before = before

	cands, err := e.extract(ctx, st.Action, before.ContentHash)
	if err != nil {
		res.Reason = step.ReasonActionFailed
		res.Err = err.Error()
		return
	}
	e.logPhase(PhaseExtracted, st, len(cands))
	if len(cands) == 0 {
		res.Reason = step.ReasonExtractionEmpty
		return
	}

	filtered := e.filter.Apply(cands, st.Action, st.Region)
	e.logPhase(PhaseFiltered, st, len(filtered))
	if len(filtered) == 0 {
		res.Reason = step.ReasonFilterEmpty
		return
	}

	ranked := e.ranker.Rank(filtered, st)
	accepted := e.ranker.Accept(ranked, st.Target)
	e.logPhase(PhaseRanked, st, len(accepted))
	if len(accepted) == 0 {
		if len(ranked) > 0 {
			res.Score = ranked[0].Score
			res.Matched = ranked[0].Candidate.Element.DisplayName()
		}
		res.Reason = step.ReasonNoCandidateAboveThreshold
		e.tryRecovery(ctx, st, res, filtered)
		return
	}

	if e.attempt(ctx, st, res, before, accepted) {
		return
	}
	e.logPhase(PhaseExhausted, st, res.Attempts)
	e.tryRecovery(ctx, st, res, filtered)
}

// attempt walks accepted candidates best-first, performing the action and
// validating the transition. Returns true on success.
func (e *Executor) attempt(ctx context.Context, st step.Step, res *StepResult, before state.Fingerprint, accepted []rank.Ranked) bool {
	limit := min(len(accepted), e.cfg.MaxAttempts)
	for i := 0; i < limit; i++ {
		if err := ctx.Err(); err != nil {
			res.Reason = step.ReasonActionFailed
			res.Err = err.Error()
			return false
		}
		cand := accepted[i]
		res.Attempts++
		e.log.Debug().
			Str("phase", string(PhaseAttempting)).
			Int("attempt", res.Attempts).
			Str("candidate", cand.Candidate.Element.DisplayName()).
			Float64("score", cand.Score).
			Msg("attempting candidate")

		readBack, actErr := e.act(ctx, st, cand.Candidate.Locator)
		if actErr != nil && st.Action == step.Click && e.dismisser != nil && e.dismisser.Present(ctx) {
			// An overlay intercepted the click; clear it and retry this
			// candidate once.
			if e.dismisser.Dismiss(ctx) {
				readBack, actErr = e.act(ctx, st, cand.Candidate.Locator)
			}
		}
		if actErr != nil {
			res.Reason = step.ReasonActionFailed
			res.Err = actErr.Error()
			continue
		}

		_ = e.ctrl.WaitForLoad(ctx, e.cfg.SettleTimeout)
		after, err := state.Capture(ctx, e.ctrl)
		if err != nil {
			res.Reason = step.ReasonActionFailed
			res.Err = err.Error()
			continue
		}
		valid, change := e.validator.Validate(before, after, st.Action, st.Target)
		if st.Action == step.Type {
			valid = e.validator.TypedValueReflects(st.Value, readBack)
		}
		e.graph.Append(state.Transition{
			From: before, To: after, Action: st.Action, Target: st.Target,
			Valid: valid, Change: change,
		})
		if valid {
			res.Success = true
			res.Matched = cand.Candidate.Element.DisplayName()
			res.Score = cand.Score
			res.Change = change
			res.After = after
			res.Reason = step.ReasonNone
			res.Err = ""
			e.logPhase(PhaseSucceeded, st, res.Attempts)
			return true
		}
		res.Reason = step.ReasonNoValidTransition
		res.After = after
		before = after
	}
	return false
}

func (e *Executor) act(ctx context.Context, st step.Step, loc browser.Locator) (string, error) {
	actCtx, cancel := context.WithTimeout(ctx, e.cfg.ActionTimeout)
	defer cancel()
	switch st.Action {
	case step.Click:
		_ = loc.ScrollIntoView(actCtx)
		return "", loc.Click(actCtx)
	case step.Type:
		if err := loc.Fill(actCtx, st.Value); err != nil {
			return "", err
		}
		return loc.InputValue(actCtx)
	case step.Select:
		return "", loc.SelectOption(actCtx, st.Value)
	default:
		return "", nil
	}
}

// tryRecovery gives the hook one shot at rephrasing the target. The retry
// re-enters ranking against the already-filtered set; it never recurses.
func (e *Executor) tryRecovery(ctx context.Context, st step.Step, res *StepResult, filtered []dom.Candidate) {
	if e.recovery == nil || len(filtered) == 0 {
		return
	}
	fc := FailureContext{
		Step:      st,
		Reason:    res.Reason,
		BestScore: res.Score,
		PageURL:   res.Before.URL,
		PageType:  res.Before.PageType,
	}
	for i, c := range filtered {
		if i >= 5 {
			break
		}
		fc.Candidates = append(fc.Candidates, c.Element.DisplayName())
	}
	sug, err := e.recovery.Suggest(ctx, fc)
	if err != nil {
		e.log.Debug().Err(err).Msg("recovery suggestion failed")
		return
	}
	if sug.Wait > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(sug.Wait):
		}
	}
	alt := sug.AlternativeTarget
	if alt == "" || rank.Normalize(alt) == rank.Normalize(st.Target) {
		return
	}
	e.log.Info().Str("target", st.Target).Str("alternative", alt).Msg("retrying with recovery target")
	retry := st
	retry.Target = alt
	ranked := e.ranker.Rank(filtered, retry)
	accepted := e.ranker.Accept(ranked, alt)
	if len(accepted) == 0 {
		return
	}
	before, err := state.Capture(ctx, e.ctrl)
	if err != nil {
		return
	}
	_ = e.attempt(ctx, retry, res, before, accepted[:1])
}

func (e *Executor) extract(ctx context.Context, kind step.Kind, contentHash string) ([]dom.Candidate, error) {
	class := "clickable"
	if kind == step.Type || kind == step.Select {
		class = "input"
	}
	if e.cache != nil {
		if cands, ok := e.cache.Get(contentHash, class); ok {
			return cands, nil
		}
	}
	var cands []dom.Candidate
	var err error
	if class == "input" {
		cands, err = e.extractor.Inputs(ctx)
	} else {
		cands, err = e.extractor.Clickables(ctx)
	}
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Put(contentHash, class, cands)
	}
	return cands, nil
}

func (e *Executor) logPhase(p Phase, st step.Step, n int) {
	e.log.Debug().Str("phase", string(p)).Str("target", st.Target).Int("n", n).Msg("pipeline phase")
}
