package flow

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ssvmg10-debug/UI-automation/internal/state"
	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

// Recorder persists fragments after a run. For a run whose first N steps
// succeeded, every prefix of length minLen..N becomes a fragment, so later
// runs can reuse partial progress even if they diverge further in.
type Recorder struct {
	store            *Store
	minLen           int
	includeFormSteps bool
	log              zerolog.Logger
}

func NewRecorder(store *Store, minLen int, includeFormSteps bool, log zerolog.Logger) *Recorder {
	if minLen < 2 {
		minLen = 2
	}
	return &Recorder{
		store:            store,
		minLen:           minLen,
		includeFormSteps: includeFormSteps,
		log:              log.With().Str("component", "recorder").Logger(),
	}
}

// Record saves fragments for the successful prefix of a run. endURLs[i] is
// the page URL observed after steps[i] completed; both slices cover only
// the consecutive successful steps from the start of the plan.
func (r *Recorder) Record(ctx context.Context, startURL string, steps []step.Step, endURLs []string) (int, error) {
	n := len(steps)
	if len(endURLs) < n {
		n = len(endURLs)
	}
	if n < r.minLen {
		return 0, nil
	}
	site := state.Site(startURL)
	if site == "" {
		return 0, nil
	}
	saved := 0
	for k := r.minLen; k <= n; k++ {
		prefix := steps[:k]
		if !r.replayable(prefix) {
			// A non-replayable step poisons this and every longer prefix.
			break
		}
		endURL := endURLs[k-1]
		if NormalizeURL(endURL) == "" || NormalizeURL(endURL) == NormalizeURL(startURL) {
			continue
		}
		fsteps := make([]FragmentStep, 0, k)
		for _, st := range prefix {
			fsteps = append(fsteps, FragmentStepOf(st))
		}
		f := Fragment{Site: site, StartURL: startURL, EndURL: endURL}
		if err := f.SetSteps(fsteps); err != nil {
			return saved, err
		}
		count, err := r.store.SaveOrIncrement(ctx, f)
		if err != nil {
			return saved, err
		}
		saved++
		r.log.Debug().
			Int("length", k).
			Str("end_url", endURL).
			Int("success_count", count).
			Msg("fragment recorded")
	}
	return saved, nil
}

// Reinforce credits a fragment that was just replayed successfully.
func (r *Recorder) Reinforce(ctx context.Context, fragmentID int64) {
	if err := r.store.Reinforce(ctx, fragmentID); err != nil {
		r.log.Warn().Err(err).Int64("fragment_id", fragmentID).Msg("reinforce failed")
	}
}

func (r *Recorder) replayable(steps []step.Step) bool {
	for _, st := range steps {
		if !Replayable(st.Action, r.includeFormSteps) {
			return false
		}
	}
	return true
}
