package flow

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ssvmg10-debug/UI-automation/internal/state"
	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

// Match is a fragment hit: navigating to EndURL fulfills the next Skip
// upcoming steps.
type Match struct {
	Fragment Fragment
	EndURL   string
	Skip     int
}

// Matcher compares upcoming plan steps against stored fragments for the
// current site. Matching is by action and normalized target; typed values
// never participate.
type Matcher struct {
	store *Store
	log   zerolog.Logger
}

func NewMatcher(store *Store, log zerolog.Logger) *Matcher {
	return &Matcher{store: store, log: log.With().Str("component", "matcher").Logger()}
}

// Match returns the longest fragment whose steps are a prefix of the
// upcoming steps and whose start URL is a prefix of the current URL.
func (m *Matcher) Match(ctx context.Context, currentURL string, upcoming []step.Step) (*Match, error) {
	if len(upcoming) == 0 {
		return nil, nil
	}
	site := state.Site(currentURL)
	if site == "" {
		return nil, nil
	}
	fragments, err := m.store.BySite(ctx, site)
	if err != nil {
		return nil, err
	}
	current := NormalizeURL(currentURL)
	var best *Match
	for i := range fragments {
		f := fragments[i]
		if !strings.HasPrefix(current, NormalizeURL(f.StartURL)) {
			continue
		}
		steps, err := f.Steps()
		if err != nil {
			m.log.Warn().Int64("fragment", f.ID).Err(err).Msg("unreadable fragment steps, skipping")
			continue
		}
		if len(steps) == 0 || len(steps) > len(upcoming) {
			continue
		}
		if !prefixMatches(steps, upcoming) {
			continue
		}
		if best == nil || len(steps) > best.Skip {
			best = &Match{Fragment: f, EndURL: f.EndURL, Skip: len(steps)}
		}
	}
	if best != nil {
		m.log.Info().
			Int64("fragment", best.Fragment.ID).
			Int("skip", best.Skip).
			Str("end_url", best.EndURL).
			Int("success_count", best.Fragment.SuccessCount).
			Msg("fragment matched")
	}
	return best, nil
}

func prefixMatches(frag []FragmentStep, upcoming []step.Step) bool {
	for i, fs := range frag {
		st := upcoming[i]
		if fs.Action != st.Action {
			return false
		}
		if fs.Action == step.Navigate {
			if NormalizeURL(strings.ToLower(fs.Target)) != NormalizeURL(strings.ToLower(st.Target)) {
				return false
			}
			continue
		}
		if fs.Target != NormalizeTarget(st.Target) {
			return false
		}
	}
	return true
}
