package flow

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ssvmg10-debug/UI-automation/internal/state"
	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

// DecisionKind tags how an optimization was found.
type DecisionKind string

const (
	DecisionFragment      DecisionKind = "fragment"
	DecisionURLShortcut   DecisionKind = "url_shortcut"
	DecisionStateShortcut DecisionKind = "state_shortcut"
)

// Decision tells the runner to navigate straight to TargetURL, consuming
// the next Skip plan steps.
type Decision struct {
	Kind      DecisionKind
	TargetURL string
	Skip      int

	// FragmentID is set when Kind is DecisionFragment, so a successful
	// replay can be credited back to the stored fragment.
	FragmentID int64
}

// Optimizer is the pre-execution check for each step: can stored knowledge
// satisfy the next steps with a single navigation? Checks are ordered by
// confidence: recorded fragments, URL shortcuts, then state shortcuts.
type Optimizer struct {
	matcher   *Matcher
	shortcuts Shortcuts
	log       zerolog.Logger
}

func NewOptimizer(matcher *Matcher, shortcuts Shortcuts, log zerolog.Logger) *Optimizer {
	return &Optimizer{
		matcher:   matcher,
		shortcuts: shortcuts,
		log:       log.With().Str("component", "optimizer").Logger(),
	}
}

// Consider inspects the upcoming steps from the current page. A nil
// decision means: execute the next step normally.
func (o *Optimizer) Consider(ctx context.Context, currentURL string, pageType state.PageType, upcoming []step.Step) (*Decision, error) {
	if len(upcoming) == 0 {
		return nil, nil
	}
	if o.matcher != nil {
		// A leading NAVIGATE pins the context to its target no matter
		// where the session currently sits, so fragments recorded from
		// that page match even from a blank session.
		matchURL := currentURL
		if upcoming[0].Action == step.Navigate {
			matchURL = upcoming[0].Target
		}
		m, err := o.matcher.Match(ctx, matchURL, upcoming)
		if err != nil {
			// A broken store must not break the run; fall through to
			// shortcuts and normal execution.
			o.log.Warn().Err(err).Msg("fragment match failed")
		} else if m != nil {
			return &Decision{Kind: DecisionFragment, TargetURL: m.EndURL, Skip: m.Skip, FragmentID: m.Fragment.ID}, nil
		}
	}

	next := upcoming[0]
	if next.Action != step.Click {
		return nil, nil
	}
	if u := o.shortcuts.ResolveURL(currentURL, next.Target); u != "" {
		o.log.Info().Str("target", next.Target).Str("url", u).Msg("url shortcut")
		return &Decision{Kind: DecisionURLShortcut, TargetURL: u, Skip: 1}, nil
	}
	if u := o.shortcuts.ResolveState(currentURL, pageType, next.Target); u != "" {
		o.log.Info().Str("target", next.Target).Str("url", u).Msg("state shortcut")
		return &Decision{Kind: DecisionStateShortcut, TargetURL: u, Skip: 1}, nil
	}
	return nil, nil
}
