package dom

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

// FilterConfig tunes the candidate filter chain.
type FilterConfig struct {
	MinArea float64
}

func DefaultFilterConfig() FilterConfig {
	return FilterConfig{MinArea: 25}
}

// Filter narrows extracted candidates to the ones worth ranking. The strict
// chain is visibility, action compatibility, minimum area, then (for clicks)
// a non-empty text or label. When the strict chain empties the set, one
// relaxed pass runs without the text requirement.
type Filter struct {
	cfg FilterConfig
	log zerolog.Logger
}

func NewFilter(cfg FilterConfig, log zerolog.Logger) *Filter {
	if cfg.MinArea <= 0 {
		cfg.MinArea = 25
	}
	return &Filter{cfg: cfg, log: log.With().Str("component", "filter").Logger()}
}

// Apply runs the filter chain for the given action, honoring an optional
// region hint. The hint narrows; it never empties: when no survivor sits in
// the hinted region the unconstrained set is returned.
func (f *Filter) Apply(cands []Candidate, kind step.Kind, regionHint string) []Candidate {
	strict := f.pass(cands, kind, true)
	out := strict
	if len(out) == 0 && len(cands) > 0 {
		out = f.pass(cands, kind, false)
		f.log.Debug().
			Int("input", len(cands)).
			Int("relaxed", len(out)).
			Str("action", string(kind)).
			Msg("strict filter emptied set, relaxed pass applied")
	}
	if hint := strings.TrimSpace(strings.ToLower(regionHint)); hint != "" && len(out) > 0 {
		inRegion := make([]Candidate, 0, len(out))
		for _, c := range out {
			if strings.Contains(strings.ToLower(c.Element.Region), hint) {
				inRegion = append(inRegion, c)
			}
		}
		if len(inRegion) > 0 {
			return inRegion
		}
		f.log.Debug().Str("region", regionHint).Msg("region hint matched nothing, ignoring it")
	}
	return out
}

func (f *Filter) pass(cands []Candidate, kind step.Kind, requireText bool) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		el := c.Element
		if !el.Visible {
			continue
		}
		if !compatible(el.Role, kind) {
			continue
		}
		if el.Area() < f.cfg.MinArea {
			continue
		}
		if requireText && kind == step.Click {
			if strings.TrimSpace(el.Text) == "" && strings.TrimSpace(el.Label) == "" {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func compatible(role Role, kind step.Kind) bool {
	switch kind {
	case step.Click:
		// Generic and select roles stay clickable: the click extraction
		// selector only yields [onclick]-style nodes outside the button
		// and link tags, and those must not be filtered back out here.
		return role == RoleButton || role == RoleLink || role == RoleGeneric || role == RoleSelect
	case step.Type:
		return role == RoleInput || role == RoleGeneric
	case step.Select:
		return role == RoleSelect || role == RoleInput || role == RoleGeneric
	default:
		return true
	}
}
