package rank

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ssvmg10-debug/UI-automation/internal/dom"
	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

// Weights are the scoring factor weights. They sum to 1.0 before the
// substring dominance bonus is applied.
type Weights struct {
	ExactText  float64 `yaml:"exact_text"`
	Similarity float64 `yaml:"similarity"`
	Label      float64 `yaml:"label"`
	Role       float64 `yaml:"role"`
	Region     float64 `yaml:"region"`
	Visibility float64 `yaml:"visibility"`
	Position   float64 `yaml:"position"`
}

func DefaultWeights() Weights {
	return Weights{
		ExactText:  0.35,
		Similarity: 0.20,
		Label:      0.15,
		Role:       0.10,
		Region:     0.10,
		Visibility: 0.05,
		Position:   0.05,
	}
}

// Thresholds control acceptance. Long targets and thin candidate sets drop
// to the relaxed threshold; ordering is never affected, only acceptance.
type Thresholds struct {
	Default       float64 `yaml:"default"`
	Relaxed       float64 `yaml:"relaxed"`
	LongTargetLen int     `yaml:"long_target_len"`
	FewCandidates int     `yaml:"few_candidates"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Default:       0.65,
		Relaxed:       0.35,
		LongTargetLen: 55,
		FewCandidates: 5,
	}
}

const dominanceBonus = 0.5

// Breakdown records per-factor contributions for diagnosability.
type Breakdown struct {
	ExactText  float64 `json:"exact_text"`
	Similarity float64 `json:"similarity"`
	Label      float64 `json:"label"`
	Role       float64 `json:"role"`
	Region     float64 `json:"region"`
	Visibility float64 `json:"visibility"`
	Position   float64 `json:"position"`
	Dominance  float64 `json:"dominance"`
}

// Ranked is one scored candidate.
type Ranked struct {
	Candidate dom.Candidate
	Score     float64
	Breakdown Breakdown
}

// Ranker scores filtered candidates against a step's target description.
type Ranker struct {
	w     Weights
	th    Thresholds
	cache *SimCache
	log   zerolog.Logger
}

func NewRanker(w Weights, th Thresholds, cache *SimCache, log zerolog.Logger) *Ranker {
	if cache == nil {
		cache = NewSimCache(0)
	}
	return &Ranker{w: w, th: th, cache: cache, log: log.With().Str("component", "ranker").Logger()}
}

// Rank scores and orders candidates, highest first. Ties break by vertical
// page position, topmost first, so ordering is deterministic.
func (r *Ranker) Rank(cands []dom.Candidate, st step.Step) []Ranked {
	out := make([]Ranked, 0, len(cands))
	for _, c := range cands {
		score, bd := r.score(c.Element, st)
		out = append(out, Ranked{Candidate: c, Score: score, Breakdown: bd})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		bi, bj := out[i].Candidate.Element.Box, out[j].Candidate.Element.Box
		if bi.Y != bj.Y {
			return bi.Y < bj.Y
		}
		return bi.X < bj.X
	})
	if len(out) > 0 {
		r.log.Debug().
			Str("target", st.Target).
			Float64("top_score", out[0].Score).
			Str("top", out[0].Candidate.Element.DisplayName()).
			Int("candidates", len(out)).
			Msg("ranked candidates")
	}
	return out
}

// EffectiveThreshold picks the acceptance bar for this target and
// candidate-set size.
func (r *Ranker) EffectiveThreshold(target string, numCandidates int) float64 {
	if len(Normalize(target)) > r.th.LongTargetLen {
		return r.th.Relaxed
	}
	if numCandidates > 0 && numCandidates <= r.th.FewCandidates {
		return r.th.Relaxed
	}
	return r.th.Default
}

// Accept returns the prefix of ranked candidates at or above the effective
// threshold.
func (r *Ranker) Accept(ranked []Ranked, target string) []Ranked {
	th := r.EffectiveThreshold(target, len(ranked))
	out := make([]Ranked, 0, len(ranked))
	for _, rc := range ranked {
		if rc.Score >= th {
			out = append(out, rc)
		}
	}
	return out
}

func (r *Ranker) score(el dom.Element, st step.Step) (float64, Breakdown) {
	target := Normalize(st.Target)
	text := Normalize(el.Text)
	label := Normalize(el.Label)
	combined := Normalize(el.CombinedText())

	var bd Breakdown
	if target != "" && target == text {
		bd.ExactText = r.w.ExactText
	}
	bd.Similarity = r.w.Similarity * r.cache.Similarity(target, combined)
	if label != "" {
		bd.Label = r.w.Label * r.cache.Similarity(target, label)
	}
	if roleMatches(el.Role, st.Action) {
		bd.Role = r.w.Role
	}
	if hint := Normalize(st.Region); hint != "" && strings.Contains(Normalize(el.Region), hint) {
		bd.Region = r.w.Region
	}
	if el.Visible {
		bd.Visibility = r.w.Visibility
	}
	bd.Position = r.w.Position * positionFactor(el.Box.Y)

	score := bd.ExactText + bd.Similarity + bd.Label + bd.Role + bd.Region + bd.Visibility + bd.Position
	if target != "" && combined != "" &&
		(strings.Contains(combined, target) || strings.Contains(target, combined)) {
		bd.Dominance = dominanceBonus
		score += dominanceBonus
	}
	if score > 1 {
		score = 1
	}
	return score, bd
}

func roleMatches(role dom.Role, kind step.Kind) bool {
	switch kind {
	case step.Click:
		return role == dom.RoleButton || role == dom.RoleLink
	case step.Type:
		return role == dom.RoleInput
	case step.Select:
		return role == dom.RoleSelect
	default:
		return false
	}
}

// positionFactor decays monotonically with vertical offset: 1.0 at the top
// of the page, half credit one viewport down.
func positionFactor(y float64) float64 {
	if y <= 0 {
		return 1
	}
	return 800 / (800 + y)
}
