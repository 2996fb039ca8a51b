package rank

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssvmg10-debug/UI-automation/internal/browser"
	"github.com/ssvmg10-debug/UI-automation/internal/dom"
	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

func newTestRanker() *Ranker {
	return NewRanker(DefaultWeights(), DefaultThresholds(), NewSimCache(0), zerolog.Nop())
}

func button(text string, y float64) dom.Candidate {
	return dom.Candidate{Element: dom.Element{
		Tag: "button", Role: dom.RoleButton, Text: text, Visible: true,
		Box: browser.Rect{X: 0, Y: y, Width: 120, Height: 40},
	}}
}

func clickStep(target string) step.Step {
	return step.Step{Action: step.Click, Target: target}
}

func TestExactMatchOutranksFuzzy(t *testing.T) {
	r := newTestRanker()
	ranked := r.Rank([]dom.Candidate{
		button("Add to wishlist", 100),
		button("Add to cart", 100),
	}, clickStep("Add to cart"))

	require.Len(t, ranked, 2)
	assert.Equal(t, "Add to cart", ranked[0].Candidate.Element.Text)
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
}

func TestDominanceBonusAndCap(t *testing.T) {
	r := newTestRanker()
	ranked := r.Rank([]dom.Candidate{button("Checkout", 0)}, clickStep("checkout"))
	require.Len(t, ranked, 1)
	assert.Equal(t, dominanceBonus, ranked[0].Breakdown.Dominance)
	assert.LessOrEqual(t, ranked[0].Score, 1.0)
	// Exact match plus all factor credit plus the bonus pins the cap.
	assert.Equal(t, 1.0, ranked[0].Score)
}

func TestSubstringDominanceBothDirections(t *testing.T) {
	r := newTestRanker()
	// Target inside element text.
	ranked := r.Rank([]dom.Candidate{button("Add to cart now", 100)}, clickStep("add to cart"))
	assert.Equal(t, dominanceBonus, ranked[0].Breakdown.Dominance)
	// Element text inside target.
	ranked = r.Rank([]dom.Candidate{button("cart", 100)}, clickStep("open the cart page"))
	assert.Equal(t, dominanceBonus, ranked[0].Breakdown.Dominance)
}

func TestTieBreakByVerticalPosition(t *testing.T) {
	r := newTestRanker()
	// Identical texts at different heights: same factors except position,
	// so the topmost must come first.
	ranked := r.Rank([]dom.Candidate{
		button("Buy", 900),
		button("Buy", 50),
	}, clickStep("Buy"))
	require.Len(t, ranked, 2)
	assert.Equal(t, 50.0, ranked[0].Candidate.Element.Box.Y)
}

func TestEffectiveThreshold(t *testing.T) {
	r := newTestRanker()
	th := DefaultThresholds()

	assert.Equal(t, th.Default, r.EffectiveThreshold("Add to cart", 20))
	// Long descriptive targets relax.
	long := "the red add to cart button next to the product price in the main panel"
	assert.Equal(t, th.Relaxed, r.EffectiveThreshold(long, 20))
	// Thin candidate sets relax.
	assert.Equal(t, th.Relaxed, r.EffectiveThreshold("Add to cart", 3))
}

func TestAcceptFiltersBelowThreshold(t *testing.T) {
	r := newTestRanker()
	cands := []dom.Candidate{
		button("Add to cart", 100),
		button("Contact us", 100),
		button("Privacy policy", 100),
		button("Careers", 100),
		button("Press", 100),
		button("Blog", 100),
	}
	ranked := r.Rank(cands, clickStep("Add to cart"))
	accepted := r.Accept(ranked, "Add to cart")
	require.NotEmpty(t, accepted)
	assert.Equal(t, "Add to cart", accepted[0].Candidate.Element.Text)
	for _, a := range accepted {
		assert.GreaterOrEqual(t, a.Score, DefaultThresholds().Default)
	}
}

func TestLabelMatchesWhenTextEmpty(t *testing.T) {
	r := newTestRanker()
	iconButton := dom.Candidate{Element: dom.Element{
		Tag: "button", Role: dom.RoleButton, Label: "Close dialog", Visible: true,
		Box: browser.Rect{Width: 40, Height: 40},
	}}
	other := button("Continue shopping", 100)
	ranked := r.Rank([]dom.Candidate{other, iconButton}, clickStep("Close dialog"))
	assert.Empty(t, ranked[0].Candidate.Element.Text)
	assert.Equal(t, "Close dialog", ranked[0].Candidate.Element.Label)
}

func TestWeightsSumToOne(t *testing.T) {
	w := DefaultWeights()
	sum := w.ExactText + w.Similarity + w.Label + w.Role + w.Region + w.Visibility + w.Position
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("Add to Cart", "add   to cart"))
	assert.Equal(t, 0.0, Similarity("", "anything"))
	assert.Greater(t, Similarity("add to cart", "add to basket"), 0.5)
	// Reordered words still count via token overlap.
	assert.Equal(t, 1.0, Similarity("cart add to", "add to cart"))
	assert.Less(t, Similarity("checkout", "privacy policy"), 0.3)
}

func TestSimCacheInvalidate(t *testing.T) {
	c := NewSimCache(2)
	v1 := c.Similarity("cart", "cart")
	assert.Equal(t, 1.0, v1)
	c.Invalidate()
	assert.Equal(t, 1.0, c.Similarity("cart", "cart"))
}
