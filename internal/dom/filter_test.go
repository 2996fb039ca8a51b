package dom

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/ssvmg10-debug/UI-automation/internal/browser"
	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

func cand(el Element) Candidate { return Candidate{Element: el} }

func visibleButton(text string) Element {
	return Element{
		Tag: "button", Role: RoleButton, Text: text, Visible: true,
		Box: browser.Rect{X: 0, Y: 100, Width: 120, Height: 40},
	}
}

func newTestFilter() *Filter {
	return NewFilter(DefaultFilterConfig(), zerolog.Nop())
}

func TestFilterStrictChain(t *testing.T) {
	f := newTestFilter()
	invisible := visibleButton("Hidden")
	invisible.Visible = false
	tiny := visibleButton("Tiny")
	tiny.Box = browser.Rect{Width: 2, Height: 2}
	input := Element{Tag: "input", Role: RoleInput, Visible: true, Box: browser.Rect{Width: 200, Height: 30}}

	out := f.Apply([]Candidate{
		cand(invisible),
		cand(tiny),
		cand(input),
		cand(visibleButton("Add to cart")),
	}, step.Click, "")

	assert.Len(t, out, 1)
	assert.Equal(t, "Add to cart", out[0].Element.Text)
}

func TestFilterRelaxedFallbackRunsOnce(t *testing.T) {
	f := newTestFilter()
	// Visible, compatible, big enough, but textless: strict drops it, the
	// relaxed pass keeps it.
	iconButton := Element{
		Tag: "button", Role: RoleButton, Visible: true,
		Box: browser.Rect{Width: 48, Height: 48},
	}
	out := f.Apply([]Candidate{cand(iconButton)}, step.Click, "")
	assert.Len(t, out, 1)

	// Relaxation never rescues elements the earlier stages rejected.
	hidden := iconButton
	hidden.Visible = false
	out = f.Apply([]Candidate{cand(hidden)}, step.Click, "")
	assert.Empty(t, out)
}

func TestFilterActionCompatibility(t *testing.T) {
	f := newTestFilter()
	button := visibleButton("Submit")
	input := Element{Tag: "input", Role: RoleInput, Visible: true, Box: browser.Rect{Width: 200, Height: 30}}
	sel := Element{Tag: "select", Role: RoleSelect, Visible: true, Box: browser.Rect{Width: 200, Height: 30}}
	all := []Candidate{cand(button), cand(input), cand(sel)}

	typed := f.Apply(all, step.Type, "")
	for _, c := range typed {
		assert.NotEqual(t, RoleButton, c.Element.Role)
	}

	selected := f.Apply(all, step.Select, "")
	for _, c := range selected {
		assert.NotEqual(t, RoleButton, c.Element.Role)
	}

	// An [onclick] div carries no recognized tag or aria role but was
	// still extracted as clickable, so it survives the click filter.
	div := Element{
		Tag: "div", Role: RoleGeneric, Text: "Load more", Visible: true,
		Box: browser.Rect{Width: 160, Height: 44},
	}
	clicked := f.Apply([]Candidate{cand(div)}, step.Click, "")
	assert.Len(t, clicked, 1)
}

func TestFilterRegionHint(t *testing.T) {
	f := newTestFilter()
	header := visibleButton("Cart")
	header.Region = "header"
	footer := visibleButton("Cart")
	footer.Region = "footer"

	out := f.Apply([]Candidate{cand(header), cand(footer)}, step.Click, "header")
	assert.Len(t, out, 1)
	assert.Equal(t, "header", out[0].Element.Region)

	// A hint that matches nothing falls back to the unconstrained set.
	out = f.Apply([]Candidate{cand(header), cand(footer)}, step.Click, "sidebar")
	assert.Len(t, out, 2)
}
