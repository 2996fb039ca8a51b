package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

func fp(url, hash, title string) Fingerprint {
	return Fingerprint{URL: url, ContentHash: hash, Title: title}
}

func TestNavigateNeedsURLChange(t *testing.T) {
	v := NewValidator()

	valid, change := v.Validate(
		fp("https://a.example/", "h1", "A"),
		fp("https://a.example/cart", "h2", "Cart"),
		step.Navigate, "https://a.example/cart")
	assert.True(t, valid)
	assert.Equal(t, ChangeURL, change)

	// Content change alone is not navigation.
	valid, _ = v.Validate(
		fp("https://a.example/", "h1", "A"),
		fp("https://a.example/", "h2", "A"),
		step.Navigate, "https://b.example/")
	assert.False(t, valid)

	// Re-requesting the current URL is a valid no-op.
	valid, _ = v.Validate(
		fp("https://a.example/cart", "h1", "Cart"),
		fp("https://a.example/cart", "h1", "Cart"),
		step.Navigate, "https://a.example/cart/")
	assert.True(t, valid)
}

func TestClickAcceptsAnyObservableChange(t *testing.T) {
	v := NewValidator()
	before := fp("https://a.example/p/1", "h1", "Product")

	valid, change := v.Validate(before, fp("https://a.example/cart", "h1", "Product"), step.Click, "Add to cart")
	assert.True(t, valid)
	assert.Equal(t, ChangeURL, change)

	valid, change = v.Validate(before, fp("https://a.example/p/1", "h2", "Product"), step.Click, "Add to cart")
	assert.True(t, valid)
	assert.Equal(t, ChangeContent, change)

	valid, change = v.Validate(before, before, step.Click, "Add to cart")
	assert.False(t, valid)
	assert.Equal(t, ChangeNone, change)
}

func TestTypedValueReflects(t *testing.T) {
	v := NewValidator()
	assert.True(t, v.TypedValueReflects("wireless mouse", "Wireless Mouse"))
	assert.True(t, v.TypedValueReflects("mouse", "wireless mouse pro"))
	assert.False(t, v.TypedValueReflects("mouse", "keyboard"))
	assert.True(t, v.TypedValueReflects("", ""))
}

func TestLooksLikeError(t *testing.T) {
	assert.True(t, fp("https://a.example/404", "h", "x").LooksLikeError())
	assert.True(t, fp("https://a.example/x", "h", "Page Not Found").LooksLikeError())
	assert.False(t, fp("https://a.example/cart", "h", "Cart").LooksLikeError())
}

func TestGraphAppendOnly(t *testing.T) {
	g := NewGraph()
	g.Append(Transition{From: fp("a", "1", ""), To: fp("b", "2", ""), Action: step.Click, Valid: true})
	g.Append(Transition{From: fp("b", "2", ""), To: fp("b", "2", ""), Action: step.Click, Valid: false})

	trace := g.Trace()
	assert.Len(t, trace, 2)
	assert.False(t, trace[0].At.IsZero())

	last, ok := g.LastValid()
	assert.True(t, ok)
	assert.Equal(t, "a", last.From.URL)

	// Trace is a copy; mutating it must not touch the graph.
	trace[0].Valid = false
	last, _ = g.LastValid()
	assert.True(t, last.Valid)
}
