package script

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ssvmg10-debug/UI-automation/internal/exec"
	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

func TestGenerate(t *testing.T) {
	steps := []step.Step{
		{Action: step.Navigate, Target: "https://shop.example/"},
		{Action: step.Click, Target: "Add to cart"},
		{Action: step.Type, Target: "promo code", Value: "SAVE10"},
		{Action: step.Select, Target: "size", Value: "M"},
		{Action: step.Wait, Value: "2"},
	}
	src := Generate(steps, nil)

	assert.Contains(t, src, "package main")
	assert.Contains(t, src, `page.Goto("https://shop.example/")`)
	assert.Contains(t, src, `page.GetByText("Add to cart")`)
	assert.Contains(t, src, `Fill("SAVE10")`)
	assert.Contains(t, src, `SelectOption`)
	assert.Contains(t, src, "time.Sleep(2000 * time.Millisecond)")
}

func TestGenerateUsesMatchedText(t *testing.T) {
	steps := []step.Step{{Action: step.Click, Target: "buy the mouse"}}
	results := []exec.StepResult{{Index: 0, Success: true, Matched: "Add to cart"}}
	src := Generate(steps, results)
	assert.Contains(t, src, `page.GetByText("Add to cart")`)
	assert.NotContains(t, src, "buy the mouse")
}

func TestGenerateEscapesQuotes(t *testing.T) {
	steps := []step.Step{{Action: step.Click, Target: `say "hello"`}}
	src := Generate(steps, nil)
	assert.Contains(t, src, `"say \"hello\""`)
}

func TestGenerateElementWait(t *testing.T) {
	steps := []step.Step{{Action: step.Wait, Target: "search results"}}
	src := Generate(steps, nil)
	assert.Contains(t, src, `GetByText("search results").First().WaitFor()`)
}
