package exec

import (
	"context"
	"strings"
	"time"

	"github.com/ssvmg10-debug/UI-automation/internal/browser"
)

func locs(ls ...browser.Locator) []browser.Locator { return ls }

// fakeLocator is a scripted element handle for executor tests.
type fakeLocator struct {
	tag        string
	text       string
	label      string
	inputType  string
	visible    bool
	box        browser.Rect
	value      string
	clickErr   error
	clickFn    func() error
	onClick    func()
	fillIgnore bool
	clicks     int
}

func newButton(text string, onClick func()) *fakeLocator {
	return &fakeLocator{
		tag: "button", text: text, visible: true,
		box:     browser.Rect{X: 10, Y: 100, Width: 120, Height: 40},
		onClick: onClick,
	}
}

func newInput(label string) *fakeLocator {
	return &fakeLocator{
		tag: "input", label: label, inputType: "text", visible: true,
		box: browser.Rect{X: 10, Y: 60, Width: 240, Height: 32},
	}
}

func (l *fakeLocator) Click(ctx context.Context) error {
	l.clicks++
	if l.clickFn != nil {
		return l.clickFn()
	}
	if l.clickErr != nil {
		return l.clickErr
	}
	if l.onClick != nil {
		l.onClick()
	}
	return nil
}

func (l *fakeLocator) Fill(ctx context.Context, text string) error {
	if !l.fillIgnore {
		l.value = text
	}
	return nil
}

func (l *fakeLocator) SelectOption(ctx context.Context, value string) error {
	l.value = value
	if l.onClick != nil {
		l.onClick()
	}
	return nil
}

func (l *fakeLocator) InputValue(ctx context.Context) (string, error) { return l.value, nil }
func (l *fakeLocator) InnerText(ctx context.Context) (string, error)  { return l.text, nil }

func (l *fakeLocator) GetAttribute(ctx context.Context, name string) (string, error) {
	switch name {
	case "aria-label":
		return l.label, nil
	case "type":
		return l.inputType, nil
	default:
		return "", nil
	}
}

func (l *fakeLocator) IsVisible(ctx context.Context) (bool, error) { return l.visible, nil }

func (l *fakeLocator) BoundingBox(ctx context.Context) (*browser.Rect, error) {
	box := l.box
	return &box, nil
}

func (l *fakeLocator) ScrollIntoView(ctx context.Context) error { return nil }

func (l *fakeLocator) Evaluate(ctx context.Context, script string) (any, error) {
	switch {
	case strings.Contains(script, "tagName"):
		return l.tag, nil
	case strings.Contains(script, "closest"):
		return "", nil
	case strings.Contains(script, "parentElement"):
		return "", nil
	}
	return nil, nil
}

// fakeController is an in-memory page for executor tests.
type fakeController struct {
	url        string
	title      string
	content    string
	clickables []browser.Locator
	inputs     []browser.Locator
	overlays   int
	navErr     error
}

func (c *fakeController) Close(ctx context.Context) error { return nil }

func (c *fakeController) Navigate(ctx context.Context, url string) error {
	if c.navErr != nil {
		return c.navErr
	}
	c.url = url
	c.content = "page:" + url
	return nil
}

func (c *fakeController) URL(ctx context.Context) (string, error)     { return c.url, nil }
func (c *fakeController) Title(ctx context.Context) (string, error)   { return c.title, nil }
func (c *fakeController) Content(ctx context.Context) (string, error) { return c.content, nil }

func (c *fakeController) Query(ctx context.Context, selector string) ([]browser.Locator, error) {
	switch {
	case strings.Contains(selector, "textarea"):
		return c.inputs, nil
	case strings.Contains(selector, "dialog"):
		return nil, nil
	default:
		return c.clickables, nil
	}
}

func (c *fakeController) CountVisible(ctx context.Context, selector string) (int, error) {
	if strings.Contains(selector, "dialog") {
		return c.overlays, nil
	}
	return 0, nil
}

func (c *fakeController) Evaluate(ctx context.Context, script string, args ...any) (any, error) {
	return nil, nil
}

func (c *fakeController) ScrollTo(ctx context.Context, y float64) error { return nil }

func (c *fakeController) ScrollHeight(ctx context.Context) (float64, error) { return 0, nil }

func (c *fakeController) PressKey(ctx context.Context, key string) error {
	if key == "Escape" {
		c.overlays = 0
	}
	return nil
}

func (c *fakeController) MouseClick(ctx context.Context, x, y float64) error { return nil }

func (c *fakeController) WaitForLoad(ctx context.Context, timeout time.Duration) error { return nil }

func (c *fakeController) SaveState(ctx context.Context, path string) error { return nil }
