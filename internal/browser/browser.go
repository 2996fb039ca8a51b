package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

const (
	defaultNavTimeout    = 30 * time.Second
	defaultActionTimeout = 10 * time.Second
)

// Rect is an element bounding box in page coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Area() float64 { return r.Width * r.Height }

// Locator is a live handle to one element. Handles go stale after
// navigation; callers must re-extract instead of holding on to them.
type Locator interface {
	Click(ctx context.Context) error
	Fill(ctx context.Context, text string) error
	SelectOption(ctx context.Context, value string) error
	InputValue(ctx context.Context) (string, error)
	InnerText(ctx context.Context) (string, error)
	GetAttribute(ctx context.Context, name string) (string, error)
	IsVisible(ctx context.Context) (bool, error)
	BoundingBox(ctx context.Context) (*Rect, error)
	ScrollIntoView(ctx context.Context) error
	Evaluate(ctx context.Context, script string) (any, error)
}

// Controller exposes the page operations the resolution pipeline needs.
type Controller interface {
	Close(ctx context.Context) error
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	Content(ctx context.Context) (string, error)
	Query(ctx context.Context, selector string) ([]Locator, error)
	CountVisible(ctx context.Context, selector string) (int, error)
	Evaluate(ctx context.Context, script string, args ...any) (any, error)
	ScrollTo(ctx context.Context, y float64) error
	ScrollHeight(ctx context.Context) (float64, error)
	PressKey(ctx context.Context, key string) error
	MouseClick(ctx context.Context, x, y float64) error
	WaitForLoad(ctx context.Context, timeout time.Duration) error
	SaveState(ctx context.Context, path string) error
}

// Launcher owns playwright lifecycle.
type Launcher struct {
	pw       *playwright.Playwright
	browser  playwright.Browser
	headless bool
}

func NewLauncher(ctx context.Context, headless bool) (*Launcher, error) {
	if err := ensureDeps(); err != nil {
		return nil, err
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(headless),
		Args: []string{
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	return &Launcher{pw: pw, browser: browser, headless: headless}, nil
}

func (l *Launcher) NewController(ctx context.Context, storagePath string) (Controller, error) {
	opts := playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(true),
	}
	if strings.TrimSpace(storagePath) != "" {
		if _, err := os.Stat(storagePath); err == nil {
			opts.StorageStatePath = playwright.String(storagePath)
		}
	}
	bctx, err := l.browser.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("new context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	page.SetDefaultTimeout(float64(defaultActionTimeout.Milliseconds()))
	return &controller{context: bctx, page: page}, nil
}

func (l *Launcher) Close() error {
	if l.browser != nil {
		_ = l.browser.Close()
	}
	if l.pw != nil {
		return l.pw.Stop()
	}
	return nil
}

type controller struct {
	context playwright.BrowserContext
	page    playwright.Page
}

func (c *controller) Close(ctx context.Context) error {
	_ = ctx
	if c.page != nil {
		_ = c.page.Close()
	}
	if c.context != nil {
		return c.context.Close()
	}
	return nil
}

func (c *controller) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(float64(defaultNavTimeout.Milliseconds())),
	})
	return wrap(err)
}

func (c *controller) URL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.page.URL(), nil
}

func (c *controller) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	title, err := c.page.Title()
	return title, wrap(err)
}

func (c *controller) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content, err := c.page.Content()
	return content, wrap(err)
}

func (c *controller) Query(ctx context.Context, selector string) ([]Locator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := c.page.Locator(selector).All()
	if err != nil {
		return nil, wrap(err)
	}
	out := make([]Locator, 0, len(all))
	for _, l := range all {
		out = append(out, &locator{loc: l})
	}
	return out, nil
}

func (c *controller) CountVisible(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	all, err := c.page.Locator(selector).All()
	if err != nil {
		return 0, wrap(err)
	}
	n := 0
	for _, l := range all {
		if visible, err := l.IsVisible(); err == nil && visible {
			n++
		}
	}
	return n, nil
}

func (c *controller) Evaluate(ctx context.Context, script string, args ...any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var val any
	var err error
	switch len(args) {
	case 0:
		val, err = c.page.Evaluate(script)
	case 1:
		val, err = c.page.Evaluate(script, args[0])
	default:
		val, err = c.page.Evaluate(script, args)
	}
	return val, wrap(err)
}

func (c *controller) ScrollTo(ctx context.Context, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.page.Evaluate("y => window.scrollTo(0, y)", y)
	return wrap(err)
}

func (c *controller) ScrollHeight(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	val, err := c.page.Evaluate("() => document.body ? document.body.scrollHeight : 0")
	if err != nil {
		return 0, wrap(err)
	}
	switch v := val.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	}
	return 0, nil
}

func (c *controller) PressKey(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrap(c.page.Keyboard().Press(key))
}

func (c *controller) MouseClick(ctx context.Context, x, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrap(c.page.Mouse().Click(x, y))
}

func (c *controller) WaitForLoad(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if err := c.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	}); err != nil {
		// Network idle never settles on chatty pages; DOMContentLoaded is enough.
		_ = c.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State:   playwright.LoadStateDomcontentloaded,
			Timeout: playwright.Float(1000),
		})
	}
	return nil
}

func (c *controller) SaveState(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	state, err := c.context.StorageState()
	if err != nil {
		return wrap(err)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal storage: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

type locator struct {
	loc playwright.Locator
}

func timeoutMillis(ctx context.Context) *float64 {
	if deadline, ok := ctx.Deadline(); ok {
		ms := float64(time.Until(deadline).Milliseconds())
		if ms < 1 {
			ms = 1
		}
		return playwright.Float(ms)
	}
	return nil
}

func (l *locator) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrap(l.loc.Click(playwright.LocatorClickOptions{Timeout: timeoutMillis(ctx)}))
}

func (l *locator) Fill(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrap(l.loc.Fill(text, playwright.LocatorFillOptions{Timeout: timeoutMillis(ctx)}))
}

func (l *locator) SelectOption(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := l.loc.SelectOption(playwright.SelectOptionValues{
		ValuesOrLabels: &[]string{value},
	}, playwright.LocatorSelectOptionOptions{Timeout: timeoutMillis(ctx)})
	return wrap(err)
}

func (l *locator) InputValue(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	val, err := l.loc.InputValue(playwright.LocatorInputValueOptions{Timeout: timeoutMillis(ctx)})
	return val, wrap(err)
}

func (l *locator) InnerText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	val, err := l.loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: timeoutMillis(ctx)})
	return val, wrap(err)
}

func (l *locator) GetAttribute(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	val, err := l.loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: timeoutMillis(ctx)})
	if err != nil {
		return "", wrap(err)
	}
	return val, nil
}

func (l *locator) IsVisible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	visible, err := l.loc.IsVisible()
	return visible, wrap(err)
}

func (l *locator) BoundingBox(ctx context.Context) (*Rect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	box, err := l.loc.BoundingBox()
	if err != nil {
		return nil, wrap(err)
	}
	if box == nil {
		return nil, nil
	}
	return &Rect{X: box.X, Y: box.Y, Width: box.Width, Height: box.Height}, nil
}

func (l *locator) ScrollIntoView(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrap(l.loc.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{
		Timeout: timeoutMillis(ctx),
	}))
}

func (l *locator) Evaluate(ctx context.Context, script string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	val, err := l.loc.Evaluate(script, nil)
	return val, wrap(err)
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("playwright: %w", err)
}

func ensureDeps() error {
	// Browsers usually preinstalled in this workspace. Hook for future checks.
	return nil
}
