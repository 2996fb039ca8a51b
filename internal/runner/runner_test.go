package runner

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssvmg10-debug/UI-automation/internal/browser"
	"github.com/ssvmg10-debug/UI-automation/internal/dom"
	"github.com/ssvmg10-debug/UI-automation/internal/exec"
	"github.com/ssvmg10-debug/UI-automation/internal/flow"
	"github.com/ssvmg10-debug/UI-automation/internal/rank"
	"github.com/ssvmg10-debug/UI-automation/internal/state"
	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

// fakePage is one page of the scripted site.
type fakePage struct {
	title      string
	content    string
	clickables []browser.Locator
}

// siteController is an in-memory multi-page site. Clicking a scripted
// element moves the controller to another page, like a real navigation.
type siteController struct {
	url   string
	pages map[string]*fakePage
	navs  []string
}

func (c *siteController) page() *fakePage {
	if p, ok := c.pages[c.url]; ok {
		return p
	}
	return &fakePage{title: "Not found", content: "not found"}
}

func (c *siteController) goTo(url string) {
	c.url = url
	c.navs = append(c.navs, url)
}

func (c *siteController) Close(ctx context.Context) error { return nil }

func (c *siteController) Navigate(ctx context.Context, url string) error {
	c.goTo(url)
	return nil
}

func (c *siteController) URL(ctx context.Context) (string, error)     { return c.url, nil }
func (c *siteController) Title(ctx context.Context) (string, error)   { return c.page().title, nil }
func (c *siteController) Content(ctx context.Context) (string, error) { return c.page().content, nil }

func (c *siteController) Query(ctx context.Context, selector string) ([]browser.Locator, error) {
	switch {
	case strings.Contains(selector, "textarea"):
		return nil, nil
	case strings.Contains(selector, "dialog"):
		return nil, nil
	default:
		return c.page().clickables, nil
	}
}

func (c *siteController) CountVisible(ctx context.Context, selector string) (int, error) {
	return 0, nil
}

func (c *siteController) Evaluate(ctx context.Context, script string, args ...any) (any, error) {
	return nil, nil
}

func (c *siteController) ScrollTo(ctx context.Context, y float64) error { return nil }

func (c *siteController) ScrollHeight(ctx context.Context) (float64, error) { return 0, nil }

func (c *siteController) PressKey(ctx context.Context, key string) error { return nil }

func (c *siteController) MouseClick(ctx context.Context, x, y float64) error { return nil }

func (c *siteController) WaitForLoad(ctx context.Context, timeout time.Duration) error { return nil }

func (c *siteController) SaveState(ctx context.Context, path string) error { return nil }

type siteLocator struct {
	tag     string
	text    string
	visible bool
	box     browser.Rect
	onClick func()
}

func (l *siteLocator) Click(ctx context.Context) error {
	if l.onClick != nil {
		l.onClick()
	}
	return nil
}

func (l *siteLocator) Fill(ctx context.Context, text string) error          { return nil }
func (l *siteLocator) SelectOption(ctx context.Context, value string) error { return nil }
func (l *siteLocator) InputValue(ctx context.Context) (string, error)       { return "", nil }
func (l *siteLocator) InnerText(ctx context.Context) (string, error)        { return l.text, nil }

func (l *siteLocator) GetAttribute(ctx context.Context, name string) (string, error) {
	return "", nil
}

func (l *siteLocator) IsVisible(ctx context.Context) (bool, error) { return l.visible, nil }

func (l *siteLocator) BoundingBox(ctx context.Context) (*browser.Rect, error) {
	box := l.box
	return &box, nil
}

func (l *siteLocator) ScrollIntoView(ctx context.Context) error { return nil }

func (l *siteLocator) Evaluate(ctx context.Context, script string) (any, error) {
	if strings.Contains(script, "tagName") {
		return l.tag, nil
	}
	return "", nil
}

const (
	homeURL     = "https://shop.example/"
	categoryURL = "https://shop.example/c/shoes"
	cartURL     = "https://shop.example/cart"
)

func newShopSite() *siteController {
	c := &siteController{url: "about:blank", pages: map[string]*fakePage{}}
	link := func(text string, to string) *siteLocator {
		return &siteLocator{
			tag: "button", text: text, visible: true,
			box:     browser.Rect{X: 10, Y: 120, Width: 140, Height: 40},
			onClick: func() { c.goTo(to) },
		}
	}
	c.pages[homeURL] = &fakePage{
		title:      "Shop",
		content:    "welcome",
		clickables: []browser.Locator{link("Shoes", categoryURL)},
	}
	c.pages[categoryURL] = &fakePage{
		title:      "Shoes - search results",
		content:    "shoes listing",
		clickables: []browser.Locator{link("Add to cart", cartURL)},
	}
	c.pages[cartURL] = &fakePage{title: "Cart", content: "your cart"}
	return c
}

func newTestRunner(t *testing.T, ctrl *siteController, storePath string) (*Runner, *flow.Store) {
	t.Helper()
	log := zerolog.Nop()
	store, err := flow.OpenStore(storePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	graph := state.NewGraph()
	snapCache := dom.NewSnapshotCache(0)
	simCache := rank.NewSimCache(0)
	extractor := dom.NewExtractor(ctrl, dom.DefaultExtractorConfig(), log)
	filter := dom.NewFilter(dom.DefaultFilterConfig(), log)
	ranker := rank.NewRanker(rank.DefaultWeights(), rank.DefaultThresholds(), simCache, log)

	cfg := exec.DefaultConfig()
	cfg.SettleTimeout = 10 * time.Millisecond
	cfg.WaitTimeout = 200 * time.Millisecond
	cfg.WaitPoll = 20 * time.Millisecond
	ex := exec.New(ctrl, extractor, filter, ranker, state.NewValidator(), graph,
		exec.NewDismisser(ctrl, log), snapCache, cfg, log)

	optimizer := flow.NewOptimizer(flow.NewMatcher(store, log), flow.Shortcuts{}, log)
	recorder := flow.NewRecorder(store, 2, false, log)
	return New(ctrl, ex, optimizer, recorder, graph, snapCache, simCache, true, log), store
}

func checkoutPlan() []step.Step {
	return []step.Step{
		{Action: step.Navigate, Target: homeURL},
		{Action: step.Click, Target: "Shoes"},
		{Action: step.Click, Target: "Add to cart"},
	}
}

func TestRunRecordsFragments(t *testing.T) {
	ctrl := newShopSite()
	r, store := newTestRunner(t, ctrl, filepath.Join(t.TempDir(), "flows.db"))

	report, err := r.Run(context.Background(), "buy shoes", checkoutPlan())
	require.NoError(t, err)
	require.True(t, report.Success)
	require.Len(t, report.Results, 3)
	for _, res := range report.Results {
		assert.True(t, res.Success)
		assert.False(t, res.Skipped)
	}
	assert.Equal(t, cartURL, ctrl.url)

	// Prefixes of length 2 and 3 each become a fragment.
	assert.Equal(t, 2, report.FragmentsSaved)
	frags, err := store.BySite(context.Background(), "shop.example")
	require.NoError(t, err)
	require.Len(t, frags, 2)
	for _, f := range frags {
		assert.Equal(t, flow.NormalizeURL(homeURL), f.StartURL)
		assert.Equal(t, 1, f.SuccessCount)
	}
}

func TestSecondRunReplaysFragment(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "flows.db")

	first := newShopSite()
	r1, _ := newTestRunner(t, first, storePath)
	report1, err := r1.Run(context.Background(), "buy shoes", checkoutPlan())
	require.NoError(t, err)
	require.True(t, report1.Success)

	// Second visit starts on the site, so the whole plan matches the
	// recorded fragment and collapses into one navigation.
	second := newShopSite()
	second.url = homeURL
	r2, store := newTestRunner(t, second, storePath)
	report2, err := r2.Run(context.Background(), "buy shoes", checkoutPlan())
	require.NoError(t, err)
	require.True(t, report2.Success)
	require.Len(t, report2.Results, 3)
	for _, res := range report2.Results {
		assert.True(t, res.Skipped)
		assert.Equal(t, string(flow.DecisionFragment), res.Matched)
	}
	assert.Equal(t, 3, report2.FragmentSkips)
	assert.Equal(t, []string{cartURL}, second.navs)

	// The replay is credited to the fragment, and no guessed prefixes
	// are recorded on top of it.
	assert.Equal(t, 0, report2.FragmentsSaved)
	frags, err := store.BySite(context.Background(), "shop.example")
	require.NoError(t, err)
	require.Len(t, frags, 2)
	assert.Equal(t, cartURL, frags[0].EndURL)
	assert.Equal(t, 2, frags[0].SuccessCount)
}

func TestReplayFromFreshSession(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "flows.db")

	first := newShopSite()
	r1, _ := newTestRunner(t, first, storePath)
	_, err := r1.Run(context.Background(), "buy shoes", checkoutPlan())
	require.NoError(t, err)

	// A blank session still replays: the plan's leading navigation pins
	// the start URL before any page is loaded.
	second := newShopSite()
	r2, _ := newTestRunner(t, second, storePath)
	report, err := r2.Run(context.Background(), "buy shoes", checkoutPlan())
	require.NoError(t, err)
	require.True(t, report.Success)
	assert.Equal(t, 3, report.FragmentSkips)
	assert.Equal(t, []string{cartURL}, second.navs)
}

func TestRunStopsOnFailure(t *testing.T) {
	ctrl := newShopSite()
	// Remove the category page's only control so the second click fails.
	ctrl.pages[categoryURL].clickables = nil
	r, _ := newTestRunner(t, ctrl, filepath.Join(t.TempDir(), "flows.db"))

	plan := checkoutPlan()
	report, err := r.Run(context.Background(), "buy shoes", plan)
	require.NoError(t, err)
	assert.False(t, report.Success)
	require.Len(t, report.Results, 3)
	assert.True(t, report.Results[1].Success)
	assert.False(t, report.Results[2].Success)
	assert.Equal(t, step.ReasonExtractionEmpty, report.Results[2].Reason)
}
