package dom

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssvmg10-debug/UI-automation/internal/browser"
)

const (
	clickableSelector = "a, button, [role='button'], [role='link'], [onclick], input[type='submit'], input[type='button']"
	inputSelector     = "input:not([type='hidden']), textarea, select, [role='textbox'], [role='combobox'], [contenteditable='true']"

	regionScript = `el => {
		const r = el.closest("header, nav, main, footer, aside, form, [role='navigation'], [role='main'], [role='banner'], [role='contentinfo'], [role='search'], [role='dialog']");
		if (!r) return "";
		return (r.getAttribute("role") || r.tagName.toLowerCase());
	}`

	parentTextScript = `el => {
		const p = el.parentElement;
		if (!p) return "";
		const t = (p.innerText || p.textContent || "").trim().replace(/\s+/g, " ");
		return t.slice(0, 160);
	}`
)

// ExtractorConfig bounds the extraction pass.
type ExtractorConfig struct {
	MaxClickables     int
	MaxInputs         int
	PerElementTimeout time.Duration
	ScrollSettle      time.Duration
	// MultiRegion decides whether a page gets the three-region scroll
	// capture. Nil disables it.
	MultiRegion func(url string) bool
}

func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		MaxClickables:     350,
		MaxInputs:         50,
		PerElementTimeout: 2 * time.Second,
		ScrollSettle:      400 * time.Millisecond,
	}
}

// Extractor walks the live page and returns candidates with actionable
// locators. An empty result is a normal outcome, not an error.
type Extractor struct {
	ctrl browser.Controller
	cfg  ExtractorConfig
	log  zerolog.Logger
}

func NewExtractor(ctrl browser.Controller, cfg ExtractorConfig, log zerolog.Logger) *Extractor {
	if cfg.MaxClickables <= 0 {
		cfg.MaxClickables = 350
	}
	if cfg.MaxInputs <= 0 {
		cfg.MaxInputs = 50
	}
	if cfg.PerElementTimeout <= 0 {
		cfg.PerElementTimeout = 2 * time.Second
	}
	return &Extractor{ctrl: ctrl, cfg: cfg, log: log.With().Str("component", "extractor").Logger()}
}

// Clickables extracts clickable candidates. Listing-like pages get a
// top/middle/bottom scroll capture so lazily rendered rows are seen.
func (x *Extractor) Clickables(ctx context.Context) ([]Candidate, error) {
	url, err := x.ctrl.URL(ctx)
	if err != nil {
		return nil, err
	}
	if x.cfg.MultiRegion != nil && x.cfg.MultiRegion(url) {
		return x.multiRegionClickables(ctx)
	}
	cands, err := x.collect(ctx, clickableSelector, x.cfg.MaxClickables)
	if err != nil {
		return nil, err
	}
	x.log.Debug().Int("count", len(cands)).Str("url", url).Msg("extracted clickables")
	return cands, nil
}

// Inputs extracts fillable candidates.
func (x *Extractor) Inputs(ctx context.Context) ([]Candidate, error) {
	cands, err := x.collect(ctx, inputSelector, x.cfg.MaxInputs)
	if err != nil {
		return nil, err
	}
	x.log.Debug().Int("count", len(cands)).Msg("extracted inputs")
	return cands, nil
}

func (x *Extractor) multiRegionClickables(ctx context.Context) ([]Candidate, error) {
	height, err := x.ctrl.ScrollHeight(ctx)
	if err != nil {
		height = 0
	}
	seen := make(map[string]struct{})
	var out []Candidate
	for _, frac := range []float64{0, 0.5, 1.0} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if height > 0 {
			if err := x.ctrl.ScrollTo(ctx, height*frac); err != nil {
				x.log.Debug().Err(err).Float64("fraction", frac).Msg("scroll failed")
				continue
			}
			if x.cfg.ScrollSettle > 0 {
				time.Sleep(x.cfg.ScrollSettle)
			}
		}
		batch, err := x.collect(ctx, clickableSelector, x.cfg.MaxClickables)
		if err != nil {
			return nil, err
		}
		for _, c := range batch {
			key := c.Element.IdentityKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, c)
		}
		if height == 0 {
			break
		}
	}
	// Back to the top so coordinates match what ranking assumes.
	_ = x.ctrl.ScrollTo(ctx, 0)
	if len(out) > x.cfg.MaxClickables {
		out = out[:x.cfg.MaxClickables]
	}
	x.log.Debug().Int("count", len(out)).Msg("extracted clickables (multi-region)")
	return out, nil
}

func (x *Extractor) collect(ctx context.Context, selector string, limit int) ([]Candidate, error) {
	locs, err := x.ctrl.Query(ctx, selector)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, min(len(locs), limit))
	for _, loc := range locs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// The visible-element cap, not the raw node cap: invisible nodes
		// are skipped before counting.
		if len(out) >= limit {
			break
		}
		cand, ok := x.harvest(ctx, loc)
		if !ok {
			continue
		}
		out = append(out, cand)
	}
	return out, nil
}

// harvest reads one element's metadata under the per-element deadline.
// A slow or detached node is skipped, never fatal.
func (x *Extractor) harvest(ctx context.Context, loc browser.Locator) (Candidate, bool) {
	elCtx, cancel := context.WithTimeout(ctx, x.cfg.PerElementTimeout)
	defer cancel()

	visible, err := loc.IsVisible(elCtx)
	if err != nil || !visible {
		return Candidate{}, false
	}
	box, err := loc.BoundingBox(elCtx)
	if err != nil || box == nil {
		return Candidate{}, false
	}
	text, err := loc.InnerText(elCtx)
	if err != nil {
		text = ""
	}
	el := Element{
		Text:    normalizeWhitespace(text),
		Box:     *box,
		Visible: true,
	}
	if v, err := loc.Evaluate(elCtx, "el => el.tagName.toLowerCase()"); err == nil {
		if s, ok := v.(string); ok {
			el.Tag = s
		}
	}
	el.Label = x.attrOrEmpty(elCtx, loc, "aria-label")
	el.Placeholder = x.attrOrEmpty(elCtx, loc, "placeholder")
	el.Href = x.attrOrEmpty(elCtx, loc, "href")
	el.InputType = x.attrOrEmpty(elCtx, loc, "type")
	ariaRole := x.attrOrEmpty(elCtx, loc, "role")
	el.Role = classifyRole(el.Tag, ariaRole, el.InputType)

	if v, err := loc.Evaluate(elCtx, regionScript); err == nil {
		if s, ok := v.(string); ok {
			el.Region = s
		}
	}
	if el.Text == "" || len(el.Text) < 3 {
		if v, err := loc.Evaluate(elCtx, parentTextScript); err == nil {
			if s, ok := v.(string); ok {
				el.ParentText = normalizeWhitespace(s)
			}
		}
	}
	return Candidate{Element: el, Locator: loc}, true
}

func (x *Extractor) attrOrEmpty(ctx context.Context, loc browser.Locator, name string) string {
	val, err := loc.GetAttribute(ctx, name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(val)
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
