package exec

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssvmg10-debug/UI-automation/internal/browser"
)

const overlaySelector = "[role='dialog'], [aria-modal='true'], .modal, .overlay, .popup, .cookie-banner, [class*='cookie'], [id*='cookie-consent']"

var closeControlSelectors = []string{
	"[aria-label='Close']",
	"[aria-label='close']",
	"button.close",
	"[class*='close-button']",
	"[data-dismiss]",
}

// Dismisser clears modal overlays that intercept clicks. Escalation is
// bounded: Escape key, then a click outside, then known close controls.
type Dismisser struct {
	ctrl        browser.Controller
	maxAttempts int
	settle      time.Duration
	log         zerolog.Logger
}

func NewDismisser(ctrl browser.Controller, log zerolog.Logger) *Dismisser {
	return &Dismisser{
		ctrl:        ctrl,
		maxAttempts: 2,
		settle:      300 * time.Millisecond,
		log:         log.With().Str("component", "overlay").Logger(),
	}
}

// Present reports whether a visible overlay is on the page.
func (d *Dismisser) Present(ctx context.Context) bool {
	n, err := d.ctrl.CountVisible(ctx, overlaySelector)
	return err == nil && n > 0
}

// Dismiss tries to clear overlays and reports whether the page ended up
// overlay-free.
func (d *Dismisser) Dismiss(ctx context.Context) bool {
	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return false
		}
		if !d.Present(ctx) {
			return true
		}
		d.log.Debug().Int("attempt", attempt+1).Msg("overlay detected, dismissing")

		if err := d.ctrl.PressKey(ctx, "Escape"); err == nil {
			time.Sleep(d.settle)
			if !d.Present(ctx) {
				return true
			}
		}
		if err := d.ctrl.MouseClick(ctx, 5, 5); err == nil {
			time.Sleep(d.settle)
			if !d.Present(ctx) {
				return true
			}
		}
		for _, sel := range closeControlSelectors {
			locs, err := d.ctrl.Query(ctx, sel)
			if err != nil || len(locs) == 0 {
				continue
			}
			if visible, err := locs[0].IsVisible(ctx); err != nil || !visible {
				continue
			}
			if err := locs[0].Click(ctx); err == nil {
				time.Sleep(d.settle)
				break
			}
		}
	}
	return !d.Present(ctx)
}
