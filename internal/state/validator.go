package state

import (
	"strings"

	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

// Change tags what moved between two fingerprints. Purely informational;
// validity is the boolean.
type Change string

const (
	ChangeNone    Change = "none"
	ChangeURL     Change = "url_changed"
	ChangeContent Change = "content_changed"
	ChangeTitle   Change = "title_changed"
)

// Validator decides whether an observed before/after pair is consistent
// with the action that ran. NAVIGATE demands a URL change (or an explicit
// re-request of the current URL); CLICK and SELECT accept any observable
// change; TYPE is judged by value read-back, not fingerprints.
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

func (v *Validator) Validate(before, after Fingerprint, kind step.Kind, target string) (bool, Change) {
	change := diff(before, after)
	switch kind {
	case step.Navigate:
		if before.URLChanged(after) {
			return true, ChangeURL
		}
		// Re-requesting the page you are already on is a legitimate no-op.
		if normURL(target) != "" && normURL(target) == normURL(before.URL) {
			return true, change
		}
		return false, change
	case step.Click, step.Select:
		return change != ChangeNone, change
	case step.Wait:
		return true, change
	default:
		return change != ChangeNone, change
	}
}

// TypedValueReflects checks a TYPE step by read-back: the input's value
// must contain what was typed, modulo case and surrounding space.
func (v *Validator) TypedValueReflects(typed, readBack string) bool {
	t := strings.ToLower(strings.TrimSpace(typed))
	r := strings.ToLower(strings.TrimSpace(readBack))
	if t == "" {
		return r == ""
	}
	return strings.Contains(r, t)
}

func diff(before, after Fingerprint) Change {
	switch {
	case before.URLChanged(after):
		return ChangeURL
	case before.ContentChanged(after):
		return ChangeContent
	case before.TitleChanged(after):
		return ChangeTitle
	default:
		return ChangeNone
	}
}
