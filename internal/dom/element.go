package dom

import (
	"fmt"
	"math"
	"strings"

	"github.com/ssvmg10-debug/UI-automation/internal/browser"
)

// Role is the coarse interaction class of an element.
type Role string

const (
	RoleButton  Role = "button"
	RoleLink    Role = "link"
	RoleInput   Role = "input"
	RoleSelect  Role = "select"
	RoleGeneric Role = "generic"
)

// Element is the extracted metadata of one interactable node. It is a plain
// value; the live handle travels separately in Candidate.
type Element struct {
	Tag         string       `json:"tag"`
	Role        Role         `json:"role"`
	Text        string       `json:"text"`
	Label       string       `json:"label,omitempty"`
	Placeholder string       `json:"placeholder,omitempty"`
	ParentText  string       `json:"parent_text,omitempty"`
	Region      string       `json:"region,omitempty"`
	Href        string       `json:"href,omitempty"`
	InputType   string       `json:"input_type,omitempty"`
	Box         browser.Rect `json:"box"`
	Visible     bool         `json:"visible"`
}

// Candidate pairs element metadata with a directly actionable locator.
type Candidate struct {
	Element Element
	Locator browser.Locator
}

// CombinedText is the haystack used for fuzzy matching: own text plus
// label, placeholder and nearby parent text.
func (e Element) CombinedText() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{e.Text, e.Label, e.Placeholder, e.ParentText} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// DisplayName is a short human-readable descriptor for logs and reports.
func (e Element) DisplayName() string {
	if s := strings.TrimSpace(e.Text); s != "" {
		return truncate(s, 60)
	}
	if s := strings.TrimSpace(e.Label); s != "" {
		return truncate(s, 60)
	}
	if s := strings.TrimSpace(e.Placeholder); s != "" {
		return truncate(s, 60)
	}
	return fmt.Sprintf("<%s>", e.Tag)
}

func (e Element) Area() float64 { return e.Box.Area() }

// IdentityKey is a stable dedupe key: prefix of the text plus a rounded
// bounding box. Good enough to collapse the same node seen in several
// scroll regions.
func (e Element) IdentityKey() string {
	return fmt.Sprintf("%s|%s|%d,%d,%d,%d",
		e.Tag,
		truncate(strings.ToLower(strings.TrimSpace(e.Text)), 100),
		int(math.Round(e.Box.X/10)),
		int(math.Round(e.Box.Y/10)),
		int(math.Round(e.Box.Width/10)),
		int(math.Round(e.Box.Height/10)),
	)
}

func classifyRole(tag, ariaRole, inputType string) Role {
	switch strings.ToLower(ariaRole) {
	case "button":
		return RoleButton
	case "link":
		return RoleLink
	case "textbox", "searchbox", "combobox":
		return RoleInput
	}
	switch strings.ToLower(tag) {
	case "button":
		return RoleButton
	case "a":
		return RoleLink
	case "select":
		return RoleSelect
	case "textarea":
		return RoleInput
	case "input":
		switch strings.ToLower(inputType) {
		case "submit", "button", "reset", "image":
			return RoleButton
		default:
			return RoleInput
		}
	}
	return RoleGeneric
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
