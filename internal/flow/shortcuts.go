package flow

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ssvmg10-debug/UI-automation/internal/state"
)

// URLShortcut maps a target phrase to a site path: "open cart" can become
// a direct hop to /cart without touching the DOM.
type URLShortcut struct {
	Contains string `yaml:"contains"`
	Path     string `yaml:"path"`
}

// StateShortcut additionally conditions on the current page type.
type StateShortcut struct {
	From     state.PageType `yaml:"from"`
	Contains string         `yaml:"contains"`
	Path     string         `yaml:"path"`
}

// Shortcuts is the static shortcut table, usually loaded from YAML.
type Shortcuts struct {
	URLs   []URLShortcut   `yaml:"urls"`
	States []StateShortcut `yaml:"states"`
}

// DefaultShortcuts covers the common storefront destinations.
func DefaultShortcuts() Shortcuts {
	return Shortcuts{
		URLs: []URLShortcut{
			{Contains: "cart", Path: "/cart"},
			{Contains: "basket", Path: "/cart"},
			{Contains: "checkout", Path: "/checkout"},
			{Contains: "sign in", Path: "/login"},
			{Contains: "log in", Path: "/login"},
		},
		States: []StateShortcut{
			{From: state.Checkout, Contains: "continue", Path: "/checkout/address"},
			{From: state.AddressEntry, Contains: "continue", Path: "/checkout/payment"},
		},
	}
}

func LoadShortcuts(path string) (Shortcuts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Shortcuts{}, fmt.Errorf("read shortcuts: %w", err)
	}
	var s Shortcuts
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Shortcuts{}, fmt.Errorf("parse shortcuts: %w", err)
	}
	return s, nil
}

// ResolveURL returns an absolute URL when a URL shortcut applies to the
// target phrase, empty otherwise.
func (s Shortcuts) ResolveURL(currentURL, target string) string {
	t := NormalizeTarget(target)
	if t == "" {
		return ""
	}
	for _, u := range s.URLs {
		if strings.Contains(t, NormalizeTarget(u.Contains)) {
			return absolutize(currentURL, u.Path)
		}
	}
	return ""
}

// ResolveState returns an absolute URL when a state shortcut applies from
// the given page type.
func (s Shortcuts) ResolveState(currentURL string, pageType state.PageType, target string) string {
	t := NormalizeTarget(target)
	if t == "" {
		return ""
	}
	for _, sc := range s.States {
		if sc.From == pageType && strings.Contains(t, NormalizeTarget(sc.Contains)) {
			return absolutize(currentURL, sc.Path)
		}
	}
	return ""
}

func absolutize(currentURL, path string) string {
	u, err := url.Parse(currentURL)
	if err != nil || u.Host == "" {
		return ""
	}
	ref, err := url.Parse(path)
	if err != nil {
		return ""
	}
	return u.ResolveReference(ref).String()
}
