package state

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/ssvmg10-debug/UI-automation/internal/browser"
)

// Fingerprint is a compact snapshot of observable page state, captured
// before and after every action to judge whether anything really happened.
type Fingerprint struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	ContentHash string   `json:"content_hash"`
	PageType    PageType `json:"page_type"`
}

// Capture reads the current page state. Content hashing uses the full HTML
// so overlay toggles and in-place rerenders register as changes.
func Capture(ctx context.Context, ctrl browser.Controller) (Fingerprint, error) {
	url, err := ctrl.URL(ctx)
	if err != nil {
		return Fingerprint{}, err
	}
	title, err := ctrl.Title(ctx)
	if err != nil {
		title = ""
	}
	content, err := ctrl.Content(ctx)
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{
		URL:         url,
		Title:       title,
		ContentHash: HashContent(content),
		PageType:    Classify(url, title),
	}, nil
}

func HashContent(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

func (f Fingerprint) URLChanged(other Fingerprint) bool {
	return normURL(f.URL) != normURL(other.URL)
}

func (f Fingerprint) ContentChanged(other Fingerprint) bool {
	return f.ContentHash != other.ContentHash
}

func (f Fingerprint) TitleChanged(other Fingerprint) bool {
	return strings.TrimSpace(f.Title) != strings.TrimSpace(other.Title)
}

func (f Fingerprint) Same(other Fingerprint) bool {
	return !f.URLChanged(other) && !f.ContentChanged(other) && !f.TitleChanged(other)
}

// LooksLikeError reports an obvious dead end: not-found and server error
// pages that should never count as progress.
func (f Fingerprint) LooksLikeError() bool {
	t := strings.ToLower(f.Title)
	u := strings.ToLower(f.URL)
	for _, marker := range []string{"404", "not found", "error", "access denied", "forbidden"} {
		if strings.Contains(t, marker) {
			return true
		}
	}
	return strings.Contains(u, "/404") || strings.Contains(u, "error=")
}

func normURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}
