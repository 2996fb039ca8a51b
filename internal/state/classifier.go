package state

import (
	"net/url"
	"regexp"
	"strings"
)

// PageType is a coarse functional class of a page, inferred from URL and
// title alone. It feeds validation, shortcuts and the multi-region
// extraction decision.
type PageType string

const (
	Homepage      PageType = "HOMEPAGE"
	Listing       PageType = "LISTING"
	ProductDetail PageType = "PRODUCT_DETAIL"
	Checkout      PageType = "CHECKOUT"
	AddressEntry  PageType = "ADDRESS_ENTRY"
	Payment       PageType = "PAYMENT"
	Confirmation  PageType = "CONFIRMATION"
	SearchResults PageType = "SEARCH_RESULTS"
	Unknown       PageType = "UNKNOWN"
)

// ListingLike reports whether the page is expected to render long, lazily
// loaded result lists.
func (t PageType) ListingLike() bool {
	return t == Listing || t == SearchResults
}

// rules are ordered most-specific first; the first hit wins.
var rules = []struct {
	typ PageType
	url *regexp.Regexp
	ttl *regexp.Regexp
}{
	{Confirmation, regexp.MustCompile(`(?i)(confirmation|order[-_]?complete|thank[-_]?you|success)`), regexp.MustCompile(`(?i)(confirm|thank you|order placed)`)},
	{Payment, regexp.MustCompile(`(?i)(payment|billing|pay\b)`), regexp.MustCompile(`(?i)payment`)},
	{AddressEntry, regexp.MustCompile(`(?i)(address|shipping|delivery)`), regexp.MustCompile(`(?i)(address|shipping|delivery)`)},
	{Checkout, regexp.MustCompile(`(?i)(checkout|cart|basket|bag)`), regexp.MustCompile(`(?i)(checkout|cart|basket)`)},
	{ProductDetail, regexp.MustCompile(`(?i)(/product/|/item/|/p/|/dp/|/goods/)`), regexp.MustCompile(`(?i)(buy|price)`)},
	{SearchResults, regexp.MustCompile(`(?i)([?&]q=|[?&]query=|[?&]search=|/search\b)`), regexp.MustCompile(`(?i)(search results|results for)`)},
	{Listing, regexp.MustCompile(`(?i)(/category|/categories|/catalog|/collection|/shop/|/c/|/list\b|/browse)`), regexp.MustCompile(`(?i)(catalog|category|collection)`)},
}

var homepagePathRe = regexp.MustCompile(`^/?(index\.[a-z]+)?$`)

// Classify maps URL and title to a PageType. Title only corroborates; the
// URL pattern is the primary signal.
func Classify(rawURL, title string) PageType {
	for _, r := range rules {
		if r.url.MatchString(rawURL) {
			return r.typ
		}
		if title != "" && r.ttl.MatchString(title) {
			return r.typ
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if homepagePathRe.MatchString(u.Path) && u.RawQuery == "" {
			return Homepage
		}
	}
	return Unknown
}

// Site extracts the host without a leading www. Used as the fragment
// namespace key.
func Site(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(rawURL)), "www.")
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
