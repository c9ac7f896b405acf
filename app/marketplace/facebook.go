package marketplace

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const facebookBaseURL = "https://www.facebook.com"

var facebookItemPattern = regexp.MustCompile(`/marketplace/item/(\d+)`)

var _ Adapter = (*FacebookAdapter)(nil)

// FacebookAdapter scrapes Facebook Marketplace search results. Pages are
// built client-side, so the adapter requires rendered payloads and reads
// listing fields out of anonymous span soup.
type FacebookAdapter struct{}

func NewFacebookAdapter() *FacebookAdapter {
	return &FacebookAdapter{}
}

func (a *FacebookAdapter) Name() string     { return "facebook" }
func (a *FacebookAdapter) Currency() string { return "GBP" }
func (a *FacebookAdapter) Rendered() bool   { return true }

// SearchURL returns the marketplace landing page. The query itself is
// typed into the page's search input by the browser session; putting it
// in the URL skips the interaction the site expects from a visitor.
func (a *FacebookAdapter) SearchURL(Query) string {
	return facebookBaseURL + "/marketplace/"
}

func (a *FacebookAdapter) Extract(payload []byte) ([]RawCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to parse result page: %w", err)
	}

	seen := make(map[string]bool)
	var raws []RawCandidate

	doc.Find(`a[href*="/marketplace/item/"]`).EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		href, ok := anchor.Attr("href")
		if !ok || !facebookItemPattern.MatchString(href) {
			return true
		}

		resolved := ResolveURL(facebookBaseURL, href)
		if seen[resolved] {
			return true
		}
		seen[resolved] = true

		var tokens []string
		anchor.Find("span").Each(func(_ int, span *goquery.Selection) {
			if text := strings.TrimSpace(span.Text()); text != "" {
				tokens = append(tokens, text)
			}
		})

		title, priceText, location := assignListingFields(tokens)

		raws = append(raws, RawCandidate{
			Title:     title,
			PriceText: priceText,
			URL:       resolved,
			Location:  location,
			ImageURL:  anchor.Find("img").First().AttrOr("src", ""),
		})

		return len(raws) < MaxCandidates
	})

	return raws, nil
}

// ExternalID derives a stable id from a marketplace item URL. Ids are
// prefixed to keep them distinct from other marketplaces' numeric ids.
func (a *FacebookAdapter) ExternalID(listingURL string) string {
	match := facebookItemPattern.FindStringSubmatch(listingURL)
	if match == nil {
		return ""
	}
	return "fb_" + match[1]
}
