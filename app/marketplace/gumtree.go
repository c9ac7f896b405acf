package marketplace

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const gumtreeBaseURL = "https://www.gumtree.com"

var _ Adapter = (*GumtreeAdapter)(nil)

type GumtreeAdapter struct{}

func NewGumtreeAdapter() *GumtreeAdapter {
	return &GumtreeAdapter{}
}

func (a *GumtreeAdapter) Name() string     { return "gumtree" }
func (a *GumtreeAdapter) Currency() string { return "GBP" }
func (a *GumtreeAdapter) Rendered() bool   { return false }

func (a *GumtreeAdapter) SearchURL(query Query) string {
	params := url.Values{}
	params.Set("q", query.Keywords)
	if query.Location != "" {
		params.Set("search_location", query.Location)
	}

	return gumtreeBaseURL + "/search?" + params.Encode()
}

func (a *GumtreeAdapter) Extract(payload []byte) ([]RawCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to parse result page: %w", err)
	}

	var raws []RawCandidate
	doc.Find("article.listing-maxi").EachWithBreak(func(_ int, article *goquery.Selection) bool {
		// Listing links are site-relative
		href, ok := article.Find("a.listing-link").Attr("href")
		if !ok {
			return true
		}

		raws = append(raws, RawCandidate{
			Title:     strings.TrimSpace(article.Find("h2").First().Text()),
			PriceText: strings.TrimSpace(article.Find("span.listing-price").Text()),
			URL:       ResolveURL(gumtreeBaseURL, href),
			Location:  strings.TrimSpace(article.Find("div.listing-location").Text()),
			ImageURL:  article.Find("img").First().AttrOr("src", ""),
		})

		return len(raws) < MaxCandidates
	})

	return raws, nil
}

// ExternalID extracts the ad id from a gumtree listing URL, the last
// non-empty path segment.
func (a *GumtreeAdapter) ExternalID(listingURL string) string {
	parsed, err := url.Parse(listingURL)
	if err != nil {
		return ""
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return ""
	}

	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}
