package marketplace

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const craigslistBaseURL = "https://newyork.craigslist.org"

var _ Adapter = (*CraigslistAdapter)(nil)

type CraigslistAdapter struct{}

func NewCraigslistAdapter() *CraigslistAdapter {
	return &CraigslistAdapter{}
}

func (a *CraigslistAdapter) Name() string     { return "craigslist" }
func (a *CraigslistAdapter) Currency() string { return "USD" }
func (a *CraigslistAdapter) Rendered() bool   { return false }

func (a *CraigslistAdapter) SearchURL(query Query) string {
	params := url.Values{}
	params.Set("query", query.Keywords)
	params.Set("sort", "date")
	if query.MinPrice != nil {
		params.Set("min_price", strconv.FormatFloat(*query.MinPrice, 'f', -1, 64))
	}
	if query.MaxPrice != nil {
		params.Set("max_price", strconv.FormatFloat(*query.MaxPrice, 'f', -1, 64))
	}

	return craigslistBaseURL + "/search/sss?" + params.Encode()
}

func (a *CraigslistAdapter) Extract(payload []byte) ([]RawCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to parse result page: %w", err)
	}

	var raws []RawCandidate
	doc.Find("li.result-row").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		titleLink := row.Find("a.result-title")
		href, ok := titleLink.Attr("href")
		if !ok {
			return true
		}

		raws = append(raws, RawCandidate{
			Title:        strings.TrimSpace(titleLink.Text()),
			PriceText:    strings.TrimSpace(row.Find("span.result-price").First().Text()),
			URL:          ResolveURL(craigslistBaseURL, href),
			Location:     strings.Trim(strings.TrimSpace(row.Find("span.result-hood").Text()), "()"),
			PostedAtText: row.Find("time.result-date").AttrOr("datetime", ""),
		})

		return len(raws) < MaxCandidates
	})

	return raws, nil
}

// ExternalID extracts the post id from a craigslist listing URL, the
// last path segment with the ".html" suffix stripped.
func (a *CraigslistAdapter) ExternalID(listingURL string) string {
	parsed, err := url.Parse(listingURL)
	if err != nil {
		return ""
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	last := segments[len(segments)-1]
	return strings.TrimSuffix(last, ".html")
}
