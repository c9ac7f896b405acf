package marketplace

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// NormalizePrice reduces a price string like "£1,250.50" or "US $80.00"
// to a float. Unparseable input yields 0.0 so a missing price never
// blocks a listing.
func NormalizePrice(priceText string) float64 {
	var b strings.Builder
	for _, r := range priceText {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}

	price, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0.0
	}
	return price
}

// ResolveURL resolves href against base, returning href unchanged when
// it is already absolute or when base cannot be parsed.
func ResolveURL(base, href string) string {
	if href == "" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return href
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// ParsePostedAt parses a listing timestamp in whatever format the page
// uses. Returns nil when the text is empty or unparseable.
func ParsePostedAt(text string) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	postedAt, err := dateparse.ParseAny(text)
	if err != nil {
		return nil
	}

	utc := postedAt.UTC()
	return &utc
}

// Normalize turns raw page candidates into persistable candidates.
// Candidates without a derivable external id are discarded: nothing to
// deduplicate on means nothing to store.
func Normalize(adapter Adapter, raws []RawCandidate) []Candidate {
	candidates := make([]Candidate, 0, len(raws))

	for _, raw := range raws {
		externalID := adapter.ExternalID(raw.URL)
		if externalID == "" {
			continue
		}

		candidates = append(candidates, Candidate{
			Marketplace: adapter.Name(),
			ExternalID:  externalID,
			Title:       strings.TrimSpace(raw.Title),
			Price:       NormalizePrice(raw.PriceText),
			Currency:    adapter.Currency(),
			URL:         raw.URL,
			Location:    strings.TrimSpace(raw.Location),
			ImageURL:    raw.ImageURL,
			SellerName:  strings.TrimSpace(raw.SellerName),
			PostedAt:    ParsePostedAt(raw.PostedAtText),
		})
	}

	return candidates
}
