package marketplace

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const ebayBaseURL = "https://www.ebay.com"

var _ Adapter = (*EbayAdapter)(nil)

type EbayAdapter struct{}

func NewEbayAdapter() *EbayAdapter {
	return &EbayAdapter{}
}

func (a *EbayAdapter) Name() string     { return "ebay" }
func (a *EbayAdapter) Currency() string { return "USD" }
func (a *EbayAdapter) Rendered() bool   { return false }

func (a *EbayAdapter) SearchURL(query Query) string {
	params := url.Values{}
	params.Set("_nkw", query.Keywords)
	// Sort by newly listed
	params.Set("_sop", "10")
	if query.MinPrice != nil {
		params.Set("_udlo", strconv.FormatFloat(*query.MinPrice, 'f', -1, 64))
	}
	if query.MaxPrice != nil {
		params.Set("_udhi", strconv.FormatFloat(*query.MaxPrice, 'f', -1, 64))
	}

	return ebayBaseURL + "/sch/i.html?" + params.Encode()
}

func (a *EbayAdapter) Extract(payload []byte) ([]RawCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to parse result page: %w", err)
	}

	var raws []RawCandidate
	doc.Find("li.s-item").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		href, ok := item.Find("a.s-item__link").Attr("href")
		if !ok {
			return true
		}

		raws = append(raws, RawCandidate{
			Title:     strings.TrimSpace(item.Find("h3.s-item__title").Text()),
			PriceText: strings.TrimSpace(item.Find("span.s-item__price").Text()),
			URL:       href,
			Location:  strings.TrimSpace(item.Find("span.s-item__location").Text()),
			ImageURL:  item.Find("img.s-item__image-img").AttrOr("src", ""),
		})

		return len(raws) < MaxCandidates
	})

	return raws, nil
}

// ExternalID extracts the item id from an eBay listing URL, the path
// segment following "/itm/" with any query string stripped.
func (a *EbayAdapter) ExternalID(listingURL string) string {
	parsed, err := url.Parse(listingURL)
	if err != nil {
		return ""
	}

	const marker = "/itm/"
	idx := strings.Index(parsed.Path, marker)
	if idx < 0 {
		return ""
	}

	id := parsed.Path[idx+len(marker):]
	if slash := strings.Index(id, "/"); slash >= 0 {
		id = id[:slash]
	}
	return id
}
