package marketplace

import (
	"strconv"
	"strings"
	"testing"
)

const ebayResultPage = `
<html><body>
<ul class="srp-results">
  <li class="s-item">
    <a class="s-item__link" href="https://www.ebay.com/itm/1111?hash=item1">
      <h3 class="s-item__title">Vintage Camera Canon AE-1</h3>
    </a>
    <span class="s-item__price">US $80.00</span>
    <span class="s-item__location">from London</span>
  </li>
  <li class="s-item">
    <a class="s-item__link" href="https://www.ebay.com/itm/2222">
      <h3 class="s-item__title">Retro Game Console</h3>
    </a>
    <span class="s-item__price">$1,250.50</span>
  </li>
  <li class="s-item">
    <h3 class="s-item__title">Promoted tile without a link</h3>
  </li>
</ul>
</body></html>`

func TestEbayExtract(t *testing.T) {
	adapter := NewEbayAdapter()

	raws, err := adapter.Extract([]byte(ebayResultPage))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(raws) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(raws))
	}

	if raws[0].Title != "Vintage Camera Canon AE-1" {
		t.Errorf("unexpected title: %q", raws[0].Title)
	}
	if raws[0].PriceText != "US $80.00" {
		t.Errorf("unexpected price text: %q", raws[0].PriceText)
	}
	if raws[0].Location != "from London" {
		t.Errorf("unexpected location: %q", raws[0].Location)
	}

	candidates := Normalize(adapter, raws)
	if len(candidates) != 2 {
		t.Fatalf("expected 2 normalized candidates, got %d", len(candidates))
	}
	if candidates[0].ExternalID != "1111" {
		t.Errorf("expected external id '1111', got '%s'", candidates[0].ExternalID)
	}
	if candidates[1].Price != 1250.50 {
		t.Errorf("expected price 1250.50, got %v", candidates[1].Price)
	}
}

func TestEbayExtractCapsCandidates(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for i := 0; i < 80; i++ {
		b.WriteString(`<li class="s-item"><a class="s-item__link" href="https://www.ebay.com/itm/` +
			strconv.Itoa(1000+i) + `"><h3 class="s-item__title">Item</h3></a></li>`)
	}
	b.WriteString("</ul></body></html>")

	adapter := NewEbayAdapter()
	raws, err := adapter.Extract([]byte(b.String()))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(raws) != MaxCandidates {
		t.Errorf("expected extraction capped at %d, got %d", MaxCandidates, len(raws))
	}
}

func TestEbaySearchURL(t *testing.T) {
	minPrice, maxPrice := 50.0, 500.0
	searchURL := NewEbayAdapter().SearchURL(Query{
		Keywords: "vintage camera",
		MinPrice: &minPrice,
		MaxPrice: &maxPrice,
	})

	for _, fragment := range []string{"_nkw=vintage+camera", "_sop=10", "_udlo=50", "_udhi=500"} {
		if !strings.Contains(searchURL, fragment) {
			t.Errorf("expected search URL to contain %q, got %q", fragment, searchURL)
		}
	}
}

func TestEbayExternalID(t *testing.T) {
	adapter := NewEbayAdapter()

	tests := []struct {
		url      string
		expected string
	}{
		{"https://www.ebay.com/itm/123456789?hash=item1&var=0", "123456789"},
		{"https://www.ebay.com/itm/123456789/extra", "123456789"},
		{"https://www.ebay.com/b/cameras", ""},
		{"not a url at all ://", ""},
	}

	for _, tt := range tests {
		if got := adapter.ExternalID(tt.url); got != tt.expected {
			t.Errorf("ExternalID(%q) = %q, expected %q", tt.url, got, tt.expected)
		}
	}
}
