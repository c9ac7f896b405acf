package marketplace

import (
	"strings"
	"testing"
)

const gumtreeResultPage = `
<html><body>
<article class="listing-maxi">
  <a class="listing-link" href="/p/cameras/vintage-slr-camera/1420001234">
    <h2>Vintage SLR Camera</h2>
  </a>
  <span class="listing-price">£85.00</span>
  <div class="listing-location">Hackney, London</div>
</article>
<article class="listing-maxi">
  <a class="listing-link" href="https://www.gumtree.com/p/consoles/retro-console/1420005678">
    <h2>Retro Console</h2>
  </a>
  <span class="listing-price">£1,250.50</span>
</article>
</body></html>`

func TestGumtreeExtract(t *testing.T) {
	adapter := NewGumtreeAdapter()

	raws, err := adapter.Extract([]byte(gumtreeResultPage))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(raws) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(raws))
	}

	// Relative links resolve against the site base
	if raws[0].URL != "https://www.gumtree.com/p/cameras/vintage-slr-camera/1420001234" {
		t.Errorf("unexpected URL: %q", raws[0].URL)
	}
	if raws[0].Location != "Hackney, London" {
		t.Errorf("unexpected location: %q", raws[0].Location)
	}

	candidates := Normalize(adapter, raws)
	if candidates[0].ExternalID != "1420001234" {
		t.Errorf("expected external id '1420001234', got '%s'", candidates[0].ExternalID)
	}
	if candidates[0].Currency != "GBP" {
		t.Errorf("expected currency 'GBP', got '%s'", candidates[0].Currency)
	}
	if candidates[1].Price != 1250.50 {
		t.Errorf("expected price 1250.50, got %v", candidates[1].Price)
	}
}

func TestGumtreeSearchURL(t *testing.T) {
	searchURL := NewGumtreeAdapter().SearchURL(Query{Keywords: "vintage camera", Location: "london"})

	for _, fragment := range []string{"q=vintage+camera", "search_location=london"} {
		if !strings.Contains(searchURL, fragment) {
			t.Errorf("expected search URL to contain %q, got %q", fragment, searchURL)
		}
	}
}

func TestCraigslistExtract(t *testing.T) {
	page := `
<html><body>
<li class="result-row">
  <a class="result-title" href="https://newyork.craigslist.org/brk/fuo/d/vintage-camera/7712345678.html">Vintage Camera</a>
  <span class="result-price">$80</span>
  <span class="result-hood">(Brooklyn)</span>
  <time class="result-date" datetime="2026-08-30 14:02"></time>
</li>
</body></html>`

	adapter := NewCraigslistAdapter()
	raws, err := adapter.Extract([]byte(page))
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if len(raws) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(raws))
	}
	if raws[0].Location != "Brooklyn" {
		t.Errorf("unexpected location: %q", raws[0].Location)
	}

	candidates := Normalize(adapter, raws)
	if candidates[0].ExternalID != "7712345678" {
		t.Errorf("expected external id '7712345678', got '%s'", candidates[0].ExternalID)
	}
	if candidates[0].PostedAt == nil {
		t.Error("expected posted-at timestamp to parse")
	}
}
