package marketplace

import (
	"sort"
	"time"
)

// MaxCandidates caps how many listings a single extraction may yield.
const MaxCandidates = 50

// Query carries the search parameters an adapter turns into a request URL.
type Query struct {
	Keywords string
	Location string
	MinPrice *float64
	MaxPrice *float64
	Filters  map[string]string
}

// RawCandidate is one listing as it appears on a result page, before
// normalization. URL is absolute; PriceText is the verbatim page text.
type RawCandidate struct {
	Title        string
	PriceText    string
	URL          string
	Location     string
	ImageURL     string
	SellerName   string
	PostedAtText string
}

// Candidate is a normalized listing ready for persistence. Values are
// copied, never mutated after construction.
type Candidate struct {
	Marketplace string
	ExternalID  string
	Title       string
	Price       float64
	Currency    string
	URL         string
	Location    string
	ImageURL    string
	SellerName  string
	PostedAt    *time.Time
}

// Adapter describes one marketplace: how to build a search URL, how to
// pull listing candidates out of a result page, and how to derive the
// marketplace-scoped external id from a listing URL.
type Adapter interface {
	Name() string
	Currency() string
	// Rendered reports whether result pages require a browser session
	// instead of a plain HTTP fetch.
	Rendered() bool
	SearchURL(query Query) string
	Extract(payload []byte) ([]RawCandidate, error)
	ExternalID(listingURL string) string
}

type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	byName := make(map[string]Adapter, len(adapters))
	for _, adapter := range adapters {
		byName[adapter.Name()] = adapter
	}
	return &Registry{adapters: byName}
}

// DefaultRegistry returns a registry with every built-in marketplace.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewEbayAdapter(),
		NewCraigslistAdapter(),
		NewGumtreeAdapter(),
		NewFacebookAdapter(),
	)
}

func (r *Registry) Get(name string) (Adapter, bool) {
	adapter, ok := r.adapters[name]
	return adapter, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
