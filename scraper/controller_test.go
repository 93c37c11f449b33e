package scraper

import (
	"context"
	"errors"
	"sort"
	"testing"

	"proplens/models"
)

// fakeScraper is a scriptable adapter for controller tests.
type fakeScraper struct {
	name        string
	initErr     error
	initPanics  bool
	searchErr   error
	searchPanic bool
	listings    []models.Listing
	detail      *models.Listing
	cleanedUp   bool

	lastCriteria models.Criteria
}

func (f *fakeScraper) Name() string { return f.name }

func (f *fakeScraper) Initialize(ctx context.Context) error {
	if f.initPanics {
		panic("boom in initialize")
	}
	return f.initErr
}

func (f *fakeScraper) Search(ctx context.Context, criteria models.Criteria) ([]models.Listing, error) {
	f.lastCriteria = criteria
	if f.searchPanic {
		panic("boom in search")
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.listings, nil
}

func (f *fakeScraper) GetListingDetails(ctx context.Context, listingID string) (*models.Listing, error) {
	return f.detail, nil
}

func (f *fakeScraper) Cleanup() error {
	f.cleanedUp = true
	return nil
}

func priced(id, source string, amount float64) models.Listing {
	return models.Listing{
		ID:     id,
		Source: source,
		Price:  models.Price{Amount: amount, Currency: models.DefaultCurrency},
	}
}

func TestControllerInitializeIsolatesFailures(t *testing.T) {
	good := &fakeScraper{name: "good"}
	bad := &fakeScraper{name: "bad", initErr: errors.New("no browser")}
	panicky := &fakeScraper{name: "panicky", initPanics: true}

	c := NewController(good, bad, panicky)
	c.Initialize(context.Background())

	active := c.ActiveScrapers()
	if len(active) != 1 || active[0] != "good" {
		t.Fatalf("active = %v, want [good]", active)
	}

	status := c.ScraperStatus()
	if !status["good"] || status["bad"] || status["panicky"] {
		t.Fatalf("unexpected status map: %v", status)
	}
}

func TestControllerSearchMergesAndSorts(t *testing.T) {
	a := &fakeScraper{name: "a", listings: []models.Listing{
		priced("a1", "a", 550000),
		priced("a2", "a", 425000),
	}}
	b := &fakeScraper{name: "b", listings: []models.Listing{
		priced("b1", "b", 310000),
		priced("b2", "b", 890000),
	}}
	failing := &fakeScraper{name: "failing", searchErr: errors.New("site down")}

	c := NewController(a, b, failing)
	c.Initialize(context.Background())

	results := c.Search(context.Background(), models.Criteria{Location: "London"}, 0)
	if len(results) != 4 {
		t.Fatalf("got %d listings, want 4", len(results))
	}
	if !sort.SliceIsSorted(results, func(i, j int) bool {
		return results[i].Price.Amount < results[j].Price.Amount
	}) {
		t.Errorf("results not sorted by price ascending: %+v", results)
	}
	if results[0].ID != "b1" {
		t.Errorf("cheapest listing = %s, want b1", results[0].ID)
	}
}

func TestControllerSearchSurvivesPanic(t *testing.T) {
	ok := &fakeScraper{name: "ok", listings: []models.Listing{priced("x1", "ok", 100000)}}
	panicky := &fakeScraper{name: "panicky", searchPanic: true}

	c := NewController(ok, panicky)
	c.Initialize(context.Background())

	results := c.Search(context.Background(), models.Criteria{Location: "Leeds"}, 0)
	if len(results) != 1 || results[0].ID != "x1" {
		t.Fatalf("got %+v, want the single healthy result", results)
	}
}

func TestControllerSearchInjectsMaxResults(t *testing.T) {
	s := &fakeScraper{name: "s"}
	c := NewController(s)
	c.Initialize(context.Background())

	c.Search(context.Background(), models.Criteria{Location: "Bristol"}, 25)
	if s.lastCriteria.MaxResults != 25 {
		t.Fatalf("adapter saw MaxResults = %d, want 25", s.lastCriteria.MaxResults)
	}
	if s.lastCriteria.Location != "Bristol" {
		t.Fatalf("adapter saw Location = %q, want Bristol", s.lastCriteria.Location)
	}
}

func TestControllerSearchNoActiveScrapers(t *testing.T) {
	broken := &fakeScraper{name: "broken", initErr: errors.New("nope")}
	c := NewController(broken)
	c.Initialize(context.Background())

	if results := c.Search(context.Background(), models.Criteria{Location: "York"}, 0); len(results) != 0 {
		t.Fatalf("got %d listings from an empty active set, want 0", len(results))
	}
}

func TestControllerGetListingDetails(t *testing.T) {
	want := priced("d1", "a", 200000)
	a := &fakeScraper{name: "a", detail: &want}
	b := &fakeScraper{name: "b", initErr: errors.New("down")}

	c := NewController(a, b)
	c.Initialize(context.Background())

	got := c.GetListingDetails(context.Background(), "d1", "a")
	if got == nil || got.ID != "d1" {
		t.Fatalf("got %+v, want listing d1", got)
	}

	if got := c.GetListingDetails(context.Background(), "d1", "b"); got != nil {
		t.Fatal("expected nil from an inactive scraper")
	}
	if got := c.GetListingDetails(context.Background(), "d1", "missing"); got != nil {
		t.Fatal("expected nil from an unknown scraper")
	}
}

func TestControllerCleanupIsTerminal(t *testing.T) {
	a := &fakeScraper{name: "a"}
	c := NewController(a)
	c.Initialize(context.Background())
	c.Cleanup()

	if !a.cleanedUp {
		t.Fatal("cleanup was not called")
	}
	if len(c.ActiveScrapers()) != 0 {
		t.Fatal("cleaned up scraper still active")
	}
	if got := c.GetListingDetails(context.Background(), "d1", "a"); got != nil {
		t.Fatal("cleaned up scraper served a details request")
	}
}
