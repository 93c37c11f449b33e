package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"proplens/models"
)

// State tracks an adapter's position in its lifecycle. Registered
// adapters become Active on successful initialization or Failed on
// error; CleanedUp is terminal and an adapter is never reused after
// it.
type State string

const (
	StateRegistered   State = "registered"
	StateInitializing State = "initializing"
	StateActive       State = "active"
	StateFailed       State = "failed"
	StateCleanedUp    State = "cleaned_up"
)

type registration struct {
	scraper Scraper
	state   State
}

// Controller owns a name-keyed registry of adapters and coordinates
// searches across whichever subset initialized successfully. The
// registry only mutates during Initialize and Cleanup; callers must
// not interleave those with an in-flight Search.
type Controller struct {
	mu       sync.Mutex
	registry map[string]*registration
	log      *slog.Logger
}

func NewController(scrapers ...Scraper) *Controller {
	registry := make(map[string]*registration, len(scrapers))
	for _, s := range scrapers {
		registry[s.Name()] = &registration{scraper: s, state: StateRegistered}
	}
	return &Controller{
		registry: registry,
		log:      slog.With("component", "controller"),
	}
}

// Initialize attempts to initialize every registered adapter
// concurrently. A failing adapter is logged and excluded from the
// active set; the controller carries on with whatever subset
// succeeded, even if that subset is empty.
func (c *Controller) Initialize(ctx context.Context) {
	c.mu.Lock()
	var pending []*registration
	for _, reg := range c.registry {
		if reg.state != StateRegistered {
			continue
		}
		reg.state = StateInitializing
		pending = append(pending, reg)
	}
	c.mu.Unlock()

	var wg sync.WaitGroup
	for _, reg := range pending {
		wg.Add(1)
		go func(reg *registration) {
			defer wg.Done()
			name := reg.scraper.Name()

			err := c.initOne(ctx, reg.scraper)
			c.mu.Lock()
			if err != nil {
				reg.state = StateFailed
			} else {
				reg.state = StateActive
			}
			c.mu.Unlock()

			if err != nil {
				c.log.Error("failed to initialize scraper", "scraper", name, "error", err)
			} else {
				c.log.Info("scraper initialized", "scraper", name)
			}
		}(reg)
	}
	wg.Wait()

	if len(c.ActiveScrapers()) == 0 {
		c.log.Warn("no scrapers initialized successfully")
	}
}

func (c *Controller) initOne(ctx context.Context, s Scraper) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return s.Initialize(ctx)
}

// Search fans the criteria out to every active adapter concurrently
// and merges what comes back, sorted ascending by price amount. Each
// task gets its own copy of the criteria, with maxResults injected
// when positive. A task that fails or panics is logged and
// contributes nothing; the other tasks' results are unaffected.
// Results are not deduplicated across adapters: different sources
// may list the same property under different IDs.
func (c *Controller) Search(ctx context.Context, criteria models.Criteria, maxResults int) []models.Listing {
	active := c.activeSet()
	if len(active) == 0 {
		c.log.Warn("search requested with no active scrapers")
		return nil
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		merged []models.Listing
	)

	for _, s := range active {
		wg.Add(1)
		go func(s Scraper) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					c.log.Error("search panicked", "scraper", s.Name(), "panic", r)
				}
			}()

			taskCriteria := criteria
			if maxResults > 0 {
				taskCriteria.MaxResults = maxResults
			}

			listings, err := s.Search(ctx, taskCriteria)
			if err != nil {
				c.log.Error("search failed", "scraper", s.Name(), "error", err)
				return
			}

			mu.Lock()
			merged = append(merged, listings...)
			mu.Unlock()
		}(s)
	}
	wg.Wait()

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Price.Amount < merged[j].Price.Amount
	})

	return merged
}

// GetListingDetails dispatches to the named active adapter. A missing
// or inactive adapter, and any failure inside the adapter, yields a
// logged absent result.
func (c *Controller) GetListingDetails(ctx context.Context, listingID, source string) *models.Listing {
	c.mu.Lock()
	reg, ok := c.registry[source]
	if !ok || reg.state != StateActive {
		c.mu.Unlock()
		c.log.Warn("details requested from inactive scraper", "scraper", source, "listing_id", listingID)
		return nil
	}
	s := reg.scraper
	c.mu.Unlock()

	listing, err := c.detailsOne(ctx, s, listingID)
	if err != nil {
		c.log.Error("failed to get listing details", "scraper", source, "listing_id", listingID, "error", err)
		return nil
	}
	return listing
}

func (c *Controller) detailsOne(ctx context.Context, s Scraper, listingID string) (listing *models.Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			listing, err = nil, &panicError{value: r}
		}
	}()
	return s.GetListingDetails(ctx, listingID)
}

// Cleanup tears every active adapter down independently. A failing
// cleanup is logged and does not prevent the others; either way the
// adapter ends up CleanedUp and is never reused.
func (c *Controller) Cleanup() {
	c.mu.Lock()
	var active []*registration
	for _, reg := range c.registry {
		if reg.state == StateActive {
			active = append(active, reg)
		}
	}
	c.mu.Unlock()

	var wg sync.WaitGroup
	for _, reg := range active {
		wg.Add(1)
		go func(reg *registration) {
			defer wg.Done()
			name := reg.scraper.Name()

			if err := c.cleanupOne(reg.scraper); err != nil {
				c.log.Error("failed to clean up scraper", "scraper", name, "error", err)
			}

			c.mu.Lock()
			reg.state = StateCleanedUp
			c.mu.Unlock()
		}(reg)
	}
	wg.Wait()
}

func (c *Controller) cleanupOne(s Scraper) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return s.Cleanup()
}

// ActiveScrapers returns the sorted names of adapters currently
// active.
func (c *Controller) ActiveScrapers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var names []string
	for name, reg := range c.registry {
		if reg.state == StateActive {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ScraperStatus maps every registered adapter name to whether it is
// active.
func (c *Controller) ScraperStatus() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := make(map[string]bool, len(c.registry))
	for name, reg := range c.registry {
		status[name] = reg.state == StateActive
	}
	return status
}

func (c *Controller) activeSet() []Scraper {
	c.mu.Lock()
	defer c.mu.Unlock()

	var active []Scraper
	for _, reg := range c.registry {
		if reg.state == StateActive {
			active = append(active, reg.scraper)
		}
	}
	return active
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}
