// Package scraper holds the provider adapter contract, the concrete
// site adapters and the controller that fans searches out across
// them. Adapters normalize whatever their site returns into the
// unified models.Listing shape; every failure is absorbed at the
// narrowest possible scope so one bad page, entry or field never
// takes down a search.
package scraper

import (
	"context"
	"fmt"

	"proplens/config"
	"proplens/models"
)

// Scraper is the capability set every provider adapter implements.
// Search and GetListingDetails treat transient trouble (network,
// unrecognized markup) as "no data", not as an error: an error return
// is reserved for failures the adapter could not absorb.
// GetListingDetails returns (nil, nil) when the listing is absent.
type Scraper interface {
	Name() string
	Initialize(ctx context.Context) error
	Search(ctx context.Context, criteria models.Criteria) ([]models.Listing, error)
	GetListingDetails(ctx context.Context, listingID string) (*models.Listing, error)
	Cleanup() error
}

// New builds the adapter for a provider config.
func New(cfg *config.ProviderConfig) (Scraper, error) {
	switch cfg.ID {
	case "rightmove":
		return NewRightmove(cfg), nil
	case "zoopla":
		return NewZoopla(cfg), nil
	case "onthemarket":
		return NewOnTheMarket(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.ID)
	}
}
