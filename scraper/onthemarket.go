package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"proplens/config"
	"proplens/httputil"
	"proplens/models"
)

// OnTheMarket talks to the site's JSON search API rather than
// scraping markup. The contract is the same: bad responses and bad
// entries degrade to empty, never to an aborted search.
type OnTheMarket struct {
	cfg   *config.ProviderConfig
	fetch *fetcher
	log   *slog.Logger
}

func NewOnTheMarket(cfg *config.ProviderConfig) *OnTheMarket {
	return &OnTheMarket{
		cfg: cfg,
		log: slog.With("scraper", cfg.ID),
	}
}

func (o *OnTheMarket) Name() string {
	return o.cfg.ID
}

func (o *OnTheMarket) Initialize(ctx context.Context) error {
	client := httputil.NewAPIClient()
	o.fetch = newFetcher(client, o.cfg.UserAgent, o.cfg.MinDelay(), o.log)
	return nil
}

func (o *OnTheMarket) Cleanup() error {
	if o.fetch != nil {
		o.fetch.Close()
		o.fetch = nil
	}
	return nil
}

// otmSearchResponse keeps each property as raw JSON so one malformed
// entry can be skipped without losing the rest of the page.
type otmSearchResponse struct {
	Properties []json.RawMessage `json:"properties"`
}

type otmProperty struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	DisplayAddress string      `json:"display_address"`
	City           string      `json:"city"`
	Postcode       string      `json:"postcode"`
	Latitude       *float64    `json:"latitude"`
	Longitude      *float64    `json:"longitude"`
	Price          json.Number `json:"price"`
	PriceQualifier string      `json:"price_qualifier"`
	UnderOffer     bool        `json:"under_offer"`
	Bedrooms       *int        `json:"bedrooms"`
	Bathrooms      *int        `json:"bathrooms"`
	PropertyType   string      `json:"property_type"`
	Images         []string    `json:"images"`
	FloorPlans     []string    `json:"floor_plans"`
	DetailsURL     string      `json:"details_url"`
	UpdatedAt      string      `json:"updated_at"`
}

func (o *OnTheMarket) Search(ctx context.Context, criteria models.Criteria) ([]models.Listing, error) {
	if !criteria.Valid() {
		o.log.Warn("invalid search criteria: location is required")
		return nil, nil
	}
	if o.fetch == nil {
		o.log.Warn("search on uninitialized scraper")
		return nil, nil
	}

	searchURL := o.endpoint("search") + "?" + o.searchParams(criteria).Encode()
	o.log.Info("searching", "url", searchURL)

	var resp otmSearchResponse
	if !o.fetch.GetJSON(ctx, searchURL, &resp) {
		return nil, nil
	}

	seen := make(map[string]struct{})
	var listings []models.Listing
	for i, raw := range resp.Properties {
		listing, err := o.parseProperty(raw)
		if err != nil {
			o.log.Warn("skipping property entry", "index", i, "error", err)
			continue
		}
		if _, dup := seen[listing.ID]; dup {
			continue
		}
		seen[listing.ID] = struct{}{}
		listings = append(listings, *listing)

		if criteria.MaxResults > 0 && len(listings) >= criteria.MaxResults {
			break
		}
	}

	if len(listings) == 0 {
		o.log.Warn("no listings matched the criteria", "url", searchURL)
	} else {
		o.log.Info("search complete", "listings", len(listings))
	}
	return listings, nil
}

func (o *OnTheMarket) GetListingDetails(ctx context.Context, listingID string) (*models.Listing, error) {
	if o.fetch == nil {
		o.log.Warn("details requested on uninitialized scraper")
		return nil, nil
	}

	detailURL := fmt.Sprintf("%s/%s", strings.TrimRight(o.endpoint("details"), "/"), url.PathEscape(listingID))

	var raw json.RawMessage
	if !o.fetch.GetJSON(ctx, detailURL, &raw) {
		return nil, nil
	}

	listing, err := o.parseProperty(raw)
	if err != nil {
		o.log.Warn("detail payload unrecognized", "url", detailURL, "error", err)
		return nil, nil
	}
	return listing, nil
}

func (o *OnTheMarket) endpoint(name string) string {
	if ep, ok := o.cfg.Endpoints[name]; ok {
		return ep
	}
	return strings.TrimRight(o.cfg.BaseURL, "/") + "/" + name
}

func (o *OnTheMarket) searchParams(criteria models.Criteria) url.Values {
	params := url.Values{}
	params.Set("location", criteria.Location)

	if criteria.PriceMin != nil {
		params.Set("min_price", strconv.FormatFloat(*criteria.PriceMin, 'f', -1, 64))
	}
	if criteria.PriceMax != nil {
		params.Set("max_price", strconv.FormatFloat(*criteria.PriceMax, 'f', -1, 64))
	}
	if criteria.BedroomsMin != nil {
		params.Set("min_bedrooms", strconv.Itoa(*criteria.BedroomsMin))
	}
	if criteria.BedroomsMax != nil {
		params.Set("max_bedrooms", strconv.Itoa(*criteria.BedroomsMax))
	}
	if criteria.PropertyType != "" {
		propertyType := criteria.PropertyType
		if mapped, ok := o.cfg.PropertyTypes[criteria.PropertyType]; ok {
			propertyType = mapped
		}
		params.Set("property_type", propertyType)
	}
	if criteria.MaxResults > 0 {
		params.Set("limit", strconv.Itoa(criteria.MaxResults))
	}

	return params
}

// parseProperty maps one API entry into the unified schema. An entry
// without an ID is rejected; every other missing field just stays
// unknown.
func (o *OnTheMarket) parseProperty(raw json.RawMessage) (*models.Listing, error) {
	var p otmProperty
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode property: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("no listing id in payload")
	}

	var amount float64
	if p.Price != "" {
		amount = NormalizePrice(p.Price.String())
	}

	listingURL := p.DetailsURL
	if listingURL == "" {
		listingURL = fmt.Sprintf("%s/details/%s", strings.TrimRight(o.cfg.BaseURL, "/"), p.ID)
	}

	city := p.City
	if city == "" {
		city = cityFromAddress(p.DisplayAddress)
	}

	var lastUpdated *time.Time
	if p.UpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339, p.UpdatedAt); err == nil {
			lastUpdated = &t
		} else {
			o.log.Warn("failed to parse updated_at", "value", p.UpdatedAt, "listing_id", p.ID)
		}
	}

	return &models.Listing{
		ID:          p.ID,
		Source:      o.cfg.ID,
		URL:         listingURL,
		Title:       p.Title,
		Description: p.Description,
		Location: models.Location{
			Address:   p.DisplayAddress,
			City:      city,
			Postcode:  p.Postcode,
			Country:   models.DefaultCountry,
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
		},
		Features: models.Features{
			Bedrooms:     p.Bedrooms,
			Bathrooms:    p.Bathrooms,
			PropertyType: p.PropertyType,
		},
		Price: models.Price{
			Amount:     amount,
			Currency:   models.DefaultCurrency,
			Type:       priceTypeFrom(p.PriceQualifier),
			UnderOffer: p.UnderOffer,
		},
		Images:      p.Images,
		FloorPlans:  p.FloorPlans,
		LastUpdated: lastUpdated,
		RawData:     raw,
	}, nil
}
