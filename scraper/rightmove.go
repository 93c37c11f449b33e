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

	"github.com/PuerkitoBio/goquery"

	"proplens/config"
	"proplens/httputil"
	"proplens/models"
)

// Selector chains for the search results page, newest known layout
// first. Rightmove has shipped all of these card shapes at one point
// or another.
var (
	rightmoveCards = selectorChain{
		"div.propertyCard",
		"div.property-card",
		`div[data-test="property-card"]`,
		"div.l-searchResult",
	}
	rightmoveCardTitle = selectorChain{
		"h2.propertyCard-title",
		`[data-test="property-title"]`,
		"h2",
	}
	rightmoveCardPrice = selectorChain{
		"div.propertyCard-priceValue",
		"span.propertyCard-priceValue",
		`[data-test="property-price"]`,
	}
	rightmoveCardAddress = selectorChain{
		"address.propertyCard-address",
		`[data-test="property-address"]`,
		"address",
	}
	rightmoveCardBeds = selectorChain{
		"div.propertyCard-features h2",
		"div.propertyCard-features span",
		`[data-test="property-bedrooms"]`,
	}
	rightmoveCardLink = selectorChain{
		"a.propertyCard-link",
		"a[href*='/properties/']",
	}
)

// Detail page chains.
var (
	rightmoveDetailTitle = selectorChain{
		"h1.property-header-title",
		`h1[itemprop="name"]`,
		"h1",
	}
	rightmoveDetailPrice = selectorChain{
		"div.property-header-price",
		`[data-test="property-price"]`,
	}
	rightmoveDetailAddress = selectorChain{
		"address.property-header-address",
		`[itemprop="address"]`,
		"address",
	}
	rightmoveDetailDescription = selectorChain{
		"div.property-description",
		`[data-test="property-description"]`,
	}
)

// Rightmove scrapes rightmove.co.uk search result and detail pages.
type Rightmove struct {
	cfg   *config.ProviderConfig
	fetch *fetcher
	log   *slog.Logger
}

func NewRightmove(cfg *config.ProviderConfig) *Rightmove {
	return &Rightmove{
		cfg: cfg,
		log: slog.With("scraper", cfg.ID),
	}
}

func (r *Rightmove) Name() string {
	return r.cfg.ID
}

// Initialize creates the HTTP session this instance owns until
// Cleanup.
func (r *Rightmove) Initialize(ctx context.Context) error {
	client := httputil.NewScrapingClient(r.cfg.ProxyURL)
	r.fetch = newFetcher(client, r.cfg.UserAgent, r.cfg.MinDelay(), r.log)
	return nil
}

func (r *Rightmove) Cleanup() error {
	if r.fetch != nil {
		r.fetch.Close()
		r.fetch = nil
	}
	return nil
}

func (r *Rightmove) Search(ctx context.Context, criteria models.Criteria) ([]models.Listing, error) {
	if !criteria.Valid() {
		r.log.Warn("invalid search criteria: location is required")
		return nil, nil
	}
	if r.fetch == nil {
		r.log.Warn("search on uninitialized scraper")
		return nil, nil
	}

	locationID := r.locationID(criteria.Location)
	searchURL := r.cfg.SearchURL + "?" + r.searchParams(criteria, locationID).Encode()
	r.log.Info("searching", "url", searchURL)

	body, ok := r.fetch.Get(ctx, searchURL)
	if !ok {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		r.log.Error("failed to parse results page", "url", searchURL, "error", err)
		return nil, nil
	}

	listings := r.parseResults(doc)
	if criteria.MaxResults > 0 && len(listings) > criteria.MaxResults {
		listings = listings[:criteria.MaxResults]
	}

	if len(listings) == 0 {
		r.log.Warn("no listings matched the criteria", "url", searchURL)
	} else {
		r.log.Info("search complete", "listings", len(listings))
	}
	return listings, nil
}

func (r *Rightmove) GetListingDetails(ctx context.Context, listingID string) (*models.Listing, error) {
	if r.fetch == nil {
		r.log.Warn("details requested on uninitialized scraper")
		return nil, nil
	}

	detailURL := r.listingURL(listingID)
	body, ok := r.fetch.Get(ctx, detailURL)
	if !ok {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		r.log.Error("failed to parse detail page", "url", detailURL, "error", err)
		return nil, nil
	}

	listing := r.parseDetailPage(doc, listingID)
	if listing == nil {
		r.log.Warn("detail page unrecognized", "url", detailURL)
	}
	return listing, nil
}

// locationID resolves a human-readable location to Rightmove's
// region identifier. Unknown locations pass through unchanged.
func (r *Rightmove) locationID(location string) string {
	if id, ok := r.cfg.Locations[location]; ok {
		return id
	}
	return location
}

// searchParams builds the query string, omitting absent criteria and
// translating the generic property-type vocabulary into Rightmove's
// enumeration.
func (r *Rightmove) searchParams(criteria models.Criteria, locationID string) url.Values {
	params := url.Values{}
	params.Set("searchLocation", locationID)
	params.Set("useLocationIdentifier", "true")
	params.Set("locationIdentifier", locationID)
	params.Set("radius", "0.0")
	params.Set("_includeSSTC", "on")

	if criteria.PriceMin != nil {
		params.Set("minPrice", strconv.FormatFloat(*criteria.PriceMin, 'f', -1, 64))
	}
	if criteria.PriceMax != nil {
		params.Set("maxPrice", strconv.FormatFloat(*criteria.PriceMax, 'f', -1, 64))
	}
	if criteria.BedroomsMin != nil {
		params.Set("minBedrooms", strconv.Itoa(*criteria.BedroomsMin))
	}
	if criteria.BedroomsMax != nil {
		params.Set("maxBedrooms", strconv.Itoa(*criteria.BedroomsMax))
	}
	if criteria.PropertyType != "" {
		propertyTypes := criteria.PropertyType
		if mapped, ok := r.cfg.PropertyTypes[criteria.PropertyType]; ok {
			propertyTypes = mapped
		}
		params.Set("propertyTypes", propertyTypes)
	}

	return params
}

// parseResults extracts listings from a search results page,
// deduplicating by listing ID within the page (first occurrence
// wins). A malformed card is logged and skipped; the rest of the
// page still parses.
func (r *Rightmove) parseResults(doc *goquery.Document) []models.Listing {
	cards := rightmoveCards.Select(doc)
	if cards == nil {
		r.log.Warn("no property cards matched any known layout")
		return nil
	}

	seen := make(map[string]struct{})
	var listings []models.Listing

	cards.Each(func(i int, card *goquery.Selection) {
		listing, err := r.parseCard(card)
		if err != nil {
			r.log.Warn("skipping property card", "index", i, "error", err)
			return
		}
		if _, dup := seen[listing.ID]; dup {
			return
		}
		seen[listing.ID] = struct{}{}
		listings = append(listings, *listing)
	})

	return listings
}

// parseCard turns one result card into a Listing. Fields degrade
// independently; a missing price or address leaves that field
// unknown. Only a card with no derivable listing ID is rejected
// outright: it could never be deduplicated or looked up again.
func (r *Rightmove) parseCard(card *goquery.Selection) (*models.Listing, error) {
	listingID := r.cardListingID(card)
	if listingID == "" {
		return nil, fmt.Errorf("no listing id derivable")
	}

	title := rightmoveCardTitle.Text(card)
	priceText := rightmoveCardPrice.Text(card)
	address := rightmoveCardAddress.Text(card)
	bedsText := rightmoveCardBeds.Text(card)

	var amount float64
	if priceText != "" {
		amount = NormalizePrice(priceText)
	}

	raw, _ := json.Marshal(map[string]string{
		"title":      title,
		"price_text": priceText,
		"address":    address,
		"beds_text":  bedsText,
	})

	now := time.Now().UTC()
	listing := &models.Listing{
		ID:          listingID,
		Source:      r.cfg.ID,
		URL:         r.listingURL(listingID),
		Title:       title,
		Description: "", // filled by the detail view
		Location: models.Location{
			Address: address,
			City:    cityFromAddress(address),
			Country: models.DefaultCountry,
		},
		Features: models.Features{
			Bedrooms: NormalizeCount(bedsText),
		},
		Price: models.Price{
			Amount:   amount,
			Currency: models.DefaultCurrency,
			Type:     priceTypeFrom(priceText),
		},
		LastUpdated: &now,
		RawData:     raw,
	}
	return listing, nil
}

// cardListingID derives the listing ID from the card's own id
// attribute, falling back to known link URL patterns.
func (r *Rightmove) cardListingID(card *goquery.Selection) string {
	if id, ok := card.Attr("id"); ok && strings.HasPrefix(id, "property-") {
		if trimmed := strings.TrimPrefix(id, "property-"); trimmed != "" {
			return trimmed
		}
	}

	href := rightmoveCardLink.Attr(card, "href")
	if href == "" {
		return ""
	}
	if _, after, found := strings.Cut(href, "/properties/"); found {
		id, _, _ := strings.Cut(after, "#")
		return strings.Trim(id, "/")
	}
	if _, after, found := strings.Cut(href, "/property-for-sale/property/"); found {
		return strings.TrimSuffix(strings.Trim(after, "/"), ".html")
	}
	return ""
}

// parseDetailPage builds a fully enriched listing from a property
// detail page, or nil when the page has none of the expected
// structure.
func (r *Rightmove) parseDetailPage(doc *goquery.Document, listingID string) *models.Listing {
	title := rightmoveDetailTitle.Text(doc.Selection)
	priceText := rightmoveDetailPrice.Text(doc.Selection)
	if title == "" && priceText == "" {
		return nil
	}

	address := rightmoveDetailAddress.Text(doc.Selection)
	description := rightmoveDetailDescription.Text(doc.Selection)

	features := r.parseFeatureGrid(doc)
	images := collectAttrs(doc, "div.property-gallery img, a.gallery-image img", "src")
	floorPlans := collectAttrs(doc, "div.floorplan img, a[href*='floorplan'] img", "src")

	var tourURL string
	if v, ok := doc.Find("a[href*='virtual-tour'], a[data-test='virtual-tour']").First().Attr("href"); ok {
		tourURL = v
	}

	now := time.Now().UTC()
	return &models.Listing{
		ID:          listingID,
		Source:      r.cfg.ID,
		URL:         r.listingURL(listingID),
		Title:       title,
		Description: description,
		Location: models.Location{
			Address: address,
			City:    cityFromAddress(address),
			Country: models.DefaultCountry,
		},
		Features: models.Features{
			Bedrooms:       NormalizeCount(features["bedrooms"]),
			Bathrooms:      NormalizeCount(features["bathrooms"]),
			ReceptionRooms: NormalizeCount(features["receptions"]),
			PropertyType:   features["property type"],
			Tenure:         features["tenure"],
			EnergyRating:   features["epc rating"],
			CouncilTaxBand: features["council tax"],
		},
		Price: models.Price{
			Amount:   NormalizePrice(priceText),
			Currency: models.DefaultCurrency,
			Type:     priceTypeFrom(priceText),
		},
		Images:         images,
		FloorPlans:     floorPlans,
		VirtualTourURL: tourURL,
		LastUpdated:    &now,
	}
}

// parseFeatureGrid reads the label/value feature grid into a map
// keyed by lowercased label.
func (r *Rightmove) parseFeatureGrid(doc *goquery.Document) map[string]string {
	features := make(map[string]string)
	doc.Find("div.property-features-grid div.property-feature").Each(func(_ int, s *goquery.Selection) {
		label := strings.TrimSpace(s.Find("span.property-feature-label").Text())
		value := strings.TrimSpace(s.Find("span.property-feature-value").Text())
		if label != "" && value != "" {
			features[strings.ToLower(label)] = value
		}
	})
	return features
}

func (r *Rightmove) listingURL(listingID string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(r.cfg.DetailURL, "/"), listingID)
}

func collectAttrs(doc *goquery.Document, selector, attr string) []string {
	var values []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(attr); ok && v != "" {
			values = append(values, v)
		}
	})
	return values
}

// cityFromAddress takes the last comma-separated segment as the city,
// the usual shape of a UK display address.
func cityFromAddress(address string) string {
	if idx := strings.LastIndex(address, ","); idx >= 0 {
		return strings.TrimSpace(address[idx+1:])
	}
	return ""
}

func priceTypeFrom(priceText string) string {
	lower := strings.ToLower(priceText)
	switch {
	case strings.Contains(lower, "guide"):
		return models.PriceTypeGuide
	case strings.Contains(lower, "sold"):
		return models.PriceTypeSold
	default:
		return models.PriceTypeAsking
	}
}
