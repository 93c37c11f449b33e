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
	"github.com/playwright-community/playwright-go"

	"proplens/config"
	"proplens/models"
)

const zooplaNavigationTimeoutMS = 60_000

var (
	zooplaCards = selectorChain{
		`div[data-testid="search-result"]`,
		`li[data-testid^="listing"]`,
		"div.listing-results-wrapper li",
	}
	zooplaCardTitle = selectorChain{
		`h2[data-testid="listing-title"]`,
		"a.listing-results-address h2",
		"h2",
	}
	zooplaCardPrice = selectorChain{
		`p[data-testid="listing-price"]`,
		"a.listing-results-price",
		`[class*="price"]`,
	}
	zooplaCardAddress = selectorChain{
		`address[data-testid="listing-address"]`,
		"a.listing-results-address",
		"address",
	}
	zooplaCardBeds = selectorChain{
		`[data-testid="beds-label"]`,
		"span.num-beds",
	}
	zooplaCardBaths = selectorChain{
		`[data-testid="baths-label"]`,
		"span.num-baths",
	}
	zooplaCardLink = selectorChain{
		"a[href*='/for-sale/details/']",
		"a.listing-results-address",
	}
)

// Zoopla renders search pages in a real browser, since the site
// serves its results from client-side JavaScript, then hands the
// rendered DOM to the same selector-chain machinery the plain HTTP
// adapters use.
type Zoopla struct {
	cfg     *config.ProviderConfig
	pw      *playwright.Playwright
	browser playwright.Browser
	limiter *rateLimiter
	log     *slog.Logger
}

func NewZoopla(cfg *config.ProviderConfig) *Zoopla {
	return &Zoopla{
		cfg:     cfg,
		limiter: newRateLimiter(cfg.MinDelay()),
		log:     slog.With("scraper", cfg.ID),
	}
}

func (z *Zoopla) Name() string {
	return z.cfg.ID
}

// Initialize launches the browser this instance owns until Cleanup.
func (z *Zoopla) Initialize(ctx context.Context) error {
	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(z.cfg.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		pw.Stop()
		return fmt.Errorf("launch browser: %w", err)
	}

	z.pw = pw
	z.browser = browser
	return nil
}

func (z *Zoopla) Cleanup() error {
	var firstErr error
	if z.browser != nil {
		if err := z.browser.Close(); err != nil {
			firstErr = fmt.Errorf("close browser: %w", err)
		}
		z.browser = nil
	}
	if z.pw != nil {
		if err := z.pw.Stop(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("stop playwright: %w", err)
		}
		z.pw = nil
	}
	return firstErr
}

func (z *Zoopla) Search(ctx context.Context, criteria models.Criteria) ([]models.Listing, error) {
	if !criteria.Valid() {
		z.log.Warn("invalid search criteria: location is required")
		return nil, nil
	}
	if z.browser == nil {
		z.log.Warn("search on uninitialized scraper")
		return nil, nil
	}

	searchURL := z.searchURL(criteria)
	z.log.Info("searching", "url", searchURL)

	doc := z.renderPage(ctx, searchURL)
	if doc == nil {
		return nil, nil
	}

	listings := z.parseResults(doc)
	if criteria.MaxResults > 0 && len(listings) > criteria.MaxResults {
		listings = listings[:criteria.MaxResults]
	}

	if len(listings) == 0 {
		z.log.Warn("no listings matched the criteria", "url", searchURL)
	} else {
		z.log.Info("search complete", "listings", len(listings))
	}
	return listings, nil
}

func (z *Zoopla) GetListingDetails(ctx context.Context, listingID string) (*models.Listing, error) {
	if z.browser == nil {
		z.log.Warn("details requested on uninitialized scraper")
		return nil, nil
	}

	detailURL := z.listingURL(listingID)
	doc := z.renderPage(ctx, detailURL)
	if doc == nil {
		return nil, nil
	}

	listing := z.parseDetailPage(doc, listingID)
	if listing == nil {
		z.log.Warn("detail page unrecognized", "url", detailURL)
	}
	return listing, nil
}

// renderPage navigates a fresh page, waits for the DOM, and returns
// the rendered document. Navigation and parse failures degrade to
// nil; the caller treats it as no data.
func (z *Zoopla) renderPage(ctx context.Context, pageURL string) *goquery.Document {
	if err := z.limiter.wait(ctx); err != nil {
		z.log.Warn("navigation cancelled while rate limited", "url", pageURL, "error", err)
		return nil
	}

	page, err := z.browser.NewPage()
	if err != nil {
		z.log.Error("failed to open page", "url", pageURL, "error", err)
		return nil
	}
	defer page.Close()

	if _, err := page.Goto(pageURL, playwright.PageGotoOptions{
		Timeout:   playwright.Float(zooplaNavigationTimeoutMS),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		z.log.Warn("navigation failed", "url", pageURL, "error", err)
		return nil
	}

	html, err := page.Content()
	if err != nil {
		z.log.Warn("failed to read page content", "url", pageURL, "error", err)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		z.log.Error("failed to parse rendered page", "url", pageURL, "error", err)
		return nil
	}
	return doc
}

func (z *Zoopla) searchURL(criteria models.Criteria) string {
	location := criteria.Location
	if slug, ok := z.cfg.Locations[location]; ok {
		location = slug
	} else {
		location = strings.ToLower(strings.ReplaceAll(location, " ", "-"))
	}

	params := url.Values{}
	if criteria.PriceMin != nil {
		params.Set("price_min", strconv.FormatFloat(*criteria.PriceMin, 'f', -1, 64))
	}
	if criteria.PriceMax != nil {
		params.Set("price_max", strconv.FormatFloat(*criteria.PriceMax, 'f', -1, 64))
	}
	if criteria.BedroomsMin != nil {
		params.Set("beds_min", strconv.Itoa(*criteria.BedroomsMin))
	}
	if criteria.BedroomsMax != nil {
		params.Set("beds_max", strconv.Itoa(*criteria.BedroomsMax))
	}
	if criteria.PropertyType != "" {
		propertyType := criteria.PropertyType
		if mapped, ok := z.cfg.PropertyTypes[criteria.PropertyType]; ok {
			propertyType = mapped
		}
		params.Set("property_sub_type", propertyType)
	}

	base := fmt.Sprintf("%s/%s/", strings.TrimRight(z.cfg.SearchURL, "/"), location)
	if len(params) == 0 {
		return base
	}
	return base + "?" + params.Encode()
}

func (z *Zoopla) listingURL(listingID string) string {
	return fmt.Sprintf("%s/%s/", strings.TrimRight(z.cfg.DetailURL, "/"), listingID)
}

func (z *Zoopla) parseResults(doc *goquery.Document) []models.Listing {
	cards := zooplaCards.Select(doc)
	if cards == nil {
		z.log.Warn("no search results matched any known layout")
		return nil
	}

	seen := make(map[string]struct{})
	var listings []models.Listing

	cards.Each(func(i int, card *goquery.Selection) {
		listing, err := z.parseCard(card)
		if err != nil {
			z.log.Warn("skipping search result", "index", i, "error", err)
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

func (z *Zoopla) parseCard(card *goquery.Selection) (*models.Listing, error) {
	listingID := z.cardListingID(card)
	if listingID == "" {
		return nil, fmt.Errorf("no listing id derivable")
	}

	title := zooplaCardTitle.Text(card)
	priceText := zooplaCardPrice.Text(card)
	address := zooplaCardAddress.Text(card)
	bedsText := zooplaCardBeds.Text(card)
	bathsText := zooplaCardBaths.Text(card)

	raw, _ := json.Marshal(map[string]string{
		"title":      title,
		"price_text": priceText,
		"address":    address,
		"beds_text":  bedsText,
		"baths_text": bathsText,
	})

	now := time.Now().UTC()
	return &models.Listing{
		ID:     listingID,
		Source: z.cfg.ID,
		URL:    z.listingURL(listingID),
		Title:  title,
		Location: models.Location{
			Address: address,
			City:    cityFromAddress(address),
			Country: models.DefaultCountry,
		},
		Features: models.Features{
			Bedrooms:  NormalizeCount(bedsText),
			Bathrooms: NormalizeCount(bathsText),
		},
		Price: models.Price{
			Amount:   NormalizePrice(priceText),
			Currency: models.DefaultCurrency,
			Type:     priceTypeFrom(priceText),
		},
		LastUpdated: &now,
		RawData:     raw,
	}, nil
}

func (z *Zoopla) cardListingID(card *goquery.Selection) string {
	if id, ok := card.Attr("data-listing-id"); ok && id != "" {
		return id
	}

	href := zooplaCardLink.Attr(card, "href")
	if _, after, found := strings.Cut(href, "/for-sale/details/"); found {
		id, _, _ := strings.Cut(after, "/")
		id, _, _ = strings.Cut(id, "?")
		return id
	}
	return ""
}

func (z *Zoopla) parseDetailPage(doc *goquery.Document, listingID string) *models.Listing {
	title := strings.TrimSpace(doc.Find(`h1[data-testid="listing-title"], h1`).First().Text())
	priceText := strings.TrimSpace(doc.Find(`p[data-testid="price"], [class*="price"]`).First().Text())
	if title == "" && priceText == "" {
		return nil
	}

	address := strings.TrimSpace(doc.Find(`address[data-testid="address-label"], address`).First().Text())
	description := strings.TrimSpace(doc.Find(`div[data-testid="listing-description"], section.description`).First().Text())
	bedsText := zooplaCardBeds.Text(doc.Selection)
	bathsText := zooplaCardBaths.Text(doc.Selection)
	images := collectAttrs(doc, `picture[data-testid="gallery-image"] img, ul.gallery img`, "src")

	now := time.Now().UTC()
	return &models.Listing{
		ID:          listingID,
		Source:      z.cfg.ID,
		URL:         z.listingURL(listingID),
		Title:       title,
		Description: description,
		Location: models.Location{
			Address: address,
			City:    cityFromAddress(address),
			Country: models.DefaultCountry,
		},
		Features: models.Features{
			Bedrooms:  NormalizeCount(bedsText),
			Bathrooms: NormalizeCount(bathsText),
		},
		Price: models.Price{
			Amount:   NormalizePrice(priceText),
			Currency: models.DefaultCurrency,
			Type:     priceTypeFrom(priceText),
		},
		Images:      images,
		LastUpdated: &now,
	}
}
