package models

import (
	"encoding/json"
	"time"
)

// Price types
const (
	PriceTypeAsking = "asking_price"
	PriceTypeGuide  = "guide_price"
	PriceTypeSold   = "sold_price"
)

const (
	DefaultCountry  = "United Kingdom"
	DefaultCurrency = "GBP"
)

// Location is where a listed property sits. Coordinates are optional;
// when present they are finite.
type Location struct {
	Address   string   `json:"address"`
	City      string   `json:"city"`
	Postcode  string   `json:"postcode"`
	Region    string   `json:"region,omitempty"`
	Country   string   `json:"country"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Features describes what is known about a property. A nil pointer or
// empty string means unknown, never a made-up default.
type Features struct {
	Bedrooms       *int     `json:"bedrooms"`
	Bathrooms      *int     `json:"bathrooms"`
	ReceptionRooms *int     `json:"reception_rooms"`
	PropertyType   string   `json:"property_type,omitempty"`
	Tenure         string   `json:"tenure,omitempty"`
	FloorArea      *float64 `json:"floor_area"`
	YearBuilt      *int     `json:"year_built"`
	Amenities      []string `json:"amenities,omitempty"`
	EnergyRating   string   `json:"energy_rating,omitempty"`
	CouncilTaxBand string   `json:"council_tax_band,omitempty"`
}

// Price holds the normalized price of a listing. Amount is never
// negative; a failed parse leaves it at zero.
type Price struct {
	Amount     float64    `json:"amount"`
	Currency   string     `json:"currency"`
	Type       string     `json:"price_type"`
	UnderOffer bool       `json:"is_under_offer"`
	Sold       bool       `json:"is_sold"`
	SoldDate   *time.Time `json:"sold_date"`
	SoldPrice  *float64   `json:"sold_price"`
}

// Listing is the unified record every provider normalizes into.
// (ID, Source) is the dedup key within one provider's results. A
// Listing is built once per search and never mutated afterwards.
type Listing struct {
	ID             string          `json:"listing_id"`
	Source         string          `json:"source"`
	URL            string          `json:"url"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Location       Location        `json:"location"`
	Features       Features        `json:"features"`
	Price          Price           `json:"price"`
	Images         []string        `json:"images"`
	FloorPlans     []string        `json:"floor_plans"`
	VirtualTourURL string          `json:"virtual_tour_url,omitempty"`
	AvailableFrom  *time.Time      `json:"available_from"`
	LastUpdated    *time.Time      `json:"last_updated"`
	RawData        json.RawMessage `json:"raw_data,omitempty"`
}

// ToMap flattens the listing into a plain serializable form: numbers
// stay numeric, timestamps become RFC 3339 strings, optional fields
// are present but nil when unknown. Both the HTTP layer and the
// persistence mapping consume this shape.
func (l *Listing) ToMap() map[string]any {
	var raw any
	if len(l.RawData) > 0 {
		raw = json.RawMessage(l.RawData)
	}

	return map[string]any{
		"listing_id":  l.ID,
		"source":      l.Source,
		"url":         l.URL,
		"title":       l.Title,
		"description": l.Description,
		"location": map[string]any{
			"address":   l.Location.Address,
			"city":      l.Location.City,
			"postcode":  l.Location.Postcode,
			"region":    emptyAsNil(l.Location.Region),
			"country":   l.Location.Country,
			"latitude":  floatOrNil(l.Location.Latitude),
			"longitude": floatOrNil(l.Location.Longitude),
		},
		"features": map[string]any{
			"bedrooms":         intOrNil(l.Features.Bedrooms),
			"bathrooms":        intOrNil(l.Features.Bathrooms),
			"reception_rooms":  intOrNil(l.Features.ReceptionRooms),
			"property_type":    emptyAsNil(l.Features.PropertyType),
			"tenure":           emptyAsNil(l.Features.Tenure),
			"floor_area":       floatOrNil(l.Features.FloorArea),
			"year_built":       intOrNil(l.Features.YearBuilt),
			"amenities":        l.Features.Amenities,
			"energy_rating":    emptyAsNil(l.Features.EnergyRating),
			"council_tax_band": emptyAsNil(l.Features.CouncilTaxBand),
		},
		"price": map[string]any{
			"amount":         l.Price.Amount,
			"currency":       l.Price.Currency,
			"price_type":     l.Price.Type,
			"is_under_offer": l.Price.UnderOffer,
			"is_sold":        l.Price.Sold,
			"sold_date":      timeOrNil(l.Price.SoldDate),
			"sold_price":     floatOrNil(l.Price.SoldPrice),
		},
		"images":           l.Images,
		"floor_plans":      l.FloorPlans,
		"virtual_tour_url": emptyAsNil(l.VirtualTourURL),
		"available_from":   timeOrNil(l.AvailableFrom),
		"last_updated":     timeOrNil(l.LastUpdated),
		"raw_data":         raw,
	}
}

func emptyAsNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func intOrNil(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
