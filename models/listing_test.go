package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestListingToMap(t *testing.T) {
	beds := 3
	lat := 51.5
	updated := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)

	l := Listing{
		ID:     "12345",
		Source: "rightmove",
		URL:    "https://www.rightmove.co.uk/properties/12345",
		Title:  "3 bedroom terraced house for sale",
		Location: Location{
			Address:  "12 Acacia Avenue, Hackney, London",
			City:     "London",
			Country:  DefaultCountry,
			Latitude: &lat,
		},
		Features: Features{
			Bedrooms: &beds,
		},
		Price: Price{
			Amount:   550000,
			Currency: DefaultCurrency,
			Type:     PriceTypeAsking,
		},
		Images:      []string{"https://media.example.com/1.jpg"},
		LastUpdated: &updated,
		RawData:     json.RawMessage(`{"price_text":"£550,000"}`),
	}

	m := l.ToMap()

	if m["listing_id"] != "12345" || m["source"] != "rightmove" {
		t.Fatalf("identity fields wrong: %v, %v", m["listing_id"], m["source"])
	}

	features := m["features"].(map[string]any)
	if features["bedrooms"] != 3 {
		t.Errorf("bedrooms = %v, want 3", features["bedrooms"])
	}
	if features["bathrooms"] != nil {
		t.Errorf("bathrooms = %v, want nil for unknown", features["bathrooms"])
	}

	location := m["location"].(map[string]any)
	if location["latitude"] != 51.5 {
		t.Errorf("latitude = %v, want 51.5", location["latitude"])
	}
	if location["longitude"] != nil {
		t.Errorf("longitude = %v, want nil", location["longitude"])
	}

	price := m["price"].(map[string]any)
	if price["amount"] != 550000.0 {
		t.Errorf("amount = %v, want 550000", price["amount"])
	}
	if price["is_sold"] != false {
		t.Errorf("is_sold = %v, want false", price["is_sold"])
	}

	if m["last_updated"] != "2026-08-20T09:30:00Z" {
		t.Errorf("last_updated = %v, want RFC 3339 string", m["last_updated"])
	}
	if m["available_from"] != nil {
		t.Errorf("available_from = %v, want nil", m["available_from"])
	}
	if m["virtual_tour_url"] != nil {
		t.Errorf("virtual_tour_url = %v, want nil for empty", m["virtual_tour_url"])
	}

	// The whole projection must survive JSON encoding.
	if _, err := json.Marshal(m); err != nil {
		t.Fatalf("projection not serializable: %v", err)
	}
}

func TestCriteriaValid(t *testing.T) {
	if (Criteria{}).Valid() {
		t.Error("criteria without location reported valid")
	}
	if !(Criteria{Location: "London"}).Valid() {
		t.Error("criteria with location reported invalid")
	}
}
