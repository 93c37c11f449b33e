package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadProviders(t *testing.T) {
	dir := t.TempDir()

	provider := `
id: rightmove
name: Rightmove
kind: http
search_url: https://www.rightmove.co.uk/property-for-sale/find.html
rate_limit_ms: 1500
locations:
  London: "REGION^87490"
property_types:
  houses: "detached,semi-detached,terraced"
`
	if err := os.WriteFile(filepath.Join(dir, "rightmove.yaml"), []byte(provider), 0644); err != nil {
		t.Fatal(err)
	}
	// Non-YAML files in the directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# notes"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{Providers: make(map[string]*ProviderConfig)}
	if err := cfg.loadProviders(dir); err != nil {
		t.Fatalf("loadProviders: %v", err)
	}

	p, ok := cfg.Providers["rightmove"]
	if !ok {
		t.Fatal("rightmove provider not loaded")
	}
	if p.Name != "Rightmove" || p.Kind != "http" {
		t.Errorf("provider fields wrong: %+v", p)
	}
	if p.MinDelay() != 1500*time.Millisecond {
		t.Errorf("MinDelay = %v, want 1.5s", p.MinDelay())
	}
	if p.Locations["London"] != "REGION^87490" {
		t.Errorf("location table wrong: %v", p.Locations)
	}
}

func TestLoadProvidersMissingID(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: NoID"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{Providers: make(map[string]*ProviderConfig)}
	if err := cfg.loadProviders(dir); err == nil {
		t.Fatal("expected error for provider without id")
	}
}

func TestLoadProvidersMissingDir(t *testing.T) {
	cfg := &Config{Providers: make(map[string]*ProviderConfig)}
	if err := cfg.loadProviders(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Fatalf("missing dir should be tolerated, got %v", err)
	}
}

func TestLoadSearches(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "searches.yaml")
	searches := `
- name: london-family-homes
  location: London
  price_min: 400000
  price_max: 900000
  bedrooms_min: 3
  property_type: houses
  max_results: 100
`
	if err := os.WriteFile(path, []byte(searches), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &Config{}
	if err := cfg.loadSearches(path); err != nil {
		t.Fatalf("loadSearches: %v", err)
	}
	if len(cfg.Searches) != 1 {
		t.Fatalf("got %d searches, want 1", len(cfg.Searches))
	}

	s := cfg.Searches[0]
	if s.Name != "london-family-homes" || s.Location != "London" {
		t.Errorf("search fields wrong: %+v", s)
	}
	if s.PriceMin != 400000 || s.BedroomsMin != 3 {
		t.Errorf("numeric fields wrong: %+v", s)
	}
}

func TestMinDelayDefault(t *testing.T) {
	p := &ProviderConfig{}
	if p.MinDelay() != time.Second {
		t.Errorf("default MinDelay = %v, want 1s", p.MinDelay())
	}
}

func TestSnapshotConfigEnabled(t *testing.T) {
	if (SnapshotConfig{}).Enabled() {
		t.Error("empty snapshot config reported enabled")
	}
	if !(SnapshotConfig{Bucket: "snaps"}).Enabled() {
		t.Error("configured snapshot config reported disabled")
	}
}
