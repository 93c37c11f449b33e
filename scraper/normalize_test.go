package scraper

import "testing"

func TestNormalizePrice(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"£500,000", 500000},
		{"£1,250,000", 1250000},
		{"Guide Price £425,000", 425000},
		{"Offers over 450000", 450000},
		{"POA", 0},
		{"", 0},
		{"  £99,950  ", 99950},
		{"€300,000", 300000},
		{"-100", 0},
	}

	for _, c := range cases {
		got := NormalizePrice(c.text)
		if got != c.want {
			t.Errorf("NormalizePrice(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestNormalizeCount(t *testing.T) {
	if got := NormalizeCount("3"); got == nil || *got != 3 {
		t.Fatalf("NormalizeCount(\"3\") = %v, want 3", got)
	}
	if got := NormalizeCount("4 bedrooms"); got == nil || *got != 4 {
		t.Fatalf("NormalizeCount(\"4 bedrooms\") = %v, want 4", got)
	}
	if got := NormalizeCount("studio"); got != nil {
		t.Fatalf("NormalizeCount(\"studio\") = %v, want nil", *got)
	}
	if got := NormalizeCount(""); got != nil {
		t.Fatalf("NormalizeCount(\"\") = %v, want nil", *got)
	}
}

func TestCityFromAddress(t *testing.T) {
	if got := cityFromAddress("12 Acacia Avenue, Hackney, London"); got != "London" {
		t.Errorf("got %q, want London", got)
	}
	if got := cityFromAddress("No commas here"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestPriceTypeFrom(t *testing.T) {
	if got := priceTypeFrom("Guide Price £425,000"); got != "guide_price" {
		t.Errorf("got %q, want guide_price", got)
	}
	if got := priceTypeFrom("Sold STC"); got != "sold_price" {
		t.Errorf("got %q, want sold_price", got)
	}
	if got := priceTypeFrom("£550,000"); got != "asking_price" {
		t.Errorf("got %q, want asking_price", got)
	}
}
