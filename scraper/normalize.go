package scraper

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

var (
	currencyCleaner = strings.NewReplacer("£", "", "$", "", "€", "", ",", "")
	numberPattern   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	intPattern      = regexp.MustCompile(`\d+`)
)

// NormalizePrice converts a scraped price string ("£500,000",
// "Guide Price £1,250,000") into a numeric amount. A string with no
// parseable number yields 0 and a logged normalization failure,
// never an error, so one bad price can't abort a listing.
func NormalizePrice(text string) float64 {
	cleaned := strings.TrimSpace(currencyCleaner.Replace(text))

	if v, err := strconv.ParseFloat(cleaned, 64); err == nil {
		if v < 0 {
			slog.Warn("negative price normalized to zero", "text", text)
			return 0
		}
		return v
	}

	// Prose around the figure ("Offers over 450000") is common;
	// take the first number in the string.
	if m := numberPattern.FindString(cleaned); m != "" {
		if v, err := strconv.ParseFloat(m, 64); err == nil {
			return v
		}
	}

	slog.Warn("failed to normalize price", "text", text)
	return 0
}

// NormalizeCount parses a room count out of text like "3" or
// "3 bedrooms". Unknown stays unknown: a failed parse returns nil,
// never zero.
func NormalizeCount(text string) *int {
	m := intPattern.FindString(text)
	if m == "" {
		if strings.TrimSpace(text) != "" {
			slog.Warn("failed to normalize count", "text", text)
		}
		return nil
	}

	v, err := strconv.Atoi(m)
	if err != nil {
		slog.Warn("failed to normalize count", "text", text, "error", err)
		return nil
	}
	return &v
}
