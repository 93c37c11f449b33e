package scheduler

import (
	"testing"

	"proplens/config"
)

func TestCriteriaFrom(t *testing.T) {
	search := config.SavedSearch{
		Name:         "london-family-homes",
		Location:     "London",
		PriceMin:     400000,
		PriceMax:     900000,
		BedroomsMin:  3,
		PropertyType: "houses",
		MaxResults:   100,
	}

	criteria := criteriaFrom(search)
	if criteria.Location != "London" {
		t.Errorf("location = %q", criteria.Location)
	}
	if criteria.PriceMin == nil || *criteria.PriceMin != 400000 {
		t.Errorf("price min = %v, want 400000", criteria.PriceMin)
	}
	if criteria.PriceMax == nil || *criteria.PriceMax != 900000 {
		t.Errorf("price max = %v, want 900000", criteria.PriceMax)
	}
	if criteria.BedroomsMin == nil || *criteria.BedroomsMin != 3 {
		t.Errorf("bedrooms min = %v, want 3", criteria.BedroomsMin)
	}
	if criteria.BedroomsMax != nil {
		t.Errorf("bedrooms max = %v, want nil for unset", criteria.BedroomsMax)
	}
	if criteria.PropertyType != "houses" {
		t.Errorf("property type = %q", criteria.PropertyType)
	}
	if !criteria.Valid() {
		t.Error("converted criteria invalid")
	}
}

func TestCriteriaFromZeroValues(t *testing.T) {
	criteria := criteriaFrom(config.SavedSearch{Location: "Leeds"})
	if criteria.PriceMin != nil || criteria.PriceMax != nil ||
		criteria.BedroomsMin != nil || criteria.BedroomsMax != nil {
		t.Errorf("zero-valued bounds should stay unset: %+v", criteria)
	}
}
