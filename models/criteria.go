package models

// Criteria is the caller-supplied search input. Location is the only
// required field; everything else narrows the search when set.
type Criteria struct {
	Location     string   `json:"location"`
	PriceMin     *float64 `json:"price_min,omitempty"`
	PriceMax     *float64 `json:"price_max,omitempty"`
	BedroomsMin  *int     `json:"bedrooms_min,omitempty"`
	BedroomsMax  *int     `json:"bedrooms_max,omitempty"`
	PropertyType string   `json:"property_type,omitempty"`
	MaxResults   int      `json:"max_results,omitempty"`
}

// Valid reports whether the criteria can be searched at all.
func (c Criteria) Valid() bool {
	return c.Location != ""
}
