package models

// FareCode identifies a sellable fare and the cabin class it maps to.
type FareCode struct {
	Code       string `yaml:"code" json:"code"`
	CabinClass string `yaml:"cabin_class" json:"cabin_class"`
	Refundable bool   `yaml:"refundable" json:"refundable"`
	Changeable bool   `yaml:"changeable" json:"changeable"`
	BaggageKG  int64  `yaml:"baggage_kg" json:"baggage_kg"`
	IsActive   bool   `yaml:"is_active" json:"is_active"`
}

// Pricing rule dimensions. Buckets are lower bounds: the best match for a
// value is the rule with the largest bucket that does not exceed it.
const (
	DimensionDaysToDeparture = "days_to_departure"
	DimensionLengthOfStay    = "length_of_stay"
)

// PricingRule maps a context bucket to a willingness-to-pay base value.
type PricingRule struct {
	ID        int64   `yaml:"id" json:"id"`
	Dimension string  `yaml:"dimension" json:"dimension"`
	Bucket    int64   `yaml:"bucket" json:"bucket"`
	BaseValue float64 `yaml:"base_value" json:"base_value"`
}

// AncillaryProduct is a priced add-on (baggage, meal, lounge...).
type AncillaryProduct struct {
	ID        int64   `yaml:"id" json:"id"`
	Name      string  `yaml:"name" json:"name"`
	UnitPrice float64 `yaml:"unit_price" json:"unit_price"`
	IsActive  bool    `yaml:"is_active" json:"is_active"`
}
