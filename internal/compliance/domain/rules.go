package domain

import "time"

// Zone is an approved harvesting area: a center point plus a radius.
type Zone struct {
	Name         string
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
}

// RuleSet holds the static rule configuration the evaluator runs against.
// The shipped constants are demo-grade; keeping them behind RuleSet lets
// per-species or per-region configuration be injected without touching the
// evaluator.
type RuleSet struct {
	Zones []Zone

	// Inclusive calendar-month harvest window.
	SeasonStartMonth time.Month
	SeasonEndMonth   time.Month

	MinPurityPercent   float64
	MaxMoisturePercent float64
	MaxAshPercent      float64

	// Heavy-metal ceilings in ppm, keyed by lowercase metal name.
	HeavyMetalLimitsPPM map[string]float64

	ApprovedSpecies []string
}

// DefaultRuleSet returns the shipped rule configuration.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Zones: []Zone{
			{Name: "Bangalore Collection Zone", Latitude: 12.9716, Longitude: 77.5946, RadiusMeters: 1000},
			{Name: "Mysore Collection Zone", Latitude: 12.2958, Longitude: 76.6394, RadiusMeters: 1500},
			{Name: "Coorg Collection Zone", Latitude: 12.3375, Longitude: 75.8069, RadiusMeters: 2000},
			{Name: "Ooty Collection Zone", Latitude: 11.4102, Longitude: 76.6950, RadiusMeters: 1500},
		},
		SeasonStartMonth: time.March,
		SeasonEndMonth:   time.November,

		MinPurityPercent:   95,
		MaxMoisturePercent: 12,
		MaxAshPercent:      8,

		HeavyMetalLimitsPPM: map[string]float64{
			"lead":    10,
			"cadmium": 2,
			"mercury": 1,
			"arsenic": 5,
		},

		ApprovedSpecies: []string{
			"Ashwagandha",
			"Tulsi",
			"Brahmi",
			"Neem",
			"Amla",
			"Turmeric",
			"Shatavari",
			"Giloy",
		},
	}
}
