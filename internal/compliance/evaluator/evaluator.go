// Package evaluator holds the pure compliance rule checks. Evaluate never
// touches storage or the clock beyond the caller-supplied timestamp, so
// verdicts are deterministic for a given snapshot and rule set.
package evaluator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/herbtrace/herbtrace/internal/compliance/domain"
	"github.com/herbtrace/herbtrace/internal/geo"
)

// Evaluate runs the four rule categories against the snapshot and aggregates
// the result. Violations keep generation order: geo, seasonal, quality,
// species. Overall is the AND of the four category flags.
func Evaluate(snap domain.Snapshot, rules domain.RuleSet, now time.Time) domain.Status {
	status := domain.Status{LastChecked: now.UTC()}

	var violations []domain.Violation

	status.GeoFencing, violations = checkGeoFencing(snap, rules, violations)
	status.Seasonal, violations = checkSeasonal(snap, rules, violations)
	status.Quality, violations = checkQuality(snap, rules, violations)
	status.Species, violations = checkSpecies(snap, rules, violations)

	status.Overall = status.GeoFencing && status.Seasonal && status.Quality && status.Species
	status.Violations = violations
	return status
}

// checkGeoFencing fails closed: a point outside every configured zone fails.
func checkGeoFencing(snap domain.Snapshot, rules domain.RuleSet, violations []domain.Violation) (bool, []domain.Violation) {
	for _, zone := range rules.Zones {
		d := geo.DistanceMeters(snap.Latitude, snap.Longitude, zone.Latitude, zone.Longitude)
		if d <= zone.RadiusMeters {
			return true, violations
		}
	}
	return false, append(violations, domain.Violation{
		Kind:     domain.KindGeoFencing,
		Severity: domain.SeverityMedium,
		Message:  "Harvest location outside approved zones",
	})
}

func checkSeasonal(snap domain.Snapshot, rules domain.RuleSet, violations []domain.Violation) (bool, []domain.Violation) {
	month := snap.HarvestDate.Month()
	if month >= rules.SeasonStartMonth && month <= rules.SeasonEndMonth {
		return true, violations
	}
	return false, append(violations, domain.Violation{
		Kind:     domain.KindSeasonal,
		Severity: domain.SeverityMedium,
		Message: fmt.Sprintf("Harvest outside approved season (months %d-%d)",
			rules.SeasonStartMonth, rules.SeasonEndMonth),
	})
}

func checkQuality(snap domain.Snapshot, rules domain.RuleSet, violations []domain.Violation) (bool, []domain.Violation) {
	if !snap.HasQualityMetrics {
		return false, append(violations, domain.Violation{
			Kind:     domain.KindQualityMissing,
			Severity: domain.SeverityHigh,
			Message:  "No quality metrics available",
		})
	}

	before := len(violations)

	if snap.Purity != nil && *snap.Purity < rules.MinPurityPercent {
		violations = append(violations, domain.Violation{
			Kind:     domain.KindQualityPurity,
			Severity: domain.SeverityHigh,
			Message:  fmt.Sprintf("Purity %.1f%% below minimum %.0f%%", *snap.Purity, rules.MinPurityPercent),
		})
	}
	if snap.Moisture != nil && *snap.Moisture > rules.MaxMoisturePercent {
		violations = append(violations, domain.Violation{
			Kind:     domain.KindQualityMoisture,
			Severity: domain.SeverityHigh,
			Message:  fmt.Sprintf("Moisture content %.1f%% exceeds maximum %.0f%%", *snap.Moisture, rules.MaxMoisturePercent),
		})
	}
	if snap.AshContent != nil && *snap.AshContent > rules.MaxAshPercent {
		violations = append(violations, domain.Violation{
			Kind:     domain.KindQualityAsh,
			Severity: domain.SeverityHigh,
			Message:  fmt.Sprintf("Ash content %.1f%% exceeds maximum %.0f%%", *snap.AshContent, rules.MaxAshPercent),
		})
	}

	// Stable metal ordering keeps verdicts byte-identical between runs.
	metals := make([]string, 0, len(snap.HeavyMetals))
	for metal := range snap.HeavyMetals {
		metals = append(metals, metal)
	}
	sort.Strings(metals)
	for _, metal := range metals {
		limit, ok := rules.HeavyMetalLimitsPPM[strings.ToLower(metal)]
		if !ok {
			continue
		}
		reading := snap.HeavyMetals[metal]
		if reading > limit {
			violations = append(violations, domain.Violation{
				Kind:     domain.KindQualityHeavyMetal,
				Severity: domain.SeverityCritical,
				Message:  fmt.Sprintf("Heavy metal %s at %.1f ppm exceeds limit of %.1f ppm", strings.ToLower(metal), reading, limit),
			})
		}
	}

	return len(violations) == before, violations
}

func checkSpecies(snap domain.Snapshot, rules domain.RuleSet, violations []domain.Violation) (bool, []domain.Violation) {
	for _, approved := range rules.ApprovedSpecies {
		if strings.EqualFold(strings.TrimSpace(snap.Species), approved) {
			return true, violations
		}
	}
	return false, append(violations, domain.Violation{
		Kind:     domain.KindSpecies,
		Severity: domain.SeverityHigh,
		Message:  "Species not approved for harvesting",
	})
}
