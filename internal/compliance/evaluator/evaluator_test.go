package evaluator

import (
	"testing"
	"time"

	"github.com/herbtrace/herbtrace/internal/compliance/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func compliantSnapshot() domain.Snapshot {
	return domain.Snapshot{
		Species:           "Ashwagandha",
		HarvestDate:       time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC),
		Latitude:          12.9716,
		Longitude:         77.5946,
		HasQualityMetrics: true,
		Purity:            f(97.5),
		Moisture:          f(10),
		AshContent:        f(6),
		HeavyMetals:       map[string]float64{"lead": 2, "cadmium": 0.5, "mercury": 0.2, "arsenic": 1},
	}
}

func TestEvaluate_FullyCompliant(t *testing.T) {
	status := Evaluate(compliantSnapshot(), domain.DefaultRuleSet(), time.Now())

	assert.True(t, status.GeoFencing)
	assert.True(t, status.Seasonal)
	assert.True(t, status.Quality)
	assert.True(t, status.Species)
	assert.True(t, status.Overall)
	assert.Empty(t, status.Violations)
}

func TestEvaluate_Deterministic(t *testing.T) {
	snap := compliantSnapshot()
	snap.Purity = f(80)
	snap.HeavyMetals = map[string]float64{"mercury": 3, "lead": 50, "arsenic": 9}
	rules := domain.DefaultRuleSet()
	now := time.Date(2025, time.July, 1, 12, 0, 0, 0, time.UTC)

	first := Evaluate(snap, rules, now)
	second := Evaluate(snap, rules, now)
	assert.Equal(t, first, second)
}

func TestEvaluate_OverallIsANDOfFlags(t *testing.T) {
	snap := compliantSnapshot()
	snap.Species = "Cannabis"

	status := Evaluate(snap, domain.DefaultRuleSet(), time.Now())
	assert.False(t, status.Species)
	assert.Equal(t, status.Overall,
		status.GeoFencing && status.Seasonal && status.Quality && status.Species)
	assert.False(t, status.Overall)
}

func TestEvaluate_GeoFencing(t *testing.T) {
	rules := domain.DefaultRuleSet()

	// ~500 m north of the Bangalore zone center passes (radius 1,000 m).
	inside := compliantSnapshot()
	inside.Latitude = 12.9761
	assert.True(t, Evaluate(inside, rules, time.Now()).GeoFencing)

	// ~1,200 m north fails.
	outside := compliantSnapshot()
	outside.Latitude = 12.9824
	status := Evaluate(outside, rules, time.Now())
	assert.False(t, status.GeoFencing)
	require.Len(t, status.Violations, 1)
	assert.Equal(t, domain.KindGeoFencing, status.Violations[0].Kind)
	assert.Equal(t, "Harvest location outside approved zones", status.Violations[0].Message)
}

func TestEvaluate_GeoFencingFailsClosedWithoutZones(t *testing.T) {
	rules := domain.DefaultRuleSet()
	rules.Zones = nil

	status := Evaluate(compliantSnapshot(), rules, time.Now())
	assert.False(t, status.GeoFencing)
}

func TestEvaluate_SeasonalBoundaries(t *testing.T) {
	rules := domain.DefaultRuleSet()

	cases := []struct {
		month time.Month
		pass  bool
	}{
		{time.February, false},
		{time.March, true},
		{time.November, true},
		{time.December, false},
	}
	for _, tc := range cases {
		snap := compliantSnapshot()
		snap.HarvestDate = time.Date(2025, tc.month, 10, 0, 0, 0, 0, time.UTC)
		status := Evaluate(snap, rules, time.Now())
		assert.Equal(t, tc.pass, status.Seasonal, "month %s", tc.month)
	}
}

func TestEvaluate_QualityMissingMetrics(t *testing.T) {
	snap := compliantSnapshot()
	snap.HasQualityMetrics = false
	snap.Purity = nil
	snap.Moisture = nil
	snap.AshContent = nil
	snap.HeavyMetals = nil

	status := Evaluate(snap, domain.DefaultRuleSet(), time.Now())
	assert.False(t, status.Quality)
	require.Len(t, status.Violations, 1)
	assert.Equal(t, domain.KindQualityMissing, status.Violations[0].Kind)
	assert.Equal(t, "No quality metrics available", status.Violations[0].Message)
}

func TestEvaluate_PurityThresholdEdges(t *testing.T) {
	rules := domain.DefaultRuleSet()

	exact := compliantSnapshot()
	exact.Purity = f(95)
	assert.True(t, Evaluate(exact, rules, time.Now()).Quality)

	below := compliantSnapshot()
	below.Purity = f(94.9)
	status := Evaluate(below, rules, time.Now())
	assert.False(t, status.Quality)
	require.Len(t, status.Violations, 1)
	assert.Equal(t, domain.KindQualityPurity, status.Violations[0].Kind)
	assert.Contains(t, status.Violations[0].Message, "Purity")
}

func TestEvaluate_HeavyMetalEdges(t *testing.T) {
	rules := domain.DefaultRuleSet()

	exact := compliantSnapshot()
	exact.HeavyMetals = map[string]float64{"lead": 10}
	assert.True(t, Evaluate(exact, rules, time.Now()).Quality)

	over := compliantSnapshot()
	over.HeavyMetals = map[string]float64{"lead": 10.1}
	status := Evaluate(over, rules, time.Now())
	assert.False(t, status.Quality)
	require.Len(t, status.Violations, 1)
	assert.Equal(t, domain.KindQualityHeavyMetal, status.Violations[0].Kind)
	assert.Equal(t, domain.SeverityCritical, status.Violations[0].Severity)
}

func TestEvaluate_EachMetalExceedanceIsOwnViolation(t *testing.T) {
	snap := compliantSnapshot()
	snap.HeavyMetals = map[string]float64{"lead": 50, "mercury": 2, "cadmium": 1}

	status := Evaluate(snap, domain.DefaultRuleSet(), time.Now())
	assert.False(t, status.Quality)
	require.Len(t, status.Violations, 2)
	// Sorted metal order: lead before mercury.
	assert.Contains(t, status.Violations[0].Message, "lead")
	assert.Contains(t, status.Violations[1].Message, "mercury")
}

func TestEvaluate_SpeciesWhitelistCaseInsensitive(t *testing.T) {
	rules := domain.DefaultRuleSet()

	snap := compliantSnapshot()
	snap.Species = "ashwagandha"
	assert.True(t, Evaluate(snap, rules, time.Now()).Species)

	snap.Species = "Datura"
	status := Evaluate(snap, rules, time.Now())
	assert.False(t, status.Species)
	require.Len(t, status.Violations, 1)
	assert.Equal(t, "Species not approved for harvesting", status.Violations[0].Message)
}

func TestEvaluate_ViolationOrderAcrossCategories(t *testing.T) {
	snap := domain.Snapshot{
		Species:     "Datura",
		HarvestDate: time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC),
		Latitude:    0,
		Longitude:   0,
	}

	status := Evaluate(snap, domain.DefaultRuleSet(), time.Now())
	require.Len(t, status.Violations, 4)
	assert.Equal(t, domain.KindGeoFencing, status.Violations[0].Kind)
	assert.Equal(t, domain.KindSeasonal, status.Violations[1].Kind)
	assert.Equal(t, domain.KindQualityMissing, status.Violations[2].Kind)
	assert.Equal(t, domain.KindSpecies, status.Violations[3].Kind)
}

// Batch inside an approved zone, harvested in month 1, no quality metrics:
// exactly one seasonal and one quality violation, overall fail.
func TestEvaluate_EndToEndScenario(t *testing.T) {
	snap := domain.Snapshot{
		Species:     "Ashwagandha",
		HarvestDate: time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
		Latitude:    12.9716,
		Longitude:   77.5946,
	}

	status := Evaluate(snap, domain.DefaultRuleSet(), time.Now())
	assert.True(t, status.GeoFencing)
	assert.True(t, status.Species)
	assert.False(t, status.Seasonal)
	assert.False(t, status.Quality)
	assert.False(t, status.Overall)
	require.Len(t, status.Violations, 2)
	assert.Equal(t, domain.KindSeasonal, status.Violations[0].Kind)
	assert.Equal(t, domain.KindQualityMissing, status.Violations[1].Kind)
}
