package evaluator

import (
	"strings"

	"github.com/herbtrace/herbtrace/internal/compliance/domain"
)

// Keyword buckets, first match wins. Retained for violation rows persisted
// before severity was tagged at generation time; new rows read
// Violation.Severity directly.
var severityBuckets = []struct {
	severity domain.Severity
	keywords []string
}{
	{domain.SeverityCritical, []string{"heavy metal", "pesticide", "contamination"}},
	{domain.SeverityHigh, []string{"purity", "quality", "species"}},
	{domain.SeverityMedium, []string{"season", "geo-fencing", "zone", "location"}},
}

// ClassifySeverity maps a free-text violation message to a severity tier.
func ClassifySeverity(message string) domain.Severity {
	lowered := strings.ToLower(message)
	for _, bucket := range severityBuckets {
		for _, keyword := range bucket.keywords {
			if strings.Contains(lowered, keyword) {
				return bucket.severity
			}
		}
	}
	return domain.SeverityLow
}
