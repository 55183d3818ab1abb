package taxonomy

import (
	"strings"

	"github.com/drug-repurposing-engine/internal/domain"
)

// Classify maps a free-text label to a category via keyword-set membership.
// The label is lower-cased and the first category whose keyword set contains
// a substring match wins; table ordering decides ties. A miss returns
// ok == false and the caller supplies its own default.
func Classify(label string, table Table) (domain.CategoryAssignment, bool) {
	lowered := strings.ToLower(label)
	for _, entry := range table {
		for _, kw := range entry.Keywords {
			if strings.Contains(lowered, kw) {
				return domain.CategoryAssignment{
					Label:          label,
					Category:       entry.Category,
					MatchedKeyword: kw,
				}, true
			}
		}
	}
	return domain.CategoryAssignment{Label: label}, false
}

// OrganDomain classifies an endpoint label into one of the 11 organ-domain
// categories
func OrganDomain(label string) (domain.CategoryAssignment, bool) {
	return Classify(label, organTable)
}

// InstrumentScore returns the quality-tier score for a matched instrument
// name. Unlike the other taxonomies the result is a numeric score, not a
// category label. A miss returns ok == false; the scorer applies its ad-hoc
// default.
func InstrumentScore(label string) (float64, string, bool) {
	lowered := strings.ToLower(label)
	for _, entry := range instrumentTable {
		for _, kw := range entry.Keywords {
			if strings.Contains(lowered, kw) {
				return entry.Score, kw, true
			}
		}
	}
	return 0, "", false
}

// SafetySignal classifies an adverse-event name into one of the 13
// MedDRA-aligned safety categories, returning the category metadata needed
// for penalty scoring.
func SafetySignal(label string) (*SafetyCategory, domain.CategoryAssignment, bool) {
	lowered := strings.ToLower(label)
	for i := range safetyTable {
		for _, kw := range safetyTable[i].Keywords {
			if strings.Contains(lowered, kw) {
				return &safetyTable[i], domain.CategoryAssignment{
					Label:          label,
					Category:       safetyTable[i].Category,
					MatchedKeyword: kw,
				}, true
			}
		}
	}
	return nil, domain.CategoryAssignment{Label: label}, false
}
