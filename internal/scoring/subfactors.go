package scoring

import (
	"strings"

	"github.com/drug-repurposing-engine/internal/domain"
	"github.com/drug-repurposing-engine/internal/taxonomy"
)

const (
	adHocInstrumentScore = 4.0

	primaryEndpointBonus = 1.0
	significanceBonus    = 1.0
	pValueBonus          = 0.5
	exploratoryPenalty   = 1.0

	// positive-signal thresholds
	positiveResponderPct = 30.0
	positiveChangePct    = 20.0

	// safety penalty scaling: event rates are scaled relative to a 10%
	// reference rate, bounded so a single rare event still registers and
	// a universal event cannot erase the dimension on its own
	safetyReferenceRate   = 0.10
	safetyMinMultiplier   = 0.25
	safetyMaxMultiplier   = 3.0
	criticalPenaltyFactor = 2.0
)

// responseMagnitude buckets the best responder percentage across the
// record's endpoints. Records without responder data score neutral.
func responseMagnitude(record domain.EvidenceRecord) float64 {
	pct := bestResponderPercent(record)
	if pct == nil {
		return neutralScore
	}
	switch p := *pct; {
	case p > 80:
		return 10
	case p >= 60:
		return 8
	case p >= 40:
		return 6
	case p >= 20:
		return 4
	default:
		return 2
	}
}

// bestResponderPercent returns the highest responder percentage reported
// on any endpoint, deriving it from responder counts when only those are
// given. Values are clamped to the valid [0,100] percentage range.
func bestResponderPercent(record domain.EvidenceRecord) *float64 {
	var best *float64
	for _, ep := range record.Endpoints {
		var pct float64
		switch {
		case ep.ResponderPercent != nil:
			pct = *ep.ResponderPercent
		case ep.ResponderCount != nil && record.SampleSize > 0:
			pct = float64(*ep.ResponderCount) / float64(record.SampleSize) * 100
		default:
			continue
		}
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		if best == nil || pct > *best {
			v := pct
			best = &v
		}
	}
	return best
}

// endpointQuality averages the per-endpoint instrument base score plus
// design modifiers. The base comes from the resolved instrument mapping
// when one matches the endpoint name, falling back to the static tier
// table, and finally to the ad-hoc default for unrecognized instruments.
func endpointQuality(record domain.EvidenceRecord, instruments map[string]float64) float64 {
	if len(record.Endpoints) == 0 {
		return neutralScore
	}

	var sum float64
	for _, ep := range record.Endpoints {
		base, found := instrumentBase(ep.Name, instruments)
		if !found {
			if score, _, ok := taxonomy.InstrumentScore(ep.Name); ok {
				base = score
			} else {
				base = adHocInstrumentScore
			}
		}

		score := base
		if ep.Category == domain.ENDPOINT_PRIMARY {
			score += primaryEndpointBonus
		}
		if ep.Significant {
			score += significanceBonus
		}
		if ep.PValue != nil {
			score += pValueBonus
		}
		if ep.Category == domain.ENDPOINT_EXPLORATORY {
			score -= exploratoryPenalty
		}
		sum += score
	}
	return sum / float64(len(record.Endpoints))
}

func instrumentBase(name string, instruments map[string]float64) (float64, bool) {
	if len(instruments) == 0 {
		return 0, false
	}
	lower := strings.ToLower(name)
	if score, ok := instruments[lower]; ok {
		return score, true
	}
	for key, score := range instruments {
		k := strings.ToLower(key)
		if strings.Contains(lower, k) || strings.Contains(k, lower) {
			return score, true
		}
	}
	return 0, false
}

// endpointPositive reports whether an endpoint counts as a positive
// efficacy signal: statistically significant, a responder rate above 30%,
// or at least a 20% improvement from baseline.
func endpointPositive(ep domain.EfficacyEndpoint, sampleSize int) bool {
	if ep.Significant {
		return true
	}
	if ep.ResponderPercent != nil && *ep.ResponderPercent > positiveResponderPct {
		return true
	}
	if ep.ResponderCount != nil && sampleSize > 0 &&
		float64(*ep.ResponderCount)/float64(sampleSize)*100 > positiveResponderPct {
		return true
	}
	if ep.PercentChange != nil && abs(*ep.PercentChange) >= positiveChangePct {
		return true
	}
	if ep.AbsoluteChange != nil && abs(*ep.AbsoluteChange) >= positiveChangePct {
		return true
	}
	return false
}

func hasPositiveSignal(record domain.EvidenceRecord) bool {
	for _, ep := range record.Endpoints {
		if endpointPositive(ep, record.SampleSize) {
			return true
		}
	}
	return false
}

// organBreadth buckets the count of distinct organ domains holding at
// least one positive endpoint. Multi-system benefit is the strongest
// breadth signal; no positive endpoint at all scores below neutral.
func organBreadth(record domain.EvidenceRecord) float64 {
	domains := make(map[string]bool)
	for _, ep := range record.Endpoints {
		if !endpointPositive(ep, record.SampleSize) {
			continue
		}
		if assignment, ok := taxonomy.OrganDomain(ep.Name); ok {
			domains[assignment.Category] = true
		}
	}
	switch n := len(domains); {
	case n >= 5:
		return 10
	case n == 4:
		return 9
	case n == 3:
		return 7.5
	case n == 2:
		return 6
	case n == 1:
		return 4
	default:
		return 3
	}
}

// safetyScore starts from a clean 10 and subtracts a penalty per matched
// safety category, scaled by how often the category's events occurred in
// the study population. Critical categories never exceed twice their base
// penalty so a single disastrous signal cannot be amplified past that.
func safetyScore(record domain.EvidenceRecord) float64 {
	if len(record.SafetyEvents) == 0 {
		return 10
	}

	type bucket struct {
		category *taxonomy.SafetyCategory
		events   int
	}
	buckets := make(map[string]*bucket)
	for _, ev := range record.SafetyEvents {
		cat, _, ok := taxonomy.SafetySignal(ev.Name)
		if !ok {
			continue
		}
		b, exists := buckets[cat.Category]
		if !exists {
			b = &bucket{category: cat}
			buckets[cat.Category] = b
		}
		count := ev.Count
		if count <= 0 {
			count = 1
		}
		b.events += count
	}

	score := 10.0
	for _, b := range buckets {
		score -= categoryPenalty(b.category, b.events, record.SampleSize)
	}
	return score
}

func categoryPenalty(cat *taxonomy.SafetyCategory, events, sampleSize int) float64 {
	multiplier := 1.0
	if sampleSize > 0 {
		rate := float64(events) / float64(sampleSize)
		multiplier = rate / safetyReferenceRate
		if multiplier < safetyMinMultiplier {
			multiplier = safetyMinMultiplier
		}
		if multiplier > safetyMaxMultiplier {
			multiplier = safetyMaxMultiplier
		}
	}

	penalty := cat.BasePenalty * multiplier
	if cat.Severity == domain.SEVERITY_CRITICAL {
		if ceiling := cat.BasePenalty * criticalPenaltyFactor; penalty > ceiling {
			penalty = ceiling
		}
	}
	return penalty
}

// sampleSizeScore buckets on a rare-disease scale, where enrolments in
// the hundreds already represent large programs.
func sampleSizeScore(n int) float64 {
	switch {
	case n >= 500:
		return 10
	case n >= 100:
		return 9
	case n >= 50:
		return 8
	case n >= 20:
		return 6
	case n >= 10:
		return 5
	case n >= 5:
		return 4
	case n >= 1:
		return 3
	default:
		return neutralScore
	}
}

func venueScore(venue domain.VenueType) float64 {
	switch venue {
	case domain.VENUE_PEER_REVIEWED:
		return 10
	case domain.VENUE_CONFERENCE:
		return 7
	case domain.VENUE_REGISTRY:
		return 6
	case domain.VENUE_PREPRINT:
		return 5
	case domain.VENUE_CASE_REPORT:
		return 4
	default:
		return neutralScore
	}
}

var (
	longFollowUpTerms   = []string{"year", "12 month", "12-month", "18 month", "24 month", "52 week", "52-week", "long-term", "long term"}
	mediumFollowUpTerms = []string{"6 month", "6-month", "26 week", "26-week", "9 month"}
	shortFollowUpTerms  = []string{"week", "day", "month"}
)

// durabilityScore keys off the reported follow-up duration, with a small
// bonus for each additional endpoint that carries its own timepoint.
func durabilityScore(record domain.EvidenceRecord) float64 {
	base := neutralScore
	follow := strings.ToLower(record.Publication.FollowUp)
	switch {
	case follow == "":
		base = neutralScore
	case containsAny(follow, longFollowUpTerms):
		base = 9
	case containsAny(follow, mediumFollowUpTerms):
		base = 6.5
	case containsAny(follow, shortFollowUpTerms):
		base = 4
	}

	var timepoints int
	for _, ep := range record.Endpoints {
		if ep.Timepoint != "" {
			timepoints++
		}
	}
	if timepoints > 1 {
		bonus := 0.5 * float64(timepoints-1)
		if bonus > 1.0 {
			bonus = 1.0
		}
		base += bonus
	}
	return base
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

// completenessScore is a ten-item reporting checklist, one point each
func completenessScore(record domain.EvidenceRecord) float64 {
	var points float64
	if len(record.Endpoints) > 0 {
		points++
	}
	var hasPrimary, hasResponder, hasChange, hasStat bool
	for _, ep := range record.Endpoints {
		if ep.Category == domain.ENDPOINT_PRIMARY {
			hasPrimary = true
		}
		if ep.ResponderCount != nil || ep.ResponderPercent != nil {
			hasResponder = true
		}
		if ep.PercentChange != nil || ep.AbsoluteChange != nil {
			hasChange = true
		}
		if ep.Significant || ep.PValue != nil {
			hasStat = true
		}
	}
	if hasPrimary {
		points++
	}
	if hasResponder {
		points++
	}
	if hasChange {
		points++
	}
	if hasStat {
		points++
	}
	if record.SampleSize > 0 {
		points++
	}
	if record.Publication.Year > 0 {
		points++
	}
	if record.Publication.VenueType != "" {
		points++
	}
	if record.Publication.FollowUp != "" {
		points++
	}
	if record.MechanismClass != "" {
		points++
	}
	return points
}

func competitorScarcity(market *domain.MarketContext) float64 {
	if market == nil || market.ApprovedCompetitors == nil {
		return neutralScore
	}
	switch n := *market.ApprovedCompetitors; {
	case n <= 0:
		return 10
	case n == 1:
		return 8
	case n == 2:
		return 6
	case n <= 4:
		return 4
	default:
		return 2
	}
}

func marketSizeScore(market *domain.MarketContext) float64 {
	if market == nil || market.PatientPopulation == nil {
		return neutralScore
	}
	switch n := *market.PatientPopulation; {
	case n >= 1_000_000:
		return 10
	case n >= 200_000:
		return 8
	case n >= 50_000:
		return 6
	case n >= 10_000:
		return 4
	case n > 0:
		return 2
	default:
		return neutralScore
	}
}

// unmetNeedScore passes through the analyst-provided 0-10 rating
func unmetNeedScore(market *domain.MarketContext) float64 {
	if market == nil || market.UnmetNeed == nil {
		return neutralScore
	}
	return *market.UnmetNeed
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
