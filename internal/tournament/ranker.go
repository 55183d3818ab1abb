package tournament

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/drug-repurposing-engine/internal/domain"
)

const (
	convergenceBonus = 0.15

	tier1Threshold = 8.0
	tier2Threshold = 6.0
	tier3Threshold = 4.0

	// finals composite weights
	weightAggregateClinical   = 0.40
	weightEvidenceVolume      = 0.30
	weightMechanismDiversity  = 0.20
	weightBiologicalCoherence = 0.10

	minReplicationRecords  = 2
	minReplicationPatients = 5
	minConsistencyRate     = 0.5

	unclassifiedMechanism = "unclassified"
)

// Ranker runs the gated tournament that assigns each mechanism class a
// confidence tier and a final composite rank.
type Ranker struct {
	log *logrus.Logger
}

// NewRanker creates a tournament ranker
func NewRanker(logger *logrus.Logger) *Ranker {
	return &Ranker{log: logger}
}

// Rank groups scored records by mechanism class, runs each group through
// the four tournament rounds, computes the finals composite for survivors,
// and returns the aggregates in final rank order. An empty input is a
// caller bug and fails fast.
func (r *Ranker) Rank(scores []domain.OpportunityScore) ([]domain.MechanismAggregate, error) {
	if len(scores) == 0 {
		return nil, fmt.Errorf("rank called with no scored records: %w", domain.ErrEmptyInput)
	}

	groups := groupByMechanism(scores)
	convergent := convergentPathways(groups)

	aggregates := make([]domain.MechanismAggregate, 0, len(groups))
	for _, group := range groups {
		agg := r.runTournament(group, convergent)
		aggregates = append(aggregates, agg)
	}

	sortAggregates(aggregates)
	for i := range aggregates {
		aggregates[i].Rank = i + 1
	}

	r.log.WithFields(logrus.Fields{
		"records":    len(scores),
		"mechanisms": len(aggregates),
	}).Info("Completed mechanism tournament")

	return aggregates, nil
}

// groupByMechanism partitions scores into per-mechanism groups in
// deterministic order. Records without a mechanism class are grouped
// under a single unclassified bucket.
func groupByMechanism(scores []domain.OpportunityScore) []domain.MechanismGroup {
	byMechanism := make(map[string]*domain.MechanismGroup)
	var order []string
	for _, score := range scores {
		mechanism := strings.ToLower(strings.TrimSpace(score.MechanismClass))
		if mechanism == "" {
			mechanism = unclassifiedMechanism
		}
		group, exists := byMechanism[mechanism]
		if !exists {
			group = &domain.MechanismGroup{Mechanism: mechanism}
			byMechanism[mechanism] = group
			order = append(order, mechanism)
		}
		if group.Pathway == "" && score.Pathway != "" {
			group.Pathway = strings.ToLower(strings.TrimSpace(score.Pathway))
		}
		group.Scores = append(group.Scores, score)
	}

	sort.Strings(order)
	groups := make([]domain.MechanismGroup, 0, len(order))
	for _, mechanism := range order {
		groups = append(groups, *byMechanism[mechanism])
	}
	return groups
}

// convergentPathways returns the pathways targeted by two or more distinct
// mechanism classes that each carry at least one positive signal. Members
// of such a pathway earn the convergence bonus in Round 4.
func convergentPathways(groups []domain.MechanismGroup) map[string]bool {
	positiveMechanisms := make(map[string]int)
	for _, group := range groups {
		if group.Pathway == "" {
			continue
		}
		if hasPositiveRecord(group.Scores) {
			positiveMechanisms[group.Pathway]++
		}
	}

	convergent := make(map[string]bool)
	for pathway, count := range positiveMechanisms {
		if count >= 2 {
			convergent[pathway] = true
		}
	}
	return convergent
}

func hasPositiveRecord(scores []domain.OpportunityScore) bool {
	for _, s := range scores {
		if s.PositiveSignal {
			return true
		}
	}
	return false
}

// runTournament aggregates one mechanism group and walks it through the
// four rounds. A failed gate is terminal: the aggregate keeps the rounds
// played so far, a zero composite, and the gate's terminal tier.
func (r *Ranker) runTournament(group domain.MechanismGroup, convergent map[string]bool) domain.MechanismAggregate {
	agg := aggregate(group)

	// Round 1: Signal Detection
	positives := positiveCount(group.Scores)
	round1 := domain.RoundResult{
		Round:  domain.ROUND_SIGNAL,
		Name:   "Signal Detection",
		Passed: positives >= 1,
		Reason: fmt.Sprintf("%d of %d records with positive efficacy signal", positives, agg.PaperCount),
	}
	agg.Rounds = append(agg.Rounds, round1)
	if !round1.Passed {
		return r.eliminate(agg, domain.TIER_HYPOTHESIS_ONLY)
	}

	// Round 2: Replication
	round2 := domain.RoundResult{
		Round:  domain.ROUND_REPLICATION,
		Name:   "Replication",
		Passed: agg.PaperCount >= minReplicationRecords || agg.TotalPatients >= minReplicationPatients,
		Reason: fmt.Sprintf("%d independent records, %d total patients", agg.PaperCount, agg.TotalPatients),
	}
	agg.Rounds = append(agg.Rounds, round2)
	if !round2.Passed {
		return r.eliminate(agg, domain.TIER_HYPOTHESIS_ONLY)
	}

	// Round 3: Consistency
	round3 := domain.RoundResult{
		Round:  domain.ROUND_CONSISTENCY,
		Name:   "Consistency",
		Passed: agg.ConsistencyRate >= minConsistencyRate,
		Reason: fmt.Sprintf("%.0f%% of records with positive signal", agg.ConsistencyRate*100),
	}
	agg.Rounds = append(agg.Rounds, round3)
	if !round3.Passed {
		return r.eliminate(agg, domain.TIER_INCONSISTENT)
	}

	// Round 4: Convergence. Never a failure gate; a shared pathway with
	// another positive mechanism earns a multiplicative bonus in the finals.
	agg.ConvergenceBonus = group.Pathway != "" && convergent[group.Pathway]
	reason := "no convergent pathway"
	if agg.ConvergenceBonus {
		reason = fmt.Sprintf("pathway %q shared with another positive mechanism", group.Pathway)
	}
	agg.Rounds = append(agg.Rounds, domain.RoundResult{
		Round:  domain.ROUND_CONVERGENCE,
		Name:   "Convergence",
		Passed: true,
		Reason: reason,
	})

	agg.CompositeScore = r.finalsComposite(agg)
	agg.Tier = tierFor(agg.CompositeScore)
	return agg
}

func (r *Ranker) eliminate(agg domain.MechanismAggregate, tier domain.ConfidenceTier) domain.MechanismAggregate {
	agg.Tier = tier
	agg.CompositeScore = 0
	r.log.WithFields(logrus.Fields{
		"mechanism": agg.Mechanism,
		"round":     len(agg.Rounds),
		"tier":      tier,
	}).Debug("Mechanism eliminated from tournament")
	return agg
}

// aggregate computes the per-mechanism rollup statistics
func aggregate(group domain.MechanismGroup) domain.MechanismAggregate {
	agg := domain.MechanismAggregate{
		Mechanism:  group.Mechanism,
		Pathway:    group.Pathway,
		PaperCount: len(group.Scores),
	}

	drugs := make(map[string]bool)
	var responseWeight, responseSum float64
	for _, score := range group.Scores {
		agg.TotalPatients += score.SampleSize
		if score.Drug != "" {
			drugs[strings.ToLower(score.Drug)] = true
		}
		if score.Year > 0 && (agg.FirstEvidenceYear == 0 || score.Year < agg.FirstEvidenceYear) {
			agg.FirstEvidenceYear = score.Year
		}
		if score.ResponderPercent != nil {
			weight := float64(score.SampleSize)
			if weight <= 0 {
				weight = 1
			}
			responseSum += *score.ResponderPercent * weight
			responseWeight += weight
		}
	}
	agg.UniqueDrugs = len(drugs)
	if responseWeight > 0 {
		agg.WeightedResponseRate = responseSum / responseWeight
	}
	if agg.PaperCount > 0 {
		agg.ConsistencyRate = float64(positiveCount(group.Scores)) / float64(agg.PaperCount)
	}
	return agg
}

func positiveCount(scores []domain.OpportunityScore) int {
	var n int
	for _, s := range scores {
		if s.PositiveSignal {
			n++
		}
	}
	return n
}

// finalsComposite combines the four finals terms, each scaled to [0,10],
// then applies the convergence bonus. Capped at 10.
func (r *Ranker) finalsComposite(agg domain.MechanismAggregate) float64 {
	clinical := aggregateClinicalTerm(agg)
	volume := evidenceVolumeTerm(agg.TotalPatients, agg.PaperCount)
	diversity := mechanismDiversityTerm(agg.UniqueDrugs, agg.ConsistencyRate)
	coherence := biologicalCoherenceTerm(agg.ConvergenceBonus)

	composite := weightAggregateClinical*clinical +
		weightEvidenceVolume*volume +
		weightMechanismDiversity*diversity +
		weightBiologicalCoherence*coherence

	if agg.ConvergenceBonus {
		composite *= 1 + convergenceBonus
	}
	if composite > 10 {
		composite = 10
	}
	return composite
}

// aggregateClinicalTerm maps the sample-weighted response rate onto the
// ten-point scale. Mechanisms with no responder data at all sit at the
// neutral midpoint.
func aggregateClinicalTerm(agg domain.MechanismAggregate) float64 {
	if agg.WeightedResponseRate <= 0 {
		return 5
	}
	return agg.WeightedResponseRate / 10
}

// evidenceVolumeTerm buckets total patients x paper count on a
// rare-disease scale
func evidenceVolumeTerm(totalPatients, paperCount int) float64 {
	volume := totalPatients * paperCount
	switch {
	case volume >= 1000:
		return 10
	case volume >= 500:
		return 9
	case volume >= 200:
		return 8
	case volume >= 100:
		return 7
	case volume >= 50:
		return 6
	case volume >= 20:
		return 5
	case volume >= 10:
		return 4
	case volume >= 5:
		return 3
	case volume >= 1:
		return 2
	default:
		return 1
	}
}

// mechanismDiversityTerm scales unique-drug count x consistency rate so
// that four fully consistent drugs saturate the scale
func mechanismDiversityTerm(uniqueDrugs int, consistencyRate float64) float64 {
	term := float64(uniqueDrugs) * consistencyRate * 2.5
	if term > 10 {
		term = 10
	}
	return term
}

func biologicalCoherenceTerm(convergent bool) float64 {
	if convergent {
		return 10
	}
	return 5
}

// tierFor assigns the final confidence tier from the composite score.
// Below the hypothesis-generating threshold the mechanism keeps no
// elevated tier despite surviving the gates.
func tierFor(composite float64) domain.ConfidenceTier {
	switch {
	case composite >= tier1Threshold:
		return domain.TIER_HIGH_CONFIDENCE
	case composite >= tier2Threshold:
		return domain.TIER_MODERATE
	case composite >= tier3Threshold:
		return domain.TIER_HYPOTHESIS_GENERATING
	default:
		return domain.TIER_HYPOTHESIS_ONLY
	}
}

// sortAggregates orders by composite descending, breaking ties by total
// patient count descending, then by earliest first-evidence year. Unknown
// years sort last among otherwise equal mechanisms.
func sortAggregates(aggregates []domain.MechanismAggregate) {
	sort.SliceStable(aggregates, func(i, j int) bool {
		a, b := aggregates[i], aggregates[j]
		if a.CompositeScore != b.CompositeScore {
			return a.CompositeScore > b.CompositeScore
		}
		if a.TotalPatients != b.TotalPatients {
			return a.TotalPatients > b.TotalPatients
		}
		return yearKey(a.FirstEvidenceYear) < yearKey(b.FirstEvidenceYear)
	})
}

func yearKey(year int) int {
	if year == 0 {
		return int(^uint(0) >> 1)
	}
	return year
}
