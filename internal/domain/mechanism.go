package domain

// ConfidenceTier represents the evidentiary-strength bucket assigned to a
// mechanism class by the tournament ranker
type ConfidenceTier string

const (
	TIER_HIGH_CONFIDENCE       ConfidenceTier = "Tier 1 (High Confidence)"
	TIER_MODERATE              ConfidenceTier = "Tier 2 (Moderate)"
	TIER_HYPOTHESIS_GENERATING ConfidenceTier = "Tier 3 (Hypothesis-Generating)"
	TIER_INCONSISTENT          ConfidenceTier = "Inconsistent"
	TIER_HYPOTHESIS_ONLY       ConfidenceTier = "Hypothesis Only"
)

// Tournament round numbers
const (
	ROUND_SIGNAL      = 1
	ROUND_REPLICATION = 2
	ROUND_CONSISTENCY = 3
	ROUND_CONVERGENCE = 4
)

// RoundResult records the outcome of one tournament round for a mechanism
type RoundResult struct {
	Round  int    `json:"round"`
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Reason string `json:"reason"`
}

// MechanismGroup is the ranker's input: all scored records sharing a
// mechanism class, plus the biological pathway that class targets
type MechanismGroup struct {
	Mechanism string             `json:"mechanism"`
	Pathway   string             `json:"pathway,omitempty"`
	Scores    []OpportunityScore `json:"scores"`
}

// MechanismAggregate is the rollup over all OpportunityScores sharing a
// mechanism class, including the tournament outcome. Built fresh per run.
type MechanismAggregate struct {
	Mechanism            string         `json:"mechanism"`
	Pathway              string         `json:"pathway,omitempty"`
	PaperCount           int            `json:"paper_count"`
	TotalPatients        int            `json:"total_patients"`
	UniqueDrugs          int            `json:"unique_drugs"`
	WeightedResponseRate float64        `json:"weighted_response_rate"`
	ConsistencyRate      float64        `json:"consistency_rate"`
	FirstEvidenceYear    int            `json:"first_evidence_year,omitempty"`
	Rounds               []RoundResult  `json:"rounds"`
	ConvergenceBonus     bool           `json:"convergence_bonus"`
	CompositeScore       float64        `json:"composite_score"`
	Tier                 ConfidenceTier `json:"tier"`
	Rank                 int            `json:"rank,omitempty"`
}
