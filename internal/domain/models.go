package domain

import (
	"time"
)

// Core Enums and Types

// EndpointCategory represents the protocol role of an efficacy endpoint
type EndpointCategory string

const (
	ENDPOINT_PRIMARY     EndpointCategory = "PRIMARY"
	ENDPOINT_SECONDARY   EndpointCategory = "SECONDARY"
	ENDPOINT_EXPLORATORY EndpointCategory = "EXPLORATORY"
)

// VenueType represents where a literature source was published
type VenueType string

const (
	VENUE_PEER_REVIEWED VenueType = "PEER_REVIEWED"
	VENUE_CONFERENCE    VenueType = "CONFERENCE"
	VENUE_PREPRINT      VenueType = "PREPRINT"
	VENUE_REGISTRY      VenueType = "REGISTRY"
	VENUE_CASE_REPORT   VenueType = "CASE_REPORT"
)

// SourceTier represents the quality tier of an epidemiological source (1 = best)
type SourceTier int

const (
	TIER_1 SourceTier = 1
	TIER_2 SourceTier = 2
	TIER_3 SourceTier = 3
)

// SeverityTier represents the severity class of a safety-signal category
type SeverityTier string

const (
	SEVERITY_CRITICAL SeverityTier = "CRITICAL"
	SEVERITY_MAJOR    SeverityTier = "MAJOR"
	SEVERITY_MODERATE SeverityTier = "MODERATE"
	SEVERITY_MINOR    SeverityTier = "MINOR"
)

// Evidence Models

// EfficacyEndpoint is one outcome measure extracted from a literature source.
// Optional numeric fields are pointers; absence means the source did not report them.
type EfficacyEndpoint struct {
	Name             string           `json:"name"`
	Timepoint        string           `json:"timepoint,omitempty"`
	ResponderCount   *int             `json:"responder_count,omitempty"`
	ResponderPercent *float64         `json:"responder_percent,omitempty"`
	Significant      bool             `json:"statistically_significant"`
	PValue           *float64         `json:"p_value,omitempty"`
	PercentChange    *float64         `json:"percent_change,omitempty"`
	AbsoluteChange   *float64         `json:"absolute_change,omitempty"`
	Category         EndpointCategory `json:"category"`
}

// SafetyEvent is one adverse event extracted from a literature source
type SafetyEvent struct {
	Name        string `json:"name"`
	Count       int    `json:"count,omitempty"`
	Serious     bool   `json:"serious"`
	Grade       int    `json:"grade,omitempty"`
	Relatedness string `json:"relatedness,omitempty"`
}

// PublicationMeta holds publication metadata for a literature source
type PublicationMeta struct {
	VenueType VenueType `json:"venue_type"`
	Year      int       `json:"year"`
	FollowUp  string    `json:"follow_up,omitempty"`
}

// MarketContext holds market-dimension inputs for a drug-disease pair.
// All fields are optional; missing values score at the neutral default.
type MarketContext struct {
	ApprovedCompetitors *int     `json:"approved_competitors,omitempty"`
	PatientPopulation   *int64   `json:"patient_population,omitempty"`
	UnmetNeed           *float64 `json:"unmet_need,omitempty"`
}

// EvidenceRecord is one literature source's extracted data for a drug-disease
// pair. Records are immutable once produced by the extraction collaborator.
type EvidenceRecord struct {
	SourceID       string             `json:"source_id"`
	Drug           string             `json:"drug"`
	Disease        string             `json:"disease"`
	MechanismClass string             `json:"mechanism_class,omitempty"`
	Pathway        string             `json:"pathway,omitempty"`
	SampleSize     int                `json:"sample_size"`
	Endpoints      []EfficacyEndpoint `json:"endpoints"`
	SafetyEvents   []SafetyEvent      `json:"safety_events,omitempty"`
	Publication    PublicationMeta    `json:"publication"`
	Market         *MarketContext     `json:"market,omitempty"`
	ExtractedAt    time.Time          `json:"extracted_at,omitempty"`
}

// CategoryAssignment is the output of a taxonomy classification
type CategoryAssignment struct {
	Label          string `json:"label"`
	Category       string `json:"category"`
	MatchedKeyword string `json:"matched_keyword"`
}
