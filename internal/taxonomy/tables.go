package taxonomy

import (
	"github.com/drug-repurposing-engine/internal/domain"
)

// Entry is one (category, keyword-set) pair in an ordered taxonomy table
type Entry struct {
	Category string
	Keywords []string
}

// Table is an ordered list of taxonomy entries. Ordering is a behavioral
// contract: classification is first-match-wins, so categories with specific
// keywords must precede generic catch-alls.
type Table []Entry

// Organ-domain categories used to measure breadth of clinical response
const (
	OrganRenal            = "renal"
	OrganHepatic          = "hepatic"
	OrganCardiovascular   = "cardiovascular"
	OrganRespiratory      = "respiratory"
	OrganNeurologic       = "neurologic"
	OrganMusculoskeletal  = "musculoskeletal"
	OrganDermatologic     = "dermatologic"
	OrganHematologic      = "hematologic"
	OrganGastrointestinal = "gastrointestinal"
	OrganOphthalmic       = "ophthalmic"
	OrganEndocrine        = "endocrine_metabolic"
)

// organTable maps endpoint labels to the 11 organ-domain categories
var organTable = Table{
	{OrganRenal, []string{"renal", "kidney", "egfr", "gfr", "creatinine", "proteinuria", "albuminuria"}},
	{OrganHepatic, []string{"hepat", "liver", "bilirubin", "transaminase", "alt", "ast"}},
	{OrganCardiovascular, []string{"cardi", "heart", "ejection fraction", "lvef", "blood pressure", "vascular"}},
	{OrganRespiratory, []string{"pulmon", "lung", "respirat", "fev", "vital capacity", "dyspnea"}},
	{OrganNeurologic, []string{"neuro", "cognit", "seizure", "brain", "motor function", "edss"}},
	{OrganMusculoskeletal, []string{"muscul", "muscle", "joint", "bone", "walk", "grip strength", "motor"}},
	{OrganDermatologic, []string{"derm", "skin", "rash", "lesion", "pruritus", "pasi"}},
	{OrganHematologic, []string{"hemat", "hemoglobin", "platelet", "neutrophil", "anemia", "blood count"}},
	{OrganGastrointestinal, []string{"gastro", "intestin", "bowel", "stool", "abdominal"}},
	{OrganOphthalmic, []string{"ophthalm", "eye", "visual acuity", "retina", "vision"}},
	{OrganEndocrine, []string{"metabol", "glucose", "hba1c", "lipid", "thyroid", "insulin", "endocrin"}},
}

// InstrumentEntry maps instrument-name keywords to a quality score in [1,10].
// Tiers reflect validation pedigree: regulatory-grade objective measures score
// highest, generic clinician impressions lowest. Unmatched instruments take
// the ad-hoc default in the scorer, not here.
type InstrumentEntry struct {
	Score    float64
	Keywords []string
}

// instrumentTable is ordered most-specific first
var instrumentTable = []InstrumentEntry{
	{10.0, []string{"6-minute walk", "6mwt", "fev1", "forced vital capacity", "fvc", "hba1c", "egfr", "acr20", "acr50"}},
	{9.0, []string{"sf-36", "eq-5d", "edss", "updrs", "madrs", "hamilton", "pasi"}},
	{8.0, []string{"nyha", "ecog", "karnofsky", "mmse", "moca"}},
	{7.0, []string{"visual analog", "vas pain", "numeric rating", "nrs"}},
	{6.0, []string{"clinical global impression", "cgi", "physician global"}},
	{5.0, []string{"patient global", "caregiver global", "symptom diary"}},
}

// SafetyCategory is one MedDRA-aligned safety-signal category with its
// scoring metadata
type SafetyCategory struct {
	Category       string
	Keywords       []string
	Severity       domain.SeverityTier
	BasePenalty    float64
	RegulatoryFlag bool
}

// Safety-signal categories
const (
	SafetyHepatotoxicity      = "hepatotoxicity"
	SafetyCardiacArrhythmia   = "cardiac_arrhythmia"
	SafetyHeartFailure        = "heart_failure"
	SafetySevereCutaneous     = "severe_cutaneous_reaction"
	SafetyMalignancy          = "malignancy"
	SafetyRenalToxicity       = "renal_toxicity"
	SafetyMyelosuppression    = "myelosuppression"
	SafetyPsychiatric         = "psychiatric"
	SafetyHypersensitivity    = "hypersensitivity"
	SafetyInfection           = "infection"
	SafetyNeurologic          = "neurologic"
	SafetyGastrointestinal    = "gastrointestinal"
	SafetyGeneralTolerability = "general_tolerability"
)

// safetyTable is the 13-category MedDRA-aligned safety taxonomy, ordered so
// that critical, narrowly-keyed categories match before broad tolerability
// buckets.
var safetyTable = []SafetyCategory{
	{SafetyHepatotoxicity, []string{"hepatotox", "liver failure", "hepatitis", "transaminase elev", "alt elev", "jaundice"}, domain.SEVERITY_CRITICAL, 3.0, true},
	{SafetyCardiacArrhythmia, []string{"qt prolong", "torsade", "arrhythm", "cardiac arrest", "ventricular tachycardia"}, domain.SEVERITY_CRITICAL, 3.0, true},
	{SafetySevereCutaneous, []string{"stevens-johnson", "sjs", "toxic epidermal", "dress syndrome"}, domain.SEVERITY_CRITICAL, 3.0, true},
	{SafetyMalignancy, []string{"malignan", "lymphoma", "secondary leukemia", "carcinoma"}, domain.SEVERITY_CRITICAL, 3.0, true},
	{SafetyHeartFailure, []string{"heart failure", "cardiomyopathy", "ejection fraction decrease"}, domain.SEVERITY_MAJOR, 2.5, true},
	{SafetyRenalToxicity, []string{"renal failure", "nephrotox", "acute kidney", "creatinine increase"}, domain.SEVERITY_MAJOR, 2.5, false},
	{SafetyMyelosuppression, []string{"neutropenia", "agranulocytosis", "thrombocytopenia", "pancytopenia", "myelosuppress"}, domain.SEVERITY_MAJOR, 2.5, false},
	{SafetyPsychiatric, []string{"suicid", "psychosis", "severe depression"}, domain.SEVERITY_MAJOR, 2.0, true},
	{SafetyHypersensitivity, []string{"anaphyla", "hypersensitiv", "angioedema"}, domain.SEVERITY_MAJOR, 2.0, false},
	{SafetyInfection, []string{"sepsis", "opportunistic infection", "pneumonia", "serious infection"}, domain.SEVERITY_MODERATE, 1.5, false},
	{SafetyNeurologic, []string{"seizure", "neuropathy", "encephalopath", "tremor"}, domain.SEVERITY_MODERATE, 1.5, false},
	{SafetyGastrointestinal, []string{"nausea", "vomit", "diarrhea", "constipation", "dyspepsia"}, domain.SEVERITY_MINOR, 1.0, false},
	{SafetyGeneralTolerability, []string{"fatigue", "headache", "dizziness", "injection site", "pyrexia", "rash"}, domain.SEVERITY_MINOR, 0.5, false},
}

// OrganTable returns the ordered organ-domain taxonomy
func OrganTable() Table {
	return organTable
}

// SafetyTable returns the ordered safety-signal taxonomy
func SafetyTable() []SafetyCategory {
	return safetyTable
}
