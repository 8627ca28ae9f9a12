package domain

// Stage bounds for the maturity ladder.
const (
	MinStage = 0
	MaxStage = 4
)

// MaxRationaleWords caps the scoring rationale length.
const MaxRationaleWords = 80

// DimensionScore is the scored outcome for one theme.
// Invariants: stage 0 whenever the evidence-sufficiency gate fails, and the
// stage is the highest one whose full (cumulative) signal set is satisfied.
type DimensionScore struct {
	ThemeCode  string           `json:"theme_code"`
	Stage      int              `json:"stage"`
	Confidence float64          `json:"confidence"`
	Rationale  string           `json:"rationale"`
	Evidence   []EvidenceRecord `json:"evidence"`
}

// ScoredRecord is the assembled output of one scoring pass.
// DeterminismHash is the canonical hash of the theme-sorted dimension scores;
// Alpha and K are recorded because they affect it.
type ScoredRecord struct {
	Dimensions      []DimensionScore `json:"dimensions"`
	OverallMaturity float64          `json:"overall_maturity"`
	DeterminismHash string           `json:"determinism_hash"`
	Alpha           float64          `json:"alpha"`
	K               int              `json:"k"`
}
