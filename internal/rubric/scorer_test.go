package rubric

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/stagegate/internal/domain"
)

func testDef() Definition {
	return Definition{
		"climate": ThemeRubric{
			1: {RequiredSignals: []string{"policy"}, MinQuotes: 2, MinPages: 2},
			2: {RequiredSignals: []string{"reduction target"}},
			3: {RequiredSignals: []string{"time-bound"}},
			4: {RequiredSignals: []string{"third-party assurance"}},
		},
	}
}

func rec(id string, page int, quote string) domain.EvidenceRecord {
	return domain.EvidenceRecord{ThemeCode: "climate", ChunkID: id, PageNo: page, Quote: quote}
}

func newScorer() *Scorer {
	return NewScorer(testDef(), zap.NewNop())
}

func TestScore_RubricNotFound(t *testing.T) {
	_, err := newScorer().Score("unknown-theme", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrRubricNotFound) {
		t.Errorf("expected ErrRubricNotFound, got %v", err)
	}
	var nf *domain.RubricNotFoundError
	if !errors.As(err, &nf) || nf.Theme != "unknown-theme" {
		t.Errorf("error must name the theme, got %v", err)
	}
}

func TestScore_GateFails_SinglePage(t *testing.T) {
	// Two quotes, both from page 1: only one distinct page, gate fails.
	ev := []domain.EvidenceRecord{
		rec("c1", 1, "our climate policy is published"),
		rec("c2", 1, "the policy covers all sites"),
	}

	score, err := newScorer().Score("climate", ev)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score.Stage != 0 {
		t.Errorf("stage = %d, want 0 (gate requires 2 distinct pages)", score.Stage)
	}
	if !strings.Contains(score.Rationale, "insufficient evidence") {
		t.Errorf("rationale must document the gate failure: %q", score.Rationale)
	}
}

func TestScore_GateFails_TooFewQuotes(t *testing.T) {
	ev := []domain.EvidenceRecord{rec("c1", 1, "policy")}

	score, err := newScorer().Score("climate", ev)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score.Stage != 0 {
		t.Errorf("stage = %d, want 0", score.Stage)
	}
	if score.Confidence <= 0 || score.Confidence > 0.3 {
		t.Errorf("thin evidence confidence = %v, want small but nonzero", score.Confidence)
	}
}

func TestScore_NoEvidence(t *testing.T) {
	score, err := newScorer().Score("climate", nil)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score.Stage != 0 {
		t.Errorf("stage = %d, want 0", score.Stage)
	}
	if score.Confidence != 0 {
		t.Errorf("zero evidence confidence = %v, want 0", score.Confidence)
	}
}

func TestScore_HighestSatisfiedStageWins(t *testing.T) {
	ev := []domain.EvidenceRecord{
		rec("c1", 1, "our climate policy sets a reduction target"),
		rec("c2", 2, "a time-bound reduction target for 2040"),
	}

	score, err := newScorer().Score("climate", ev)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score.Stage != 3 {
		t.Errorf("stage = %d, want 3 (policy+target+time-bound, no assurance)", score.Stage)
	}
	if !strings.Contains(score.Rationale, "time-bound") {
		t.Errorf("rationale must name matched signals: %q", score.Rationale)
	}
}

func TestScore_Stage4ShortCircuits(t *testing.T) {
	ev := []domain.EvidenceRecord{
		rec("c1", 1, "climate policy with a reduction target"),
		rec("c2", 2, "time-bound milestones verified by third-party assurance"),
	}

	score, err := newScorer().Score("climate", ev)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score.Stage != 4 {
		t.Errorf("stage = %d, want 4", score.Stage)
	}
}

func TestScore_SubsumptionBlocksSkippedStages(t *testing.T) {
	// Assurance signal present, but no policy (stage 1 signal): the
	// cumulative requirement blocks stage 4 and everything above stage 1.
	ev := []domain.EvidenceRecord{
		rec("c1", 1, "third-party assurance was obtained"),
		rec("c2", 2, "emissions reported annually"),
	}

	score, err := newScorer().Score("climate", ev)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score.Stage != 1 {
		t.Errorf("stage = %d, want 1 (no cumulative stage match, minimal evidence)", score.Stage)
	}
}

func TestScore_MonotonicUnderAddedEvidence(t *testing.T) {
	scorer := newScorer()
	ev := []domain.EvidenceRecord{
		rec("c1", 1, "our climate policy"),
		rec("c2", 2, "the policy applies group-wide"),
	}

	before, err := scorer.Score("climate", ev)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	// A quote satisfying a higher stage's signal never decreases the stage.
	ev = append(ev, rec("c3", 3, "a time-bound reduction target of 2035"))
	after, err := scorer.Score("climate", ev)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if after.Stage < before.Stage {
		t.Errorf("stage decreased from %d to %d after adding evidence", before.Stage, after.Stage)
	}
	if after.Stage != 3 {
		t.Errorf("stage = %d, want 3", after.Stage)
	}
}

func TestScore_ConfidenceBoundedAndRationaleCapped(t *testing.T) {
	ev := []domain.EvidenceRecord{
		rec("c1", 1, "climate policy with reduction target"),
		rec("c2", 2, "time-bound goals under third-party assurance"),
		rec("c3", 3, "more supporting policy text"),
		rec("c4", 4, "additional reduction target details"),
		rec("c5", 5, "yet another disclosure"),
	}

	score, err := newScorer().Score("climate", ev)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score.Confidence < 0 || score.Confidence > 1 {
		t.Errorf("confidence out of bounds: %v", score.Confidence)
	}
	if n := len(strings.Fields(score.Rationale)); n > domain.MaxRationaleWords {
		t.Errorf("rationale has %d words, cap is %d", n, domain.MaxRationaleWords)
	}
}

func TestScore_MoreDiversityMoreConfidence(t *testing.T) {
	scorer := newScorer()
	narrow := []domain.EvidenceRecord{
		rec("c1", 1, "climate policy"),
		rec("c2", 2, "policy again"),
	}
	wide := append(narrow,
		rec("c3", 3, "policy on page three"),
		rec("c4", 4, "policy on page four"),
	)

	n, err := scorer.Score("climate", narrow)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	w, err := scorer.Score("climate", wide)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if w.Confidence <= n.Confidence {
		t.Errorf("diversity should raise confidence: %v <= %v", w.Confidence, n.Confidence)
	}
}
