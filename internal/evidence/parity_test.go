package evidence

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/stagegate/internal/domain"
)

func TestValidateParity_Subset(t *testing.T) {
	topk := []domain.RetrievalResult{{ChunkID: "c1"}, {ChunkID: "c2"}}
	records := []domain.EvidenceRecord{{ThemeCode: "t", ChunkID: "c2"}}

	if err := ValidateParity("t", records, topk); err != nil {
		t.Errorf("subset evidence must pass, got %v", err)
	}
}

func TestValidateParity_EmptyEvidence(t *testing.T) {
	topk := []domain.RetrievalResult{{ChunkID: "c1"}}

	if err := ValidateParity("t", nil, topk); err != nil {
		t.Errorf("empty evidence must pass, got %v", err)
	}
}

func TestValidateParity_Violation(t *testing.T) {
	topk := []domain.RetrievalResult{{ChunkID: "c1"}}
	records := []domain.EvidenceRecord{{ThemeCode: "t", ChunkID: "outsider"}}

	err := ValidateParity("t", records, topk)
	if err == nil {
		t.Fatal("expected parity violation")
	}
	if !errors.Is(err, domain.ErrParityViolation) {
		t.Errorf("expected ErrParityViolation, got %v", err)
	}
	var pv *domain.ParityViolationError
	if !errors.As(err, &pv) || pv.ChunkID != "outsider" || pv.Theme != "t" {
		t.Errorf("violation must name theme and chunk, got %v", err)
	}
}

func TestIDs(t *testing.T) {
	records := []domain.EvidenceRecord{{ChunkID: "e1"}, {ChunkID: "e2"}}
	topk := []domain.RetrievalResult{{ChunkID: "c1"}}

	evidenceIDs, topkIDs := IDs(records, topk)
	if len(evidenceIDs) != 2 || evidenceIDs[0] != "e1" {
		t.Errorf("evidenceIDs = %v", evidenceIDs)
	}
	if len(topkIDs) != 1 || topkIDs[0] != "c1" {
		t.Errorf("topkIDs = %v", topkIDs)
	}
}
