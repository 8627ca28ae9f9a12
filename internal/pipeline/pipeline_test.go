package pipeline

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/stagegate/internal/domain"
	"github.com/kailas-cloud/stagegate/internal/fusion"
)

type mockLexical struct {
	hits []domain.Hit
}

func (m *mockLexical) Search(string, int) []domain.Hit { return m.hits }

type mockSemantic struct {
	hits []domain.Hit
	err  error
}

func (m *mockSemantic) Search(context.Context, string, int) ([]domain.Hit, error) {
	return m.hits, m.err
}

type mockExtractor struct {
	byTheme map[string][]domain.EvidenceRecord
}

func (m *mockExtractor) Extract(theme string, _ []domain.RetrievalResult, _ map[string]domain.Chunk) []domain.EvidenceRecord {
	return m.byTheme[theme]
}

type mockScorer struct {
	stages map[string]int
	err    error
}

func (m *mockScorer) Score(theme string, ev []domain.EvidenceRecord) (domain.DimensionScore, error) {
	if m.err != nil {
		return domain.DimensionScore{}, m.err
	}
	return domain.DimensionScore{
		ThemeCode:  theme,
		Stage:      m.stages[theme],
		Confidence: 0.5,
		Rationale:  "stage assigned",
		Evidence:   ev,
	}, nil
}

func testChunks() []domain.Chunk {
	return []domain.Chunk{
		{ChunkID: "c1", DocID: "d1", ThemeCode: "climate", PageNo: 1, Text: "climate policy"},
		{ChunkID: "c2", DocID: "d1", ThemeCode: "climate", PageNo: 2, Text: "reduction target"},
		{ChunkID: "c3", DocID: "d1", ThemeCode: "water", PageNo: 3, Text: "water withdrawal"},
	}
}

func evRec(theme, id string, page int) domain.EvidenceRecord {
	return domain.EvidenceRecord{ThemeCode: theme, ChunkID: id, PageNo: page, Quote: "quote"}
}

func newService(t *testing.T, lex Lexical, sem Semantic, ext Extractor, sc Scorer) *Service {
	t.Helper()
	svc, err := New(lex, sem, ext, sc, fusion.DefaultParams(), zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func TestNew_InvalidParams(t *testing.T) {
	_, err := New(&mockLexical{}, &mockSemantic{}, &mockExtractor{}, &mockScorer{},
		fusion.Params{Alpha: 1.5, K: 10}, zap.NewNop())
	if err == nil {
		t.Error("expected error for alpha out of range")
	}
}

func TestRun_DeterministicAcrossRuns(t *testing.T) {
	svc := newService(t,
		&mockLexical{hits: []domain.Hit{{ChunkID: "c1", Score: 2.0}, {ChunkID: "c2", Score: 1.0}}},
		&mockSemantic{hits: []domain.Hit{{ChunkID: "c2", Score: 0.9}, {ChunkID: "c3", Score: 0.4}}},
		&mockExtractor{byTheme: map[string][]domain.EvidenceRecord{
			"climate": {evRec("climate", "c1", 1), evRec("climate", "c2", 2)},
			"water":   {evRec("water", "c3", 3)},
		}},
		&mockScorer{stages: map[string]int{"climate": 3, "water": 1}},
	)

	var hashes []string
	for run := 0; run < 3; run++ {
		out, err := svc.Run(context.Background(), "query", []string{"water", "climate"}, testChunks())
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if out.Record.DeterminismHash == "" {
			t.Fatalf("run %d: empty determinism hash", run)
		}
		hashes = append(hashes, out.Record.DeterminismHash)
	}
	if hashes[0] != hashes[1] || hashes[1] != hashes[2] {
		t.Errorf("hashes differ across identical runs: %v", hashes)
	}
}

func TestRun_DimensionsSortedAndOverall(t *testing.T) {
	svc := newService(t,
		&mockLexical{hits: []domain.Hit{{ChunkID: "c1", Score: 1.0}, {ChunkID: "c3", Score: 0.5}}},
		&mockSemantic{hits: []domain.Hit{{ChunkID: "c2", Score: 0.8}}},
		&mockExtractor{byTheme: map[string][]domain.EvidenceRecord{
			"climate": {evRec("climate", "c1", 1), evRec("climate", "c2", 2)},
			"water":   {evRec("water", "c3", 3)},
		}},
		&mockScorer{stages: map[string]int{"climate": 4, "water": 2}},
	)

	// Themes arrive unsorted; the record must come back theme-sorted.
	out, err := svc.Run(context.Background(), "query", []string{"water", "climate"}, testChunks())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	dims := out.Record.Dimensions
	if len(dims) != 2 || dims[0].ThemeCode != "climate" || dims[1].ThemeCode != "water" {
		t.Fatalf("dimensions not theme-sorted: %+v", dims)
	}
	if out.Record.OverallMaturity != 3.0 {
		t.Errorf("overall = %v, want 3.0 (mean of 4 and 2)", out.Record.OverallMaturity)
	}
	if out.Record.Alpha != fusion.DefaultAlpha || out.Record.K != fusion.DefaultK {
		t.Errorf("tuning surface not recorded: alpha=%v k=%d", out.Record.Alpha, out.Record.K)
	}
	if len(out.TopK) == 0 {
		t.Error("fused top-k missing from outcome")
	}
}

func TestRun_SemanticFailureAborts(t *testing.T) {
	miss := &domain.CacheMissError{Key: "abc"}
	svc := newService(t,
		&mockLexical{hits: []domain.Hit{{ChunkID: "c1", Score: 1.0}}},
		&mockSemantic{err: miss},
		&mockExtractor{},
		&mockScorer{},
	)

	_, err := svc.Run(context.Background(), "query", []string{"climate"}, testChunks())
	if err == nil {
		t.Fatal("expected abort on semantic failure")
	}
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss in chain, got %v", err)
	}
}

func TestRun_ParityViolationAborts(t *testing.T) {
	// Evidence cites c9, which the fused top-k does not contain.
	svc := newService(t,
		&mockLexical{hits: []domain.Hit{{ChunkID: "c1", Score: 1.0}}},
		&mockSemantic{hits: []domain.Hit{{ChunkID: "c2", Score: 0.8}}},
		&mockExtractor{byTheme: map[string][]domain.EvidenceRecord{
			"climate": {evRec("climate", "c9", 1)},
		}},
		&mockScorer{stages: map[string]int{"climate": 2}},
	)

	_, err := svc.Run(context.Background(), "query", []string{"climate"}, testChunks())
	if err == nil {
		t.Fatal("expected parity violation to abort the run")
	}
	var pv *domain.ParityViolationError
	if !errors.As(err, &pv) || pv.ChunkID != "c9" {
		t.Errorf("expected ParityViolationError for c9, got %v", err)
	}
}

func TestRun_ScorerFailureAborts(t *testing.T) {
	svc := newService(t,
		&mockLexical{hits: []domain.Hit{{ChunkID: "c1", Score: 1.0}}},
		&mockSemantic{hits: []domain.Hit{{ChunkID: "c1", Score: 0.8}}},
		&mockExtractor{byTheme: map[string][]domain.EvidenceRecord{
			"climate": {evRec("climate", "c1", 1)},
		}},
		&mockScorer{err: &domain.RubricNotFoundError{Theme: "climate"}},
	)

	out, err := svc.Run(context.Background(), "query", []string{"climate"}, testChunks())
	if err == nil {
		t.Fatal("expected abort on scorer failure")
	}
	if !errors.Is(err, domain.ErrRubricNotFound) {
		t.Errorf("expected ErrRubricNotFound, got %v", err)
	}
	if len(out.Record.Dimensions) != 0 || out.Record.DeterminismHash != "" {
		t.Errorf("partial results leaked on failure: %+v", out.Record)
	}
}
