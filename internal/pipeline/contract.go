package pipeline

import (
	"context"

	"github.com/kailas-cloud/stagegate/internal/domain"
)

// Lexical is the keyword scoring contract.
type Lexical interface {
	Search(query string, limit int) []domain.Hit
}

// Semantic is the vector scoring contract. Errors propagate fail-closed
// (a REPLAY cache miss aborts the run).
type Semantic interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Hit, error)
}

// Extractor maps the fused top-k to theme evidence.
type Extractor interface {
	Extract(theme string, topk []domain.RetrievalResult, chunks map[string]domain.Chunk) []domain.EvidenceRecord
}

// Scorer assigns the maturity stage for one theme.
type Scorer interface {
	Score(theme string, ev []domain.EvidenceRecord) (domain.DimensionScore, error)
}
