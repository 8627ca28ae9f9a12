// Package evidence turns fused retrieval results into theme-scoped evidence
// records and enforces the parity invariant (evidence ⊆ fused top-k).
package evidence

import (
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/stagegate/internal/domain"
)

// Extractor maps retrieval results to evidence records.
type Extractor struct {
	maxWords int
	logger   *zap.Logger
}

// NewExtractor creates an extractor. maxWords <= 0 falls back to the domain cap.
func NewExtractor(maxWords int, logger *zap.Logger) *Extractor {
	if maxWords <= 0 {
		maxWords = domain.MaxQuoteWords
	}
	return &Extractor{maxWords: maxWords, logger: logger}
}

// Extract selects the theme-filtered subset of the fused top-k, in rank
// order, and records a verbatim quote with page and hash provenance for each.
// No candidates is not an error: the empty slice flows downstream, where the
// evidence gate forces stage 0.
func (e *Extractor) Extract(
	theme string, topk []domain.RetrievalResult, chunks map[string]domain.Chunk,
) []domain.EvidenceRecord {
	var records []domain.EvidenceRecord
	for _, r := range topk {
		c, ok := chunks[r.ChunkID]
		if !ok || c.ThemeCode != theme {
			continue
		}
		records = append(records, domain.EvidenceRecord{
			ThemeCode: theme,
			ChunkID:   c.ChunkID,
			PageNo:    c.PageNo,
			Quote:     TruncateQuote(c.Text, e.maxWords),
			SHA256Raw: c.SHA256Raw,
		})
	}

	if records == nil {
		e.logger.Debug("No evidence found for theme", zap.String("theme", theme))
	}
	return records
}

// TruncateQuote returns the first maxWords whitespace-delimited words of
// text, joined by single spaces. The result is always a verbatim substring of
// the whitespace-normalized text — quotes are cut, never fabricated.
func TruncateQuote(text string, maxWords int) string {
	words := strings.Fields(text)
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	return strings.Join(words, " ")
}
