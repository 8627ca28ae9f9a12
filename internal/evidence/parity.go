package evidence

import "github.com/kailas-cloud/stagegate/internal/domain"

// ValidateParity checks that every evidence record cites a chunk present in
// the fused top-k. This is a hard invariant: the first violation returns a
// ParityViolationError that aborts the whole scoring run for the theme.
func ValidateParity(theme string, records []domain.EvidenceRecord, topk []domain.RetrievalResult) error {
	inTopK := make(map[string]struct{}, len(topk))
	for _, r := range topk {
		inTopK[r.ChunkID] = struct{}{}
	}
	for _, rec := range records {
		if _, ok := inTopK[rec.ChunkID]; !ok {
			return &domain.ParityViolationError{Theme: theme, ChunkID: rec.ChunkID}
		}
	}
	return nil
}

// IDs extracts the cited chunk IDs and top-k chunk IDs for the parity report.
func IDs(records []domain.EvidenceRecord, topk []domain.RetrievalResult) (evidenceIDs, topkIDs []string) {
	evidenceIDs = make([]string, 0, len(records))
	for _, rec := range records {
		evidenceIDs = append(evidenceIDs, rec.ChunkID)
	}
	topkIDs = make([]string, 0, len(topk))
	for _, r := range topk {
		topkIDs = append(topkIDs, r.ChunkID)
	}
	return evidenceIDs, topkIDs
}
