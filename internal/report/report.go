// Package report renders the audit artifacts of a scoring pass: the evidence
// audit, the parity report, and the determinism report.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/stagegate/internal/domain"
)

// Statuses used across all reports.
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)

// Quote is one cited excerpt in the evidence audit.
type Quote struct {
	ChunkID string `json:"chunk_id"`
	PageNo  int    `json:"page_no"`
	Text    string `json:"text"`
}

// ThemeAudit summarizes the evidence backing one theme's score.
type ThemeAudit struct {
	Stage       int     `json:"stage"`
	Confidence  float64 `json:"confidence"`
	QuotesCount int     `json:"quotes_count"`
	PagesCount  int     `json:"pages_count"`
	Quotes      []Quote `json:"quotes"`
	Status      string  `json:"status"`
}

// EvidenceAudit maps theme code to its audit entry.
type EvidenceAudit map[string]ThemeAudit

// BuildEvidenceAudit derives the per-theme audit from scored dimensions. The
// status reflects the sufficiency gate: FAIL whenever the counts fall under
// the gate thresholds.
func BuildEvidenceAudit(dims []domain.DimensionScore, minQuotes, minPages int) EvidenceAudit {
	audit := make(EvidenceAudit, len(dims))
	for _, d := range dims {
		pages := make(map[int]struct{}, len(d.Evidence))
		quotes := make([]Quote, 0, len(d.Evidence))
		for _, rec := range d.Evidence {
			pages[rec.PageNo] = struct{}{}
			quotes = append(quotes, Quote{ChunkID: rec.ChunkID, PageNo: rec.PageNo, Text: rec.Quote})
		}

		status := StatusPass
		if len(d.Evidence) < minQuotes || len(pages) < minPages {
			status = StatusFail
		}
		audit[d.ThemeCode] = ThemeAudit{
			Stage:       d.Stage,
			Confidence:  d.Confidence,
			QuotesCount: len(d.Evidence),
			PagesCount:  len(pages),
			Quotes:      quotes,
			Status:      status,
		}
	}
	return audit
}

// ParityReport records whether every cited chunk appears in the fused top-k.
type ParityReport struct {
	ParityOK    bool     `json:"parity_ok"`
	EvidenceIDs []string `json:"evidence_ids"`
	TopKIDs     []string `json:"topk_ids"`
}

// BuildParity computes the subset check over the extracted ID lists.
func BuildParity(evidenceIDs, topkIDs []string) ParityReport {
	inTopK := make(map[string]struct{}, len(topkIDs))
	for _, id := range topkIDs {
		inTopK[id] = struct{}{}
	}
	ok := true
	for _, id := range evidenceIDs {
		if _, found := inTopK[id]; !found {
			ok = false
			break
		}
	}
	return ParityReport{ParityOK: ok, EvidenceIDs: evidenceIDs, TopKIDs: topkIDs}
}

// DeterminismReport records the replay verification outcome.
type DeterminismReport struct {
	Runs      int      `json:"runs"`
	Hashes    []string `json:"hashes"`
	Identical bool     `json:"identical"`
	Status    string   `json:"status"`
	Alpha     float64  `json:"alpha"`
	K         int      `json:"k"`
}

// WriteJSON writes a report as indented JSON, creating parent directories.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
