package domain

// MaxQuoteWords caps evidence quotes (whitespace-delimited words).
const MaxQuoteWords = 30

// EvidenceRecord is a theme-scoped citation derived from a retrieval result.
// Invariant: the chunk ID must appear in the fused top-k for its theme
// (parity), and the quote is a verbatim substring of the chunk text.
type EvidenceRecord struct {
	ThemeCode string `json:"theme_code"`
	ChunkID   string `json:"chunk_id"`
	PageNo    int    `json:"page_no"`
	Quote     string `json:"quote"`
	SHA256Raw string `json:"sha256_raw"`
}
