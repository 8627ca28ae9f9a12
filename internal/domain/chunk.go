package domain

import "fmt"

// Chunk is a normalized text passage produced by the ingestion pipeline.
// Immutable once created; referenced by ChunkID everywhere else in the core.
type Chunk struct {
	ChunkID   string `json:"chunk_id"`
	DocID     string `json:"doc_id"`
	OrgID     string `json:"org_id"`
	Year      int    `json:"year"`
	ThemeCode string `json:"theme_code"`
	PageNo    int    `json:"page_no"`
	Text      string `json:"text"`
	SourceURL string `json:"source_url"`
	SHA256Raw string `json:"sha256_raw"`
}

// Validate checks the fields the scoring core depends on.
func (c *Chunk) Validate() error {
	if c.ChunkID == "" {
		return fmt.Errorf("chunk ID is required")
	}
	if c.ThemeCode == "" {
		return fmt.Errorf("chunk %s: theme code is required", c.ChunkID)
	}
	if c.PageNo < 1 {
		return fmt.Errorf("chunk %s: page number must be >= 1, got %d", c.ChunkID, c.PageNo)
	}
	if c.Text == "" {
		return fmt.Errorf("chunk %s: text is required", c.ChunkID)
	}
	return nil
}
