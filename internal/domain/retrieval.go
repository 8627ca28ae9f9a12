package domain

// Hit is a single scored chunk from one index (lexical or semantic).
type Hit struct {
	ChunkID string
	Score   float64
}

// RetrievalResult is one fused ranking entry for a query. Ephemeral, created
// per query; rank 1 is the best result.
type RetrievalResult struct {
	ChunkID       string  `json:"chunk_id"`
	LexicalScore  float64 `json:"lexical_score"`
	SemanticScore float64 `json:"semantic_score"`
	FusedScore    float64 `json:"fused_score"`
	Rank          int     `json:"rank"`
}
