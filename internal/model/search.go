package model

// SearchType classifies how a candidate entered the result set.
type SearchType string

const (
	SearchVectorOnly           SearchType = "vector_only"
	SearchKeywordOnly          SearchType = "keyword_only"
	SearchHybrid               SearchType = "hybrid"
	SearchSectionRelated       SearchType = "section_related"
	SearchSectionReconstructed SearchType = "section_reconstructed"
)

// SearchResult is a per-candidate intermediate record threaded through the
// fusion, rerank, section, and packing stages.
type SearchResult struct {
	ChunkID       string         `json:"chunkId"`
	DocID         string         `json:"docId,omitempty"`
	Score         float64        `json:"score"`
	VectorScore   *float64       `json:"vectorScore,omitempty"`
	KeywordScore  *float64       `json:"keywordScore,omitempty"`
	FusionScore   *float64       `json:"fusionScore,omitempty"`
	RerankerScore *float64       `json:"rerankerScore,omitempty"`
	OriginalScore *float64       `json:"originalScore,omitempty"`
	Rank          int            `json:"rank"`
	SearchType    SearchType     `json:"searchType"`
	SectionPath   string         `json:"sectionPath,omitempty"`
	Content       string         `json:"content"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// UserContext identifies the caller making a search request.
type UserContext struct {
	ID        string   `json:"id"`
	TenantID  string   `json:"tenantId"`
	GroupIDs  []string `json:"groupIds"`
	Language  string   `json:"language,omitempty"`
}

// SearchRequest is the inbound retrieval request (§6).
type SearchRequest struct {
	Query               string   `json:"query"`
	Limit               int      `json:"limit"`
	VectorWeight        *float64 `json:"vectorWeight,omitempty"`
	KeywordWeight       *float64 `json:"keywordWeight,omitempty"`
	RRFK                *int     `json:"rrfK,omitempty"`
	EnableKeywordSearch *bool    `json:"enableKeywordSearch,omitempty"`
	TenantID            string   `json:"tenantId,omitempty"`
	SpaceID             string   `json:"spaceId,omitempty"`
}

// SearchMetrics reports per-stage timing and counts for a completed search.
type SearchMetrics struct {
	VectorSearchDuration  float64 `json:"vectorSearchDuration"`
	KeywordSearchDuration float64 `json:"keywordSearchDuration"`
	FusionDuration        float64 `json:"fusionDuration"`
	RerankerDuration      float64 `json:"rerankerDuration"`
	GuardrailDuration     float64 `json:"guardrailDuration,omitempty"`
	TotalDuration         float64 `json:"totalDuration"`
	VectorResultCount     int     `json:"vectorResultCount"`
	KeywordResultCount    int     `json:"keywordResultCount"`
	FinalResultCount      int     `json:"finalResultCount"`
	RerankingEnabled      bool    `json:"rerankingEnabled"`
	DocumentsReranked     int     `json:"documentsReranked"`
}

// SearchResponse is the inbound retrieval response (§6).
type SearchResponse struct {
	FinalResults   []SearchResult  `json:"finalResults,omitempty"`
	Metrics        SearchMetrics   `json:"metrics"`
	RerankerResults []SearchResult `json:"rerankerResults,omitempty"`
	FusionTrace    any             `json:"fusionTrace,omitempty"`
	IDKResponse    *IDKResponse    `json:"idkResponse,omitempty"`
}
