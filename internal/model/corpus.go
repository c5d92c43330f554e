package model

// CorpusStats holds per-tenant term statistics used for IDF/PMI ranking
// features and keyphrase extraction. Co-occurrence and PMI are symmetric
// in their key pair: Cooc[a][b] == Cooc[b][a].
type CorpusStats struct {
	TenantID    string                        `json:"tenantId"`
	IDF         map[string]float64            `json:"idf"`
	Cooc        map[string]map[string]int     `json:"cooc"`
	PMI         map[string]map[string]float64 `json:"pmi"`
	TotalDocs   int                           `json:"totalDocs"`
	TotalTokens int                           `json:"totalTokens"`
}

// NewCorpusStats returns an empty, ready-to-use CorpusStats for a tenant.
func NewCorpusStats(tenantID string) *CorpusStats {
	return &CorpusStats{
		TenantID: tenantID,
		IDF:      make(map[string]float64),
		Cooc:     make(map[string]map[string]int),
		PMI:      make(map[string]map[string]float64),
	}
}

// KeyphraseSet is the output of keyphrase extraction over a query.
type KeyphraseSet struct {
	Tokens  []string `json:"tokens"`
	Phrases []string `json:"phrases"`
}

// AliasCluster groups a phrase with its detected aliases.
type AliasCluster struct {
	Center  string   `json:"center"`
	Members []string `json:"members"`
}
