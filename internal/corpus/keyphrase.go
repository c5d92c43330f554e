package corpus

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ragcore/retrieval-core/internal/keyword"
	"github.com/ragcore/retrieval-core/internal/model"
)

// ExtractKeyphrases tokenizes text and derives bigram phrases from
// adjacent surviving tokens, a lightweight phrase signal without a full
// NLP pipeline.
func ExtractKeyphrases(text string) model.KeyphraseSet {
	tokens := keyword.Tokenize(text)
	phrases := make([]string, 0, len(tokens))
	for i := 0; i+1 < len(tokens); i++ {
		phrases = append(phrases, tokens[i]+" "+tokens[i+1])
	}
	return model.KeyphraseSet{Tokens: tokens, Phrases: phrases}
}

const aliasCacheTTL = 1 * time.Hour

type aliasEntry struct {
	cluster   model.AliasCluster
	expiresAt time.Time
}

// EmbeddingSimilarity scores cosine similarity between two phrases'
// embeddings in [0, 1]; callers typically wire this to internal/embedder.
type EmbeddingSimilarity func(ctx context.Context, a, b string) (float64, error)

// AliasClusterer groups phrases considered aliases of one another via a
// combination of corpus PMI and embedding cosine similarity, caching
// results for an hour since alias relationships change slowly.
type AliasClusterer struct {
	mu         sync.RWMutex
	cache      map[string]*aliasEntry
	similarity EmbeddingSimilarity
	pmiTau     float64
	embTau     float64
}

// NewAliasClusterer creates an AliasClusterer. pmiTau and embTau are the
// minimum PMI and cosine-similarity thresholds (§6's ALIAS_PMI_SIM_TAU /
// ALIAS_EMB_SIM_TAU) a candidate must clear to join a cluster.
func NewAliasClusterer(similarity EmbeddingSimilarity, pmiTau, embTau float64) *AliasClusterer {
	return &AliasClusterer{cache: make(map[string]*aliasEntry), similarity: similarity, pmiTau: pmiTau, embTau: embTau}
}

// Cluster returns the alias cluster for center, deriving it from stats'
// PMI table filtered by embedding similarity when not already cached.
func (c *AliasClusterer) Cluster(ctx context.Context, stats *model.CorpusStats, center string) (model.AliasCluster, error) {
	center = normalizeCenter(center)
	c.mu.RLock()
	entry, ok := c.cache[center]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.cluster, nil
	}

	members := []string{}
	for candidate, pmi := range stats.PMI[center] {
		if pmi < c.pmiTau {
			continue
		}
		if c.similarity != nil {
			sim, err := c.similarity(ctx, center, candidate)
			if err != nil || sim < c.embTau {
				continue
			}
		}
		members = append(members, candidate)
	}

	cluster := model.AliasCluster{Center: center, Members: members}
	c.mu.Lock()
	c.cache[center] = &aliasEntry{cluster: cluster, expiresAt: time.Now().Add(aliasCacheTTL)}
	c.mu.Unlock()
	return cluster, nil
}

// normalizeCenter lowercases and trims a phrase before it's used as a
// cluster key, so "Acme Corp" and "acme corp" resolve to one cluster.
func normalizeCenter(phrase string) string {
	return strings.ToLower(strings.TrimSpace(phrase))
}
