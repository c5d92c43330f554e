// Package chunker implements the adaptive document chunker (§4.1): it turns
// a source document's text into an ordered sequence of model.Chunk values
// whose token counts respect the embedding model's budget.
//
// The paragraph-merge/split and overlap-by-tail-words mechanics are
// generalized from the corpus's document chunker, which only ever ran one
// fixed strategy; here the same building blocks are reused across three
// named strategies selected by config or auto-suggested from text
// structure.
package chunker

import (
	"fmt"
	"math"
	"strings"

	"github.com/ragcore/retrieval-core/internal/model"
	"github.com/ragcore/retrieval-core/internal/tokencount"
)

// Strategy names one of the three chunking algorithms (§4.1).
type Strategy string

const (
	StrategyTokenAware     Strategy = "token-aware"
	StrategyParagraphAware Strategy = "paragraph-aware"
	StrategyCharacterBased Strategy = "character-based"
)

// tooLargeWarning is the exact substring §4.1 requires every oversized-split
// warning to contain.
const tooLargeWarning = "too large"

// Config configures a Chunker.
type Config struct {
	Strategy         Strategy
	ChunkSizeTokens  int
	ChunkSizeChars   int
	OverlapTokens    int
	MaxTokens        int
	SafetyMarginPct  int
	Counter          tokencount.Counter
}

// DefaultConfig returns the §6 defaults: 512-token embedding budget, a 10%
// safety margin, and token-aware chunking.
func DefaultConfig() Config {
	return Config{
		Strategy:        StrategyTokenAware,
		ChunkSizeTokens: 460,
		ChunkSizeChars:  1800,
		OverlapTokens:   0,
		MaxTokens:       512,
		SafetyMarginPct: 10,
		Counter:         tokencount.NewBGECounter(),
	}
}

// Chunker splits text into embedding-safe chunks.
type Chunker struct {
	cfg Config
}

// New creates a Chunker, filling unset fields from DefaultConfig.
func New(cfg Config) *Chunker {
	d := DefaultConfig()
	if cfg.ChunkSizeTokens <= 0 {
		cfg.ChunkSizeTokens = d.ChunkSizeTokens
	}
	if cfg.ChunkSizeChars <= 0 {
		cfg.ChunkSizeChars = d.ChunkSizeChars
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = d.MaxTokens
	}
	if cfg.SafetyMarginPct <= 0 {
		cfg.SafetyMarginPct = d.SafetyMarginPct
	}
	if cfg.Counter == nil {
		cfg.Counter = d.Counter
	}
	switch cfg.Strategy {
	case StrategyTokenAware, StrategyParagraphAware, StrategyCharacterBased:
	default:
		// Misconfigured strategy silently degrades to token-aware (§4.1).
		cfg.Strategy = StrategyTokenAware
	}
	return &Chunker{cfg: cfg}
}

// Result is the output of Chunk.
type Result struct {
	Chunks          []model.Chunk
	TotalTokens      int
	TotalCharacters int
	Strategy        Strategy
	Warnings        []string
}

func (c *Chunker) safetyMargin() float64 {
	return float64(c.cfg.SafetyMarginPct) / 100.0
}

func (c *Chunker) budget() int {
	return c.cfg.ChunkSizeTokens
}

// Chunk splits text into an ordered sequence of chunks.
func (c *Chunker) Chunk(text, docID string) (Result, error) {
	if text == "" {
		return Result{Strategy: c.cfg.Strategy}, nil
	}
	if strings.TrimSpace(text) == "" {
		chunk := model.Chunk{
			ChunkID:        fmt.Sprintf("%s_chunk_0", docID),
			DocID:          docID,
			Text:           text,
			TokenCount:     0,
			CharacterCount: len([]rune(text)),
			StartIndex:     0,
			EndIndex:       len([]byte(text)),
		}
		return Result{Chunks: []model.Chunk{chunk}, TotalCharacters: chunk.CharacterCount, Strategy: c.cfg.Strategy}, nil
	}

	var segs []segment
	var warnings []string

	switch c.cfg.Strategy {
	case StrategyParagraphAware:
		segs, warnings = c.buildParagraphSegments(text)
	case StrategyCharacterBased:
		segs = c.buildCharacterSegments(text)
	default:
		segs, warnings = c.buildTokenAwareSegments(text)
	}

	segs = c.applyOverlap(segs)

	chunks := make([]model.Chunk, 0, len(segs))
	totalTokens, totalChars := 0, 0
	for i, s := range segs {
		content := strings.TrimSpace(s.text)
		if content == "" {
			continue
		}
		est := c.cfg.Counter.Count(content, c.cfg.MaxTokens, c.safetyMargin())
		ch := model.Chunk{
			ChunkID:        fmt.Sprintf("%s_chunk_%d", docID, len(chunks)),
			DocID:          docID,
			Text:           content,
			TokenCount:     est.TokenCount,
			CharacterCount: est.CharacterCount,
			StartIndex:     s.start,
			EndIndex:       s.end,
			SectionPath:    s.sectionPath,
		}
		_ = i
		chunks = append(chunks, ch)
		totalTokens += est.TokenCount
		totalChars += est.CharacterCount
	}

	return Result{
		Chunks:          chunks,
		TotalTokens:     totalTokens,
		TotalCharacters: totalChars,
		Strategy:        c.cfg.Strategy,
		Warnings:        warnings,
	}, nil
}

// AnalyzeText suggests a strategy and estimates the resulting chunk count
// from the text's structure (§4.1).
type Characteristics struct {
	ParagraphCount int
	AvgParagraphTokens float64
	HasLongParagraphs bool
}

func (c *Chunker) AnalyzeText(text string) (suggested Strategy, estimatedChunks int, characteristics Characteristics) {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) <= 1 {
		return StrategyTokenAware, estimateChunkCount(text, c.budget(), c.cfg.Counter, c.cfg.MaxTokens, c.safetyMargin()), Characteristics{ParagraphCount: len(paragraphs)}
	}

	totalTokens := 0
	longCount := 0
	for _, p := range paragraphs {
		est := c.cfg.Counter.Count(p, c.cfg.MaxTokens, c.safetyMargin())
		totalTokens += est.TokenCount
		if est.TokenCount > c.budget() {
			longCount++
		}
	}
	avg := float64(totalTokens) / float64(len(paragraphs))
	chars := Characteristics{
		ParagraphCount:     len(paragraphs),
		AvgParagraphTokens: avg,
		HasLongParagraphs:  longCount > 0,
	}

	est := 0
	if c.budget() > 0 {
		est = int(math.Ceil(float64(totalTokens) / float64(c.budget())))
	}
	if est < 1 {
		est = 1
	}
	return StrategyParagraphAware, est, chars
}

func estimateChunkCount(text string, budget int, counter tokencount.Counter, maxTokens int, margin float64) int {
	est := counter.Count(text, maxTokens, margin)
	if budget <= 0 {
		return 1
	}
	n := int(math.Ceil(float64(est.TokenCount) / float64(budget)))
	if n < 1 {
		n = 1
	}
	return n
}

// GetOptimalChunkSize returns the configured token/character targets.
func (c *Chunker) GetOptimalChunkSize() (tokens int, characters int) {
	return c.cfg.ChunkSizeTokens, c.cfg.ChunkSizeChars
}

type segment struct {
	text        string
	start       int
	end         int
	sectionPath string
}
