// Package tokencount estimates token counts for text without calling out to
// a real tokenizer, matching the ratio-based approximation the corpus uses
// elsewhere (chunker.go's words*1.3 estimate generalized to a pluggable
// chars-per-token ratio).
package tokencount

import (
	"math"
	"strconv"
	"strings"
	"sync"
)

// Estimate is the result of counting tokens for one piece of text.
type Estimate struct {
	CharacterCount int
	TokenCount     int
	SafeLimit      bool
}

// Counter estimates token counts for arbitrary text.
type Counter interface {
	Count(text string, maxTokens int, safetyMargin float64) Estimate
}

// ratioCounter estimates tokens as characters / charsPerToken, rounded up.
type ratioCounter struct {
	charsPerToken float64
}

// NewBGECounter returns a Counter calibrated to BGE's ~3.2 chars/token.
func NewBGECounter() Counter { return ratioCounter{charsPerToken: 3.2} }

// NewOpenAICounter returns a Counter calibrated to OpenAI's ~4 chars/token.
func NewOpenAICounter() Counter { return ratioCounter{charsPerToken: 4.0} }

// NewCustomRatioCounter returns a Counter using an arbitrary chars/token ratio.
func NewCustomRatioCounter(charsPerToken float64) Counter {
	if charsPerToken <= 0 {
		charsPerToken = 4.0
	}
	return ratioCounter{charsPerToken: charsPerToken}
}

func (c ratioCounter) Count(text string, maxTokens int, safetyMargin float64) Estimate {
	chars := len([]rune(text))
	tokens := 0
	if chars > 0 {
		tokens = int(math.Ceil(float64(chars) / c.charsPerToken))
	}
	limit := float64(maxTokens) * (1 - safetyMargin)
	return Estimate{
		CharacterCount: chars,
		TokenCount:     tokens,
		SafeLimit:      float64(tokens) <= limit,
	}
}

// CachingCounter wraps a Counter with a thread-safe cache keyed on text
// identity (the exact string), matching the sync.RWMutex + map idiom used
// throughout the corpus's cache package.
type CachingCounter struct {
	mu       sync.RWMutex
	inner    Counter
	cache    map[string]Estimate
}

// NewCachingCounter wraps inner with an in-memory cache.
func NewCachingCounter(inner Counter) *CachingCounter {
	return &CachingCounter{inner: inner, cache: make(map[string]Estimate)}
}

func (c *CachingCounter) Count(text string, maxTokens int, safetyMargin float64) Estimate {
	key := cacheKey(text, maxTokens, safetyMargin)

	c.mu.RLock()
	if est, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		return est
	}
	c.mu.RUnlock()

	est := c.inner.Count(text, maxTokens, safetyMargin)

	c.mu.Lock()
	c.cache[key] = est
	c.mu.Unlock()

	return est
}

// Len returns the number of cached entries.
func (c *CachingCounter) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

func cacheKey(text string, maxTokens int, safetyMargin float64) string {
	var b strings.Builder
	b.WriteString(text)
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(maxTokens))
	b.WriteByte(0)
	b.WriteString(strconv.FormatFloat(safetyMargin, 'f', -1, 64))
	return b.String()
}
