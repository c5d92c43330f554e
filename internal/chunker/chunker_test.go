package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunk_EmptyInput(t *testing.T) {
	c := New(DefaultConfig())
	res, err := c.Chunk("", "doc1")
	require.NoError(t, err)
	assert.Empty(t, res.Chunks)
}

func TestChunk_WhitespaceOnlyInput(t *testing.T) {
	c := New(DefaultConfig())
	res, err := c.Chunk("   \n\t  ", "doc1")
	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)
}

func TestChunk_UniqueIDsAndFormat(t *testing.T) {
	c := New(DefaultConfig())
	text := strings.Repeat("This is a sentence about machine learning systems. ", 40)
	res, err := c.Chunk(text, "doc42")
	require.NoError(t, err)
	require.NotEmpty(t, res.Chunks)

	seen := make(map[string]bool)
	for i, ch := range res.Chunks {
		assert.False(t, seen[ch.ChunkID], "duplicate chunk id %s", ch.ChunkID)
		seen[ch.ChunkID] = true
		assert.Equal(t, "doc42_chunk_"+itoa(i), ch.ChunkID)
		assert.Less(t, ch.StartIndex, ch.EndIndex)
	}
}

func TestChunk_RespectsTokenBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChunkSizeTokens = 50
	cfg.MaxTokens = 512
	cfg.SafetyMarginPct = 10
	c := New(cfg)

	text := strings.Repeat("word ", 2000)
	res, err := c.Chunk(text, "doc1")
	require.NoError(t, err)

	limit := float64(cfg.MaxTokens) * 0.9
	for _, ch := range res.Chunks {
		if ch.TokenCount > int(limit) {
			found := false
			for _, w := range res.Warnings {
				if strings.Contains(w, tooLargeWarning) {
					found = true
				}
			}
			assert.True(t, found, "chunk exceeds safe limit without a 'too large' warning")
		}
	}
}

func TestChunk_ParagraphAwareSplitsOversizedParagraph(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = StrategyParagraphAware
	cfg.ChunkSizeTokens = 20
	c := New(cfg)

	big := strings.Repeat("token ", 500)
	text := "short intro.\n\n" + big
	res, err := c.Chunk(text, "doc1")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Warnings)
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, tooLargeWarning) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestChunk_CharacterBased(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = StrategyCharacterBased
	cfg.ChunkSizeChars = 20
	c := New(cfg)

	text := "one two three four five six seven eight nine ten"
	res, err := c.Chunk(text, "doc1")
	require.NoError(t, err)
	for _, ch := range res.Chunks {
		assert.LessOrEqual(t, len(ch.Text), 20+10) // word back-off may extend slightly under the window
	}
}

func TestChunk_OverlapSharesWord(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = StrategyTokenAware
	cfg.ChunkSizeTokens = 10
	cfg.OverlapTokens = 5
	c := New(cfg)

	text := strings.Repeat("alpha beta gamma delta epsilon. ", 30)
	res, err := c.Chunk(text, "doc1")
	require.NoError(t, err)
	if len(res.Chunks) < 2 {
		t.Skip("not enough chunks produced to test overlap")
	}
	for i := 1; i < len(res.Chunks); i++ {
		prevWords := strings.Fields(res.Chunks[i-1].Text)
		require.NotEmpty(t, prevWords)
		assert.Contains(t, strings.Fields(res.Chunks[i].Text), prevWords[len(prevWords)-1],
			"chunk %d should share a whole word with chunk %d", i, i-1)
	}
}

func TestNew_MisconfiguredStrategyDegradesSilently(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = "bogus"
	c := New(cfg)
	assert.Equal(t, StrategyTokenAware, c.cfg.Strategy)
}

func TestAnalyzeText(t *testing.T) {
	c := New(DefaultConfig())
	text := "Para one.\n\nPara two.\n\nPara three."
	strategy, estimated, chars := c.AnalyzeText(text)
	assert.Equal(t, StrategyParagraphAware, strategy)
	assert.GreaterOrEqual(t, estimated, 1)
	assert.Equal(t, 3, chars.ParagraphCount)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var b []byte
	for i > 0 {
		b = append([]byte{byte('0' + i%10)}, b...)
		i /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}
