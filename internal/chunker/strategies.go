package chunker

import (
	"fmt"
	"strings"
)

// buildParagraphSegments splits on paragraph boundaries; a paragraph that
// exceeds the budget recurses into sentence-based splitting, emitting a
// "too large" warning, exactly as the corpus's original chunker handled
// oversized paragraphs.
func (c *Chunker) buildParagraphSegments(text string) ([]segment, []string) {
	paragraphs := splitParagraphsWithOffsets(text)
	var segs []segment
	var warnings []string

	for blockIdx, p := range paragraphs {
		est := c.cfg.Counter.Count(p.text, c.cfg.MaxTokens, c.safetyMargin())
		if est.TokenCount <= c.budget() {
			segs = append(segs, segment{
				text:        p.text,
				start:       p.start,
				end:         p.end,
				sectionPath: fmt.Sprintf("block_%d", blockIdx),
			})
			continue
		}

		parts := c.splitSentenceBudget(p.text, p.start)
		warnings = append(warnings, fmt.Sprintf("paragraph %d is too large (%d tokens); split into %d parts", blockIdx, est.TokenCount, len(parts)))
		for partIdx, part := range parts {
			part.sectionPath = fmt.Sprintf("block_%d/part_%d", blockIdx, partIdx)
			segs = append(segs, part)
		}
	}
	return segs, warnings
}

// buildTokenAwareSegments performs sentence-first splitting across the
// whole text: sentences are concatenated until the budget would be
// exceeded, then emitted as one chunk. An overlong sentence is split at
// word boundaries with a "too large" warning.
func (c *Chunker) buildTokenAwareSegments(text string) ([]segment, []string) {
	sentences := splitSentencesWithOffsets(text)
	var segs []segment
	var warnings []string

	var cur strings.Builder
	curStart := -1
	curEnd := 0
	blockIdx := 0

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		segs = append(segs, segment{text: cur.String(), start: curStart, end: curEnd, sectionPath: fmt.Sprintf("block_%d", blockIdx)})
		blockIdx++
		cur.Reset()
		curStart = -1
	}

	for _, s := range sentences {
		sentEst := c.cfg.Counter.Count(s.text, c.cfg.MaxTokens, c.safetyMargin())

		if sentEst.TokenCount > c.budget() {
			flush()
			words := splitWordsWithOffsets(s.text, s.start)
			groups := groupWordsByBudget(words, c.budget(), c.cfg)
			warnings = append(warnings, fmt.Sprintf("sentence at offset %d is too large (%d tokens); split into %d parts", s.start, sentEst.TokenCount, len(groups)))
			for partIdx, g := range groups {
				segs = append(segs, segment{text: g.text, start: g.start, end: g.end, sectionPath: fmt.Sprintf("block_%d/part_%d", blockIdx, partIdx)})
			}
			blockIdx++
			continue
		}

		curTokens := c.cfg.Counter.Count(cur.String(), c.cfg.MaxTokens, c.safetyMargin()).TokenCount
		if curTokens > 0 && curTokens+sentEst.TokenCount > c.budget() {
			flush()
		}
		if curStart < 0 {
			curStart = s.start
		}
		if cur.Len() > 0 {
			cur.WriteString(" ")
		}
		cur.WriteString(s.text)
		curEnd = s.end
	}
	flush()

	return segs, warnings
}

// buildCharacterSegments produces fixed-size character windows, each backed
// off to the nearest preceding word boundary.
func (c *Chunker) buildCharacterSegments(text string) []segment {
	size := c.cfg.ChunkSizeChars
	runes := []rune(text)
	var segs []segment

	i := 0
	for i < len(runes) {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		} else {
			// Back off to the nearest preceding space so words aren't split.
			j := end
			for j > i && runes[j-1] != ' ' {
				j--
			}
			if j > i {
				end = j
			}
		}
		segs = append(segs, segment{text: string(runes[i:end]), start: i, end: end})
		i = end
	}
	return segs
}

// splitSentenceBudget packs sentences of a single paragraph into chunks
// under the token budget, falling back to word-boundary splitting when a
// single sentence alone exceeds the budget.
func (c *Chunker) splitSentenceBudget(text string, baseOffset int) []segment {
	sentences := splitSentencesWithOffsets(text)
	var segs []segment
	var cur strings.Builder
	curStart := -1
	curEnd := baseOffset

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		segs = append(segs, segment{text: cur.String(), start: curStart, end: curEnd})
		cur.Reset()
		curStart = -1
	}

	for _, s := range sentences {
		sentEst := c.cfg.Counter.Count(s.text, c.cfg.MaxTokens, c.safetyMargin())
		if sentEst.TokenCount > c.budget() {
			flush()
			words := splitWordsWithOffsets(s.text, s.start)
			for _, g := range groupWordsByBudget(words, c.budget(), c.cfg) {
				segs = append(segs, g)
			}
			continue
		}
		curTokens := c.cfg.Counter.Count(cur.String(), c.cfg.MaxTokens, c.safetyMargin()).TokenCount
		if curTokens > 0 && curTokens+sentEst.TokenCount > c.budget() {
			flush()
		}
		if curStart < 0 {
			curStart = s.start
		}
		if cur.Len() > 0 {
			cur.WriteString(" ")
		}
		cur.WriteString(s.text)
		curEnd = s.end
	}
	flush()

	if len(segs) == 0 && len(text) > 0 {
		words := splitWordsWithOffsets(text, baseOffset)
		segs = groupWordsByBudget(words, c.budget(), c.cfg)
	}
	return segs
}
