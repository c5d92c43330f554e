package chunker

import (
	"math"
	"strings"
)

type offsetSpan struct {
	text  string
	start int
	end   int
}

// splitParagraphs splits text on blank lines, discarding whitespace-only
// paragraphs. Used by AnalyzeText where offsets aren't needed.
func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if strings.TrimSpace(p) != "" {
			out = append(out, strings.TrimSpace(p))
		}
	}
	return out
}

// splitParagraphsWithOffsets splits on blank lines and tracks each
// paragraph's byte offsets in the original text.
func splitParagraphsWithOffsets(text string) []offsetSpan {
	const sep = "\n\n"
	var spans []offsetSpan
	pos := 0
	for {
		idx := strings.Index(text[pos:], sep)
		var raw string
		var start int
		if idx < 0 {
			raw = text[pos:]
			start = pos
			pos = len(text)
		} else {
			raw = text[pos : pos+idx]
			start = pos
			pos += idx + len(sep)
		}
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			lead := strings.Index(raw, trimmed)
			spans = append(spans, offsetSpan{text: trimmed, start: start + lead, end: start + lead + len(trimmed)})
		}
		if idx < 0 {
			break
		}
	}
	return spans
}

// splitSentencesWithOffsets does a basic sentence split on '.', '!', '?'
// followed by whitespace, tracking byte offsets.
func splitSentencesWithOffsets(text string) []offsetSpan {
	var spans []offsetSpan
	start := 0
	for i, r := range text {
		isBoundary := (r == '.' || r == '!' || r == '?') && i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\n')
		if isBoundary {
			raw := text[start : i+1]
			trimmed := strings.TrimSpace(raw)
			if trimmed != "" {
				lead := strings.Index(raw, trimmed)
				spans = append(spans, offsetSpan{text: trimmed, start: start + lead, end: start + lead + len(trimmed)})
			}
			start = i + 1
		}
	}
	if start < len(text) {
		raw := text[start:]
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			lead := strings.Index(raw, trimmed)
			spans = append(spans, offsetSpan{text: trimmed, start: start + lead, end: start + lead + len(trimmed)})
		}
	}
	return spans
}

// splitWordsWithOffsets splits text on whitespace, tracking byte offsets
// relative to the original document via baseOffset.
func splitWordsWithOffsets(text string, baseOffset int) []offsetSpan {
	var spans []offsetSpan
	inWord := false
	start := 0
	for i, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			if inWord {
				spans = append(spans, offsetSpan{text: text[start:i], start: baseOffset + start, end: baseOffset + i})
				inWord = false
			}
		} else if !inWord {
			start = i
			inWord = true
		}
	}
	if inWord {
		spans = append(spans, offsetSpan{text: text[start:], start: baseOffset + start, end: baseOffset + len(text)})
	}
	return spans
}

// groupWordsByBudget packs word spans into segments under the token
// budget, always making forward progress even for a single oversized word.
func groupWordsByBudget(words []offsetSpan, budget int, cfg Config) []segment {
	if len(words) == 0 {
		return nil
	}
	var segs []segment
	var cur strings.Builder
	curStart := words[0].start
	curEnd := words[0].start

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		segs = append(segs, segment{text: cur.String(), start: curStart, end: curEnd})
		cur.Reset()
	}

	for _, w := range words {
		candidate := cur.String()
		if candidate != "" {
			candidate += " "
		}
		candidate += w.text
		est := cfg.Counter.Count(candidate, cfg.MaxTokens, float64(cfg.SafetyMarginPct)/100.0)
		if est.TokenCount > budget && cur.Len() > 0 {
			flush()
			curStart = w.start
		}
		if cur.Len() > 0 {
			cur.WriteString(" ")
		}
		cur.WriteString(w.text)
		curEnd = w.end
	}
	flush()
	return segs
}

// applyOverlap prepends a tail-word prefix (derived from OverlapTokens) of
// each segment to the next, so consecutive chunks share at least one whole
// word when overlap is enabled.
func (c *Chunker) applyOverlap(segs []segment) []segment {
	if c.cfg.OverlapTokens <= 0 || len(segs) <= 1 {
		return segs
	}

	out := make([]segment, len(segs))
	out[0] = segs[0]

	overlapWords := int(math.Ceil(float64(c.cfg.OverlapTokens) / 1.3))
	if overlapWords <= 0 {
		overlapWords = 1
	}

	for i := 1; i < len(segs); i++ {
		tail := lastNWords(segs[i-1].text, overlapWords)
		if tail == "" {
			out[i] = segs[i]
			continue
		}
		out[i] = segment{
			text:        tail + " " + segs[i].text,
			start:       segs[i-1].end - len(tail),
			end:         segs[i].end,
			sectionPath: segs[i].sectionPath,
		}
	}
	return out
}

func lastNWords(text string, n int) string {
	words := strings.Fields(text)
	if n >= len(words) {
		return text
	}
	return strings.Join(words[len(words)-n:], " ")
}
