// Package chunker splits document text into overlapping token-budget
// chunks with section heading and page tracking.
//
// Strategy:
//  1. Split on blank-line boundaries (paragraphs) first.
//  2. If a paragraph overflows the token budget, split on sentences.
//  3. Slide a 512-token window with 128-token overlap across the stream
//     of segments, keeping segment boundaries intact where possible.
//  4. Detect section headings (Markdown '#' prefix or short ALL-CAPS
//     lines) and carry the current heading forward into each chunk.
package chunker

import (
	"fmt"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/northgate-labs/docsync/internal/core/domain"
	"github.com/northgate-labs/docsync/internal/core/ports/driven"
)

// DefaultChunkTokens is the default token budget per chunk.
const DefaultChunkTokens = 512

// DefaultOverlapTokens is the default overlap between consecutive chunks.
const DefaultOverlapTokens = 128

// A line is treated as a section heading when it starts with one or more
// '#' characters (Markdown heading), or is short (<=60 chars) and ALL
// CAPS (common in policy documents).
var headingRe = regexp.MustCompile(`^(#{1,6}\s+.+|[A-Z][A-Z0-9 &/\-,:]{2,59})$`)

// Page markers are interleaved with page content by the extraction layer.
var pageMarkerRe = regexp.MustCompile(`--- Page (\d+) ---`)

var paragraphRe = regexp.MustCompile(`\n{2,}`)

// Sentence boundaries: terminal punctuation followed by whitespace.
var sentenceRe = regexp.MustCompile(`[.?!]\s+`)

// segment is a run of text small enough to pack into windows.
type segment struct {
	tokens []int
	text   string
}

// Chunker splits text into overlapping token-budget chunks.
// It is a pure function of its inputs and safe for concurrent use.
type Chunker struct {
	tok           driven.Tokenizer
	chunkTokens   int
	overlapTokens int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkTokens sets the token budget per chunk.
func WithChunkTokens(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.chunkTokens = n
		}
	}
}

// WithOverlapTokens sets the overlap between consecutive chunks.
func WithOverlapTokens(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlapTokens = n
		}
	}
}

// New creates a chunker using the given tokenizer.
func New(tok driven.Tokenizer, opts ...Option) *Chunker {
	c := &Chunker{
		tok:           tok,
		chunkTokens:   DefaultChunkTokens,
		overlapTokens: DefaultOverlapTokens,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room to advance
	if c.overlapTokens >= c.chunkTokens {
		c.overlapTokens = c.chunkTokens / 4
	}

	return c
}

// Chunk splits text into ordered chunks ready for embedding and indexing.
//
// Each chunk carries a fresh unique identifier, its ordinal index, the
// final total chunk count, the title, the section heading and page number
// in effect at that point in the text, and a copy of metadata. The chunk
// content is prefixed with "Title: <t> | Section: <s> | " so the embedding
// captures document context. Empty or all-whitespace input yields nil.
func (c *Chunker) Chunk(text, title string, metadata map[string]any) []domain.Chunk {
	paragraphs := splitParagraphs(text)
	segments := c.tokenSegments(paragraphs)
	windows := c.slidingWindows(segments)

	chunks := make([]domain.Chunk, 0, len(windows))
	currentHeading := ""
	currentPage := 1

	for idx, win := range windows {
		// Track the last detected heading and page from contributing segments
		for _, seg := range win.segments {
			if isHeading(seg.text) {
				currentHeading = strings.TrimSpace(strings.TrimLeft(seg.text, "#"))
			}
			if m := pageMarkerRe.FindStringSubmatch(seg.text); m != nil {
				if page, err := strconv.Atoi(m[1]); err == nil {
					currentPage = page
				}
			}
		}

		// Prepend a structured prefix so the embedding captures context
		prefix := fmt.Sprintf("Title: %s | Section: %s | ", title, currentHeading)

		chunks = append(chunks, domain.Chunk{
			ID:             uuid.New().String(),
			Content:        prefix + c.tok.Decode(win.tokens),
			Index:          idx,
			Title:          title,
			SectionHeading: currentHeading,
			PageNumber:     currentPage,
			Metadata:       maps.Clone(metadata),
		})
	}

	// Backfill the total once the full chunk list is known
	for i := range chunks {
		chunks[i].TotalChunks = len(chunks)
	}

	return chunks
}

// splitParagraphs splits on blank lines, dropping empty paragraphs.
// Page markers stay attached to their paragraph block.
func splitParagraphs(text string) []string {
	raw := paragraphRe.Split(text, -1)
	paragraphs := make([]string, 0, len(raw))
	for _, block := range raw {
		block = strings.TrimSpace(block)
		if block != "" {
			paragraphs = append(paragraphs, block)
		}
	}
	return paragraphs
}

// tokenSegments encodes each paragraph, splitting oversized ones on
// sentence boundaries and regrouping greedily under the token budget.
// A single sentence longer than the budget is still emitted whole; the
// window pass truncates it.
func (c *Chunker) tokenSegments(paragraphs []string) []segment {
	var segments []segment
	for _, para := range paragraphs {
		tokens := c.tok.Encode(para)
		if len(tokens) <= c.chunkTokens {
			segments = append(segments, segment{tokens: tokens, text: para})
			continue
		}

		var accTokens []int
		var accText []string
		for _, sentence := range splitSentences(para) {
			sTokens := c.tok.Encode(sentence)
			if len(accTokens)+len(sTokens) > c.chunkTokens && len(accTokens) > 0 {
				segments = append(segments, segment{tokens: accTokens, text: strings.Join(accText, " ")})
				accTokens = nil
				accText = nil
			}
			accTokens = append(accTokens, sTokens...)
			accText = append(accText, sentence)
		}
		if len(accTokens) > 0 {
			segments = append(segments, segment{tokens: accTokens, text: strings.Join(accText, " ")})
		}
	}
	return segments
}

// window is one chunk-to-be: packed tokens plus the contributing segments.
type window struct {
	tokens   []int
	segments []segment
}

// slidingWindows packs consecutive segments into windows of at most the
// token budget, then steps forward so the next window re-includes roughly
// overlapTokens worth of trailing segments. Advancing by at least one
// segment guarantees termination.
func (c *Chunker) slidingWindows(segments []segment) []window {
	var windows []window
	i := 0
	for i < len(segments) {
		var win window
		j := i
		for j < len(segments) && len(win.tokens)+len(segments[j].tokens) <= c.chunkTokens {
			win.tokens = append(win.tokens, segments[j].tokens...)
			win.segments = append(win.segments, segments[j])
			j++
		}
		if len(win.tokens) == 0 {
			// Single segment larger than the budget: force it into its
			// own window truncated to the budget.
			win.tokens = segments[i].tokens[:c.chunkTokens]
			win.segments = []segment{segments[i]}
			j = i + 1
		}

		windows = append(windows, win)

		// Step forward, re-including overlapTokens worth of trailing segments
		overlapBudget := c.overlapTokens
		step := j - i
		for step > 1 && overlapBudget > 0 {
			step--
			overlapBudget -= len(segments[i+step].tokens)
		}
		if step < 1 {
			step = 1
		}
		i += step
	}
	return windows
}

// splitSentences splits after terminal punctuation followed by whitespace.
// The punctuation stays with its sentence; the whitespace is dropped.
func splitSentences(text string) []string {
	matches := sentenceRe.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return []string{text}
	}

	sentences := make([]string, 0, len(matches)+1)
	start := 0
	for _, m := range matches {
		// m[0] is the punctuation rune; keep it with the sentence
		sentences = append(sentences, text[start:m[0]+1])
		start = m[1]
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// isHeading reports whether a paragraph's first line looks like a
// section heading.
func isHeading(text string) bool {
	firstLine := strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	return headingRe.MatchString(firstLine) && len(firstLine) <= 120
}
