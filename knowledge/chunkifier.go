package knowledge

import (
	"strings"
	"unicode/utf8"
)

const DefaultMaxChunkChars = 500

const sentenceBoundary = ". "

type SentenceChunkifier struct {
	maxChars int
}

func (c *SentenceChunkifier) Chunkify(text string) []string {
	return Split(text, c.maxChars)
}

// Split packs the sentences of text into chunks of at most maxChars runes.
// A sentence is never cut, so a single sentence longer than maxChars
// becomes a chunk of its own. Joining the chunks with single spaces gives
// back the words of text. Text without any words is returned as one chunk.
//
// The size of a chunk includes the sentence terminators and the spaces
// between its sentences.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}

	fragments := strings.Split(strings.ReplaceAll(text, "\n", " "), sentenceBoundary)
	var chunks []string
	var buf strings.Builder
	bufLen := 0

	flush := func() {
		chunk := strings.TrimSpace(buf.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		buf.Reset()
		bufLen = 0
	}

	for i, f := range fragments {
		// keep the terminator on every sentence but the last
		if i < len(fragments)-1 {
			f += "."
		}

		l := utf8.RuneCountInString(f)
		if bufLen > 0 && bufLen+1+l > maxChars {
			flush()
		}

		if bufLen > 0 {
			buf.WriteByte(' ')
			bufLen++
		}
		buf.WriteString(f)
		bufLen += l
	}
	flush()

	if len(chunks) == 0 {
		return []string{text}
	}

	return chunks
}
