package knowledge

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func Test_Split(t *testing.T) {
	var cases = []struct {
		input  string
		max    int
		output []string
	}{
		{
			input:  "Sentence one. Sentence two. Sentence three.",
			max:    500,
			output: []string{"Sentence one. Sentence two. Sentence three."},
		},
		{
			input:  "Sentence one. Sentence two. Sentence three.",
			max:    20,
			output: []string{"Sentence one.", "Sentence two.", "Sentence three."},
		},
		{
			input:  "Sentence one. Sentence two. Sentence three.",
			max:    27,
			output: []string{"Sentence one. Sentence two.", "Sentence three."},
		},
		{input: "abcdefghij. x", max: 5, output: []string{"abcdefghij.", "x"}},
		{input: "aaaa. bbbbb", max: 10, output: []string{"aaaa.", "bbbbb"}},
		{input: "aaaa. bbbbb", max: 11, output: []string{"aaaa. bbbbb"}},
		{input: "line one\nline two", max: 500, output: []string{"line one line two"}},
		{input: "  padded. text  ", max: 500, output: []string{"padded. text"}},
		{input: "", max: 500, output: []string{""}},
		{input: "   ", max: 500, output: []string{"   "}},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			assert.Equal(t, c.output, Split(c.input, c.max))
		})
	}
}

func Test_Split_DefaultSize(t *testing.T) {
	text := strings.Repeat("All work and no play makes Jack a dull boy. ", 40)
	assert.Equal(t, Split(text, DefaultMaxChunkChars), Split(text, 0))
}

func Test_Split_PreservesWords(t *testing.T) {
	texts := []string{
		"Go is great for concurrency. Rust is great for safety. Zig is small.",
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50),
		"No terminator at all but quite a few words in a row",
		"Trailing boundary. ",
		"Odd. . spacing.  Double  spaces. And\nnewlines\nhere. End",
		"Ünïcödé sëntëncë. Ånöthër öne. " + strings.Repeat("ß", 600) + ". tail",
	}

	for i, text := range texts {
		for _, size := range []int{10, 40, 100, 500} {
			t.Run(fmt.Sprintf("case_%d_%d", i, size), func(t *testing.T) {
				chunks := Split(text, size)
				assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(chunks, " ")))
			})
		}
	}
}

func Test_Split_RespectsSize(t *testing.T) {
	text := strings.Repeat("Short one. A slightly longer sentence here. ", 30) +
		strings.Repeat("x", 120) + ". After the long one."

	for _, size := range []int{30, 60, 100} {
		t.Run(fmt.Sprintf("size_%d", size), func(t *testing.T) {
			for _, c := range Split(text, size) {
				if utf8.RuneCountInString(c) <= size {
					continue
				}
				// only a single oversized sentence may exceed the cap
				assert.NotContains(t, strings.TrimSuffix(c, "."), ". ")
			}
		})
	}
}

func Test_Split_Deterministic(t *testing.T) {
	text := strings.Repeat("Determinism matters. ", 100)
	assert.Equal(t, Split(text, 64), Split(text, 64))
}

func Test_SentenceChunkifier(t *testing.T) {
	c := &SentenceChunkifier{maxChars: 20}
	assert.Equal(t, Split("Sentence one. Sentence two.", 20), c.Chunkify("Sentence one. Sentence two."))
}
