// Package chunk splits text into transport-sized fragments, preferring
// natural boundaries (paragraphs, then sentences, then words) over hard
// cuts.
package chunk

import (
	"strings"
	"unicode/utf8"
)

// Split divides text into fragments of at most maxLen runes each. It is a
// pure function: same input, same output, no side effects.
//
// The algorithm packs greedily with a four-level fallback: whole text,
// paragraphs (double newline), sentences (". "), words. A single word
// longer than maxLen is returned as one oversized fragment rather than cut
// mid-word; this is the only case where a fragment may exceed maxLen.
//
// Concatenating the fragments reproduces the original non-whitespace
// content; whitespace at split points is normalized to the separators the
// packer re-inserts. Empty input returns a single empty fragment. A maxLen
// below 1 is treated as 1.
func Split(text string, maxLen int) []string {
	if maxLen < 1 {
		maxLen = 1
	}
	if utf8.RuneCountInString(text) <= maxLen {
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")
	chunks := pack(paragraphs, "\n\n", maxLen, splitParagraph)
	if len(chunks) == 0 {
		// Input was longer than maxLen but contained no packable content
		// (whitespace only).
		return []string{""}
	}
	return chunks
}

// splitParagraph breaks an oversized paragraph into sentence-packed
// fragments.
func splitParagraph(paragraph string, maxLen int) []string {
	// Sentence boundaries are ". " plus any raw newlines inside the
	// paragraph.
	sentences := strings.Split(strings.ReplaceAll(paragraph, ". ", ".\n"), "\n")
	return pack(sentences, " ", maxLen, splitSentence)
}

// splitSentence breaks an oversized sentence into word-packed fragments.
// Words are never subdivided.
func splitSentence(sentence string, maxLen int) []string {
	words := strings.Split(sentence, " ")
	return pack(words, " ", maxLen, func(word string, _ int) []string {
		// A run-on word longer than maxLen is emitted as-is.
		return []string{word}
	})
}

// pack greedily joins units with sep into fragments of at most maxLen
// runes. Units that alone exceed maxLen are handed to oversize for the next
// fallback level.
func pack(units []string, sep string, maxLen int, oversize func(string, int) []string) []string {
	var chunks []string
	var buf strings.Builder
	bufLen := 0

	flush := func() {
		if bufLen > 0 {
			chunks = append(chunks, buf.String())
			buf.Reset()
			bufLen = 0
		}
	}

	sepLen := utf8.RuneCountInString(sep)

	for _, unit := range units {
		unitLen := utf8.RuneCountInString(unit)
		if unitLen == 0 {
			continue
		}

		if unitLen > maxLen {
			flush()
			chunks = append(chunks, oversize(unit, maxLen)...)
			continue
		}

		join := 0
		if bufLen > 0 {
			join = sepLen
		}
		if bufLen+join+unitLen > maxLen {
			flush()
			join = 0
		}
		if join > 0 {
			buf.WriteString(sep)
			bufLen += join
		}
		buf.WriteString(unit)
		bufLen += unitLen
	}

	flush()
	return chunks
}
