package chunk_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/mnemosyne/pkg/service/chunk"
)

// stripSeparators removes everything the packer may have inserted or
// normalized so coverage can be compared on content alone.
func stripSeparators(s string) string {
	for _, sep := range []string{"\n", " "} {
		s = strings.ReplaceAll(s, sep, "")
	}
	return s
}

func TestSplitShortInput(t *testing.T) {
	t.Run("text within limit returns single fragment", func(t *testing.T) {
		got := chunk.Split("hello world", 100)
		gt.Array(t, got).Length(1)
		gt.Value(t, got[0]).Equal("hello world")
	})

	t.Run("exact length returns single fragment", func(t *testing.T) {
		got := chunk.Split("abcde", 5)
		gt.Array(t, got).Length(1)
		gt.Value(t, got[0]).Equal("abcde")
	})

	t.Run("empty input returns single empty fragment", func(t *testing.T) {
		got := chunk.Split("", 10)
		gt.Array(t, got).Length(1)
		gt.Value(t, got[0]).Equal("")
	})
}

func TestSplitParagraphPacking(t *testing.T) {
	text := "first paragraph\n\nsecond paragraph\n\nthird paragraph"

	got := chunk.Split(text, 35)

	gt.Number(t, len(got)).GreaterOrEqual(2)
	for _, c := range got {
		gt.Number(t, utf8.RuneCountInString(c)).LessOrEqual(35)
	}
	gt.Value(t, got[0]).Equal("first paragraph\n\nsecond paragraph")
	gt.Value(t, got[1]).Equal("third paragraph")
}

func TestSplitSentenceFallback(t *testing.T) {
	// One paragraph longer than the limit, made of short sentences
	text := "Alpha is first. Beta is second. Gamma is third. Delta is fourth."

	got := chunk.Split(text, 35)

	gt.Number(t, len(got)).GreaterOrEqual(2)
	for _, c := range got {
		gt.Number(t, utf8.RuneCountInString(c)).LessOrEqual(35)
	}
	gt.String(t, got[0]).Contains("Alpha is first.")
}

func TestSplitWordFallback(t *testing.T) {
	text := "one two three four five six seven eight nine ten"

	got := chunk.Split(text, 12)

	gt.Number(t, len(got)).GreaterOrEqual(4)
	for _, c := range got {
		gt.Number(t, utf8.RuneCountInString(c)).LessOrEqual(12)
	}
}

func TestSplitOversizedWord(t *testing.T) {
	t.Run("single run-on word exceeds the limit", func(t *testing.T) {
		word := strings.Repeat("x", 50)
		got := chunk.Split(word, 10)

		// Words are never cut: the oversized word comes back as one
		// oversized fragment.
		gt.Array(t, got).Length(1)
		gt.Value(t, got[0]).Equal(word)
	})

	t.Run("oversized word among normal words", func(t *testing.T) {
		word := strings.Repeat("y", 30)
		got := chunk.Split("start "+word+" end", 10)

		gt.Number(t, len(got)).GreaterOrEqual(3)
		found := false
		for _, c := range got {
			if c == word {
				found = true
			} else {
				gt.Number(t, utf8.RuneCountInString(c)).LessOrEqual(10)
			}
		}
		gt.Bool(t, found).True()
	})
}

func TestSplitLengthInvariant(t *testing.T) {
	inputs := []string{
		strings.Repeat("word ", 500),
		strings.Repeat("A sentence here. ", 100),
		strings.Repeat("paragraph body text\n\n", 40),
		"short",
	}

	for _, maxLen := range []int{1, 10, 80, 4096} {
		for _, text := range inputs {
			for _, c := range chunk.Split(text, maxLen) {
				// The oversized-word case is excluded: these inputs have no
				// word longer than 19 runes.
				if maxLen >= 20 {
					gt.Number(t, utf8.RuneCountInString(c)).LessOrEqual(maxLen)
				}
			}
		}
	}
}

func TestSplitCoverage(t *testing.T) {
	inputs := []string{
		"first paragraph\n\nsecond paragraph\n\nthird one is quite a bit longer than the others",
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 30),
		"word " + strings.Repeat("z", 100) + " tail",
	}

	for _, text := range inputs {
		for _, maxLen := range []int{10, 40, 120} {
			parts := chunk.Split(text, maxLen)
			joined := strings.Join(parts, " ")
			gt.Value(t, stripSeparators(joined)).Equal(stripSeparators(text))
		}
	}
}

func TestSplitDeterminism(t *testing.T) {
	text := strings.Repeat("Some sentence with words. ", 80)
	first := chunk.Split(text, 100)
	for range 5 {
		gt.Array(t, chunk.Split(text, 100)).Equal(first)
	}
}

func TestSplitMultibyte(t *testing.T) {
	text := strings.Repeat("これは日本語の文章です。 ", 50)
	for _, c := range chunk.Split(text, 40) {
		gt.Number(t, utf8.RuneCountInString(c)).LessOrEqual(40)
		gt.Bool(t, utf8.ValidString(c)).True()
	}
}
