package model

import "fmt"

// TruncatedText is the result of bounding a text to a character limit.
// Callers can assert that truncation occurred via Truncated() instead of
// string-matching on the provenance notice.
type TruncatedText struct {
	Content        string
	OriginalLength int
}

// Truncate bounds text to maxRunes runes. The original length is always
// recorded so the fact of truncation is never silently lost.
func Truncate(text string, maxRunes int) TruncatedText {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return TruncatedText{Content: text, OriginalLength: len(runes)}
	}
	return TruncatedText{
		Content:        string(runes[:maxRunes]),
		OriginalLength: len(runes),
	}
}

// Truncated reports whether the content was cut
func (t TruncatedText) Truncated() bool {
	return t.OriginalLength > len([]rune(t.Content))
}

// WithNotice returns the content with an appended provenance note when the
// text was truncated, and the content unchanged otherwise.
func (t TruncatedText) WithNotice() string {
	if !t.Truncated() {
		return t.Content
	}
	return fmt.Sprintf("%s\n\n[Note: input was truncated from %d characters due to length limits]",
		t.Content, t.OriginalLength)
}
