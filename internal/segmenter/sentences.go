package segmenter

import (
	"strings"
	"unicode"
)

// sentence is one sentence of the chapter text including its trailing
// whitespace. The texts of all sentences partition the input exactly, so
// concatenation in order reproduces the input byte-for-byte.
type sentence struct {
	text       string
	words      int
	startsPara bool
	endsPara   bool
}

// terminators end a sentence; closers may trail them (quotes, brackets).
const (
	terminators = ".!?"
	closers     = `"'”’»›)]}«`
)

// NormalizeText converts Windows line endings so that offsets and
// reconstruction checks are stable across input sources.
func NormalizeText(text string) string {
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// splitSentences partitions text into sentences. A boundary lies after a run
// of terminator runes plus any closing quotes or brackets, followed by
// whitespace, provided the next non-space rune does not start with a
// lowercase letter (which usually marks an abbreviation, not a boundary).
// The whitespace run after a boundary is attached to the preceding sentence.
func splitSentences(text string) []sentence {
	runes := []rune(text)
	var out []sentence
	start := 0
	i := 0
	for i < len(runes) {
		if !strings.ContainsRune(terminators, runes[i]) {
			i++
			continue
		}
		// absorb terminator run and trailing closers
		for i < len(runes) && strings.ContainsRune(terminators, runes[i]) {
			i++
		}
		for i < len(runes) && strings.ContainsRune(closers, runes[i]) {
			i++
		}
		if i < len(runes) && !isSpace(runes[i]) {
			continue // mid-token punctuation, e.g. "z.B" or "3.14"
		}
		wsStart := i
		for i < len(runes) && isSpace(runes[i]) {
			i++
		}
		if i < len(runes) && isLower(runes[i]) {
			continue // likely abbreviation; keep accumulating
		}
		out = appendSentence(out, runes, start, i, wsStart)
		start = i
	}
	if start < len(runes) {
		out = appendSentence(out, runes, start, len(runes), len(runes))
	}
	if len(out) > 0 {
		out[len(out)-1].endsPara = true
	}
	return out
}

func appendSentence(out []sentence, runes []rune, start, end, wsStart int) []sentence {
	text := string(runes[start:end])
	s := sentence{
		text:       text,
		words:      len(strings.Fields(text)),
		startsPara: len(out) == 0 || out[len(out)-1].endsPara,
		endsPara:   countNewlines(runes[wsStart:end]) >= 2 || end == len(runes),
	}
	return append(out, s)
}

func countNewlines(runes []rune) int {
	n := 0
	for _, r := range runes {
		if r == '\n' {
			n++
		}
	}
	return n
}

func isSpace(r rune) bool { return unicode.IsSpace(r) }

func isLower(r rune) bool { return unicode.IsLower(r) }
