package segmenter

import (
	"fmt"
	"strings"

	"segsearch/internal/domain"
)

// Issue is one validation finding.
type Issue struct {
	Type    string `json:"type"`
	SegID   string `json:"seg_id,omitempty"`
	Message string `json:"message"`
}

// Report is the outcome of validating a segment list against the original
// chapter text. Status is "ok", "warnings" or "errors".
type Report struct {
	KapNr    int     `json:"kap_nr"`
	KapTitel string  `json:"kap_titel"`
	Status   string  `json:"status"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// OK reports whether the validation found no errors.
func (r *Report) OK() bool { return r.Status != "errors" }

// Validate checks a segment list against the original chapter text. It is
// the gate every segmentation must pass, whether produced by the
// deterministic packer or suggested by a generative capability: exact
// coverage of the original, canonical ids, contiguous numbering, correct
// word counts, sentence-aligned boundaries and the size bands with their
// two permitted exceptions.
func Validate(original string, segments []domain.Segment, limits Limits) Report {
	r := Report{}
	errf := func(typ, segID, format string, args ...any) {
		r.Errors = append(r.Errors, Issue{Type: typ, SegID: segID, Message: fmt.Sprintf(format, args...)})
	}
	warnf := func(typ, segID, format string, args ...any) {
		r.Warnings = append(r.Warnings, Issue{Type: typ, SegID: segID, Message: fmt.Sprintf(format, args...)})
	}

	if len(segments) == 0 {
		errf("coverage", "", "segment list is empty")
		r.Status = "errors"
		return r
	}

	r.KapNr = segments[0].KapNr
	r.KapTitel = segments[0].KapTitel

	cursor := 0
	for i, seg := range segments {
		expected := i + 1
		if seg.SegNr != expected {
			errf("seg_nr_sequence", seg.ID, "expected seg_nr %d, found %d", expected, seg.SegNr)
		}
		if seg.KapNr != r.KapNr {
			errf("kap_nr_inconsistent", seg.ID, "kap_nr %d differs from %d", seg.KapNr, r.KapNr)
		}
		if strings.TrimSpace(seg.KapTitel) != strings.TrimSpace(r.KapTitel) {
			errf("kap_titel_inconsistent", seg.ID, "kap_titel differs from the other segments")
		}
		if !domain.ValidSegmentID(seg.ID, seg.KapNr, seg.SegNr) {
			errf("id_format", seg.ID, "id does not match the canonical KNNN-SMMM pattern")
		}

		end := cursor + len(seg.Text)
		if end > len(original) || original[cursor:end] != seg.Text {
			errf("text_mismatch", seg.ID, "segment text does not match the original at offset %d", cursor)
			r.Status = "errors"
			return r
		}
		cursor = end

		words := domain.CountWords(seg.Text)
		if seg.WordCount != words {
			errf("word_count", seg.ID, "word_count %d does not match actual %d", seg.WordCount, words)
		}

		sents := splitSentences(seg.Text)
		if len(sents) < 2 {
			errf("single_sentence", seg.ID, "segment consists of a single sentence")
		}
		checkSize(seg, words, sents, limits, errf, warnf)

		if !endsOnSentenceBoundary(seg.Text) {
			warnf("sentence_boundary", seg.ID, "segment does not end with ., ! or ? (ignoring closing marks)")
		}
	}

	if cursor != len(original) {
		errf("coverage", "", "segments cover %d of %d characters of the original", cursor, len(original))
	}

	switch {
	case len(r.Errors) > 0:
		r.Status = "errors"
	case len(r.Warnings) > 0:
		r.Status = "warnings"
	default:
		r.Status = "ok"
	}
	return r
}

func checkSize(seg domain.Segment, words int, sents []sentence, limits Limits, errf, warnf func(typ, segID, format string, args ...any)) {
	switch {
	case words >= limits.MinWords && words <= limits.MaxWords:
		return
	case words > limits.MaxWords && words <= limits.StretchMax:
		warnf("segment_length", seg.ID, "segment has %d words (> %d), permitted only for a cohesive passage", words, limits.MaxWords)
	case words > limits.StretchMax:
		errf("segment_length", seg.ID, "segment has %d words (> stretch ceiling %d)", words, limits.StretchMax)
	case words < limits.LowException:
		if len(sents) < 2 {
			errf("segment_length", seg.ID, "segment has %d words (< %d) and fewer than two sentences", words, limits.LowException)
		} else {
			warnf("segment_length", seg.ID, "segment has only %d words (< %d), permitted only as a standalone paragraph", words, limits.LowException)
		}
	default: // [LowException, MinWords)
		errf("segment_length", seg.ID, "segment has %d words, below the minimum of %d and above the exception bound %d", words, limits.MinWords, limits.LowException)
	}
}

// endsOnSentenceBoundary strips trailing whitespace and closing marks and
// checks for a terminator, mirroring the sentence splitter's closers.
func endsOnSentenceBoundary(text string) bool {
	trimmed := strings.TrimRight(text, " \t\n\r\v\f")
	for len(trimmed) > 0 {
		runes := []rune(trimmed)
		last := runes[len(runes)-1]
		if strings.ContainsRune(closers, last) {
			trimmed = strings.TrimRight(string(runes[:len(runes)-1]), " \t\n\r\v\f")
			continue
		}
		return strings.ContainsRune(terminators, last)
	}
	return false
}
