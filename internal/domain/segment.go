package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Segment is a sentence-aligned, size-bounded span of a chapter's text.
// Concatenating all segments of a chapter in SegNr order reproduces the
// chapter text exactly.
type Segment struct {
	ID        string `json:"id"`
	KapNr     int    `json:"kap_nr"`
	KapTitel  string `json:"kap_titel"`
	SegNr     int    `json:"seg_nr"`
	WordCount int    `json:"word_count"`
	Text      string `json:"text"`
}

var segmentIDPattern = regexp.MustCompile(`^K\d{3}-S\d{3}$`)

// SegmentID builds the canonical segment identifier KNNN-SMMM.
func SegmentID(kapNr, segNr int) string {
	return fmt.Sprintf("K%03d-S%03d", kapNr, segNr)
}

// ValidSegmentID reports whether id is the canonical identifier for the
// given chapter and segment numbers.
func ValidSegmentID(id string, kapNr, segNr int) bool {
	return segmentIDPattern.MatchString(id) && id == SegmentID(kapNr, segNr)
}

// CountWords returns the whitespace-token count of text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
