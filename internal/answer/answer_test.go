package answer

import (
	"strings"
	"testing"

	"segsearch/internal/domain"
)

func TestBuildReviewPayload(t *testing.T) {
	original := "Erster Satz steht hier. Zweiter Satz folgt darauf. Dritter Satz schließt ab."
	segments := []domain.Segment{
		{ID: "K001-S001", KapNr: 1, SegNr: 1, WordCount: 8, Text: "Erster Satz steht hier. Zweiter Satz folgt darauf. "},
		{ID: "K001-S002", KapNr: 1, SegNr: 2, WordCount: 4, Text: "Dritter Satz schließt ab."},
	}
	payload, err := buildReviewPayload(original, segments)
	if err != nil {
		t.Fatalf("buildReviewPayload: %v", err)
	}
	if len(payload) != 2 {
		t.Fatalf("got %d payload entries, want 2", len(payload))
	}
	if payload[0].PrecedingContext != "" {
		t.Errorf("first segment has preceding context %q", payload[0].PrecedingContext)
	}
	if !strings.HasPrefix(payload[0].FollowingContext, "Dritter") {
		t.Errorf("following context = %q", payload[0].FollowingContext)
	}
	if !strings.HasSuffix(payload[1].PrecedingContext, "darauf. ") {
		t.Errorf("preceding context = %q", payload[1].PrecedingContext)
	}
	if payload[1].FollowingContext != "" {
		t.Errorf("last segment has following context %q", payload[1].FollowingContext)
	}
}

func TestBuildReviewPayloadMismatch(t *testing.T) {
	segments := []domain.Segment{
		{ID: "K001-S001", KapNr: 1, SegNr: 1, Text: "Ganz anderer Text."},
	}
	if _, err := buildReviewPayload("Das Original lautet anders.", segments); err == nil {
		t.Fatal("mismatched segment must fail")
	}
}

func TestParseReview(t *testing.T) {
	raw := "```json\n{\"findings\":[{\"type\":\"abrupt_boundary\",\"seg_id\":\"K001-S002\",\"message\":\"Gedanke wird getrennt.\"}]}\n```"
	review, err := parseReview(raw, 1, "Titel")
	if err != nil {
		t.Fatalf("parseReview: %v", err)
	}
	if review.KapNr != 1 || review.KapTitel != "Titel" {
		t.Errorf("missing defaults: %+v", review)
	}
	if len(review.Findings) != 1 {
		t.Fatalf("got %d findings, want 1", len(review.Findings))
	}
	if review.Findings[0].Severity != "medium" {
		t.Errorf("severity = %q, want the medium default", review.Findings[0].Severity)
	}
}

func TestParseReviewEmptyFindings(t *testing.T) {
	review, err := parseReview(`{"kap_nr":3,"kap_titel":"Eigen","findings":[]}`, 1, "Titel")
	if err != nil {
		t.Fatalf("parseReview: %v", err)
	}
	if review.KapNr != 3 || review.KapTitel != "Eigen" {
		t.Errorf("explicit fields overridden: %+v", review)
	}
	if len(review.Findings) != 0 {
		t.Errorf("findings = %+v, want none", review.Findings)
	}
}

func TestParseReviewInvalidJSON(t *testing.T) {
	if _, err := parseReview("keine JSON-Antwort", 1, "Titel"); err == nil {
		t.Fatal("invalid JSON must fail")
	}
}
