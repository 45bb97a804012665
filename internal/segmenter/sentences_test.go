package segmenter

import (
	"strings"
	"testing"
)

func TestNormalizeText(t *testing.T) {
	in := "Erste Zeile.\r\nZweite Zeile.\r\n\r\nNeuer Absatz."
	want := "Erste Zeile.\nZweite Zeile.\n\nNeuer Absatz."
	if got := NormalizeText(in); got != want {
		t.Errorf("NormalizeText = %q, want %q", got, want)
	}
}

func TestSplitSentencesPartitionsInput(t *testing.T) {
	texts := []string{
		"Erster Satz. Zweiter Satz! Dritter Satz?",
		"Ein Satz mit Zahl 3.14 darin. Und noch einer.",
		"Absatz eins endet hier.\n\nAbsatz zwei beginnt neu. Er geht weiter.",
		"Er sagte: „Komm her!\" Dann ging er fort.",
		"Kein Schlusszeichen am Ende",
	}
	for _, text := range texts {
		sents := splitSentences(text)
		var b strings.Builder
		for _, sn := range sents {
			b.WriteString(sn.text)
		}
		if b.String() != text {
			t.Errorf("sentences do not partition %q: got %q", text, b.String())
		}
	}
}

func TestSplitSentencesBoundaries(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"Erster Satz. Zweiter Satz! Dritter Satz?", 3},
		{"Die Zahl 3.14 ist bekannt. Genau.", 2},
		{"Dies gilt bzw. auch im Weiteren. Ein neuer Satz.", 2},
		{"Er sagte: „Komm her!\" Dann ging er fort.", 2},
		{"Kein Schlusszeichen am Ende", 1},
	}
	for _, tt := range tests {
		if got := splitSentences(tt.text); len(got) != tt.want {
			t.Errorf("splitSentences(%q) = %d sentences, want %d", tt.text, len(got), tt.want)
		}
	}
}

func TestSplitSentencesParagraphFlags(t *testing.T) {
	text := "Absatz eins Satz eins. Absatz eins Satz zwei.\n\nAbsatz zwei Satz eins. Ende hier."
	sents := splitSentences(text)
	if len(sents) != 4 {
		t.Fatalf("got %d sentences, want 4", len(sents))
	}
	if !sents[0].startsPara {
		t.Error("first sentence should start a paragraph")
	}
	if !sents[1].endsPara {
		t.Error("sentence before the blank line should end its paragraph")
	}
	if !sents[2].startsPara {
		t.Error("sentence after the blank line should start a paragraph")
	}
	if sents[2].endsPara {
		t.Error("mid-paragraph sentence should not end the paragraph")
	}
	if !sents[3].endsPara {
		t.Error("last sentence always ends the paragraph")
	}
}

func TestSplitSentencesWordCounts(t *testing.T) {
	sents := splitSentences("Drei kurze Wörter. Nun vier ganze Wörter hier.")
	if len(sents) != 2 {
		t.Fatalf("got %d sentences, want 2", len(sents))
	}
	if sents[0].words != 3 {
		t.Errorf("first sentence words = %d, want 3", sents[0].words)
	}
	if sents[1].words != 5 {
		t.Errorf("second sentence words = %d, want 5", sents[1].words)
	}
}
