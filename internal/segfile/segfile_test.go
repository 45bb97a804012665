package segfile

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"segsearch/internal/domain"
)

func sampleSegments() []domain.Segment {
	return []domain.Segment{
		{ID: "K004-S001", KapNr: 4, KapTitel: "Das Leben", SegNr: 1, WordCount: 3, Text: "Erster kurzer Abschnitt. "},
		{ID: "K004-S002", KapNr: 4, KapTitel: "Das Leben", SegNr: 2, WordCount: 3, Text: "Zweiter kurzer Abschnitt."},
	}
}

func TestWriteJSONLReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "K004_Das_Leben.jsonl")
	want := sampleSegments()
	if err := WriteJSONL(path, want); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestWriteJSONReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "K004_Das_Leben.json")
	want := sampleSegments()
	if err := WriteJSON(path, want); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestReadStripsBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bom.jsonl")
	line := `{"id":"K001-S001","kap_nr":1,"kap_titel":"T","seg_nr":1,"word_count":2,"text":"Zwei Wörter."}`
	if err := os.WriteFile(path, []byte("\ufeff"+line+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 1 || got[0].ID != "K001-S001" {
		t.Errorf("got %+v", got)
	}
}

func TestReadMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jsonl")
	line := `{"id":"K001-S001","kap_nr":1,"seg_nr":1,"text":"Ohne Titel und Zählung."}`
	if err := os.WriteFile(path, []byte(line+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Read(path)
	if err == nil {
		t.Fatal("missing fields must fail")
	}
	msg := err.Error()
	if !strings.Contains(msg, "kap_titel") || !strings.Contains(msg, "word_count") {
		t.Errorf("error should name the missing fields, got %q", msg)
	}
}

func TestReadInconsistentChapter(t *testing.T) {
	segments := sampleSegments()
	segments[1].KapNr = 5
	segments[1].ID = "K005-S002"
	path := filepath.Join(t.TempDir(), "mixed.jsonl")
	if err := WriteJSONL(path, segments); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil || !strings.Contains(err.Error(), "kap_nr") {
		t.Errorf("mixed kap_nr must fail, got %v", err)
	}
}

func TestReadNonContiguousSegNr(t *testing.T) {
	segments := sampleSegments()
	segments[1].SegNr = 4
	segments[1].ID = "K004-S004"
	path := filepath.Join(t.TempDir(), "gap.jsonl")
	if err := WriteJSONL(path, segments); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil || !strings.Contains(err.Error(), "contiguous") {
		t.Errorf("seg_nr gap must fail, got %v", err)
	}
}

func TestReadBadID(t *testing.T) {
	segments := sampleSegments()
	segments[0].ID = "K4-S1"
	path := filepath.Join(t.TempDir(), "badid.jsonl")
	if err := WriteJSONL(path, segments); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil || !strings.Contains(err.Error(), "pattern") {
		t.Errorf("bad id must fail, got %v", err)
	}
}

func TestReadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	if err := os.WriteFile(path, []byte("  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil {
		t.Error("empty file must fail")
	}
}

func TestConvertToJSONL(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "chapter.json")
	want := sampleSegments()
	if err := WriteJSON(in, want); err != nil {
		t.Fatal(err)
	}
	if err := ConvertToJSONL(in, ""); err != nil {
		t.Fatalf("ConvertToJSONL: %v", err)
	}
	got, err := Read(filepath.Join(dir, "chapter.jsonl"))
	if err != nil {
		t.Fatalf("Read converted: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("converted segments differ:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestChapterBasename(t *testing.T) {
	tests := []struct {
		kapNr int
		titel string
		want  string
	}{
		{4, "Das Leben", "K004_Das_Leben"},
		{1, "Erkenntnis über Größe", "K001_Erkenntnis_über_Größe"},
		{12, "  Was sucht ihr?  ", "K012_Was_sucht_ihr"},
		{7, "", "K007"},
		{3, "Ruf--nach...dem Helfer", "K003_Ruf_nach_dem_Helfer"},
	}
	for _, tt := range tests {
		if got := ChapterBasename(tt.kapNr, tt.titel); got != tt.want {
			t.Errorf("ChapterBasename(%d, %q) = %q, want %q", tt.kapNr, tt.titel, got, tt.want)
		}
	}
}

func TestListChapterFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"K002_B.jsonl", "K001_A.json", "notes.txt", "K003_C.jsonl"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.json"), 0o755); err != nil {
		t.Fatal(err)
	}
	files, err := ListChapterFiles(dir)
	if err != nil {
		t.Fatalf("ListChapterFiles: %v", err)
	}
	want := []string{
		filepath.Join(dir, "K001_A.json"),
		filepath.Join(dir, "K002_B.jsonl"),
		filepath.Join(dir, "K003_C.jsonl"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("files = %v, want %v", files, want)
	}
}
