// Package segfile reads and writes chapter segment files. A file holds all
// segments of exactly one chapter, either as a JSON array or as JSONL with
// one segment object per line.
package segfile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"segsearch/internal/domain"
)

var requiredFields = []string{"id", "kap_nr", "kap_titel", "seg_nr", "word_count", "text"}

// Read loads the segments of one chapter from a JSON array or JSONL file and
// enforces per-file consistency: all required fields present, a single
// kap_nr and kap_titel, and seg_nr contiguous from 1.
func Read(path string) ([]domain.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(strings.TrimPrefix(string(data), "\ufeff"))
	if text == "" {
		return nil, fmt.Errorf("%s: file contains no segments", path)
	}

	var segments []domain.Segment
	if strings.HasPrefix(text, "[") {
		segments, err = parseArray(text)
	} else {
		segments, err = parseLines(text)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := checkConsistency(segments); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return segments, nil
}

func parseArray(text string) ([]domain.Segment, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON array: %w", err)
	}
	segments := make([]domain.Segment, 0, len(raw))
	for i, msg := range raw {
		seg, err := parseObject(msg)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func parseLines(text string) ([]domain.Segment, error) {
	var segments []domain.Segment
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	ln := 0
	for scanner.Scan() {
		ln++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		seg, err := parseObject([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", ln, err)
		}
		segments = append(segments, seg)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return segments, nil
}

func parseObject(data []byte) (domain.Segment, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return domain.Segment{}, fmt.Errorf("invalid JSON object: %w", err)
	}
	var missing []string
	for _, f := range requiredFields {
		if _, ok := fields[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return domain.Segment{}, fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}
	var seg domain.Segment
	if err := json.Unmarshal(data, &seg); err != nil {
		return domain.Segment{}, err
	}
	return seg, nil
}

func checkConsistency(segments []domain.Segment) error {
	if len(segments) == 0 {
		return fmt.Errorf("file contains no segments")
	}
	kapNr := segments[0].KapNr
	kapTitel := segments[0].KapTitel
	for i, seg := range segments {
		if seg.KapNr != kapNr {
			return fmt.Errorf("inconsistent kap_nr: %d and %d", kapNr, seg.KapNr)
		}
		if seg.KapTitel != kapTitel {
			return fmt.Errorf("inconsistent kap_titel: %q and %q", kapTitel, seg.KapTitel)
		}
		if seg.SegNr != i+1 {
			return fmt.Errorf("seg_nr not contiguous from 1: expected %d, found %d", i+1, seg.SegNr)
		}
		if !domain.ValidSegmentID(seg.ID, seg.KapNr, seg.SegNr) {
			return fmt.Errorf("segment %d: id %q does not match the KNNN-SMMM pattern", i+1, seg.ID)
		}
	}
	return nil
}

// WriteJSON writes segments as an indented JSON array, creating parent
// directories as needed.
func WriteJSON(path string, segments []domain.Segment) error {
	data, err := json.MarshalIndent(segments, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// WriteJSONL writes segments as JSONL, one object per line.
func WriteJSONL(path string, segments []domain.Segment) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var b strings.Builder
	for _, seg := range segments {
		line, err := json.Marshal(seg)
		if err != nil {
			return err
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// ConvertToJSONL rewrites a JSON-array segment file as JSONL.
func ConvertToJSONL(inputPath, outputPath string) error {
	segments, err := Read(inputPath)
	if err != nil {
		return err
	}
	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".jsonl"
	}
	return WriteJSONL(outputPath, segments)
}

// ChapterBasename derives a filesystem-friendly base name for chapter files,
// e.g. "K004_Das_Leben".
func ChapterBasename(kapNr int, kapTitel string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "K%03d", kapNr)
	title := strings.TrimSpace(kapTitel)
	if title == "" {
		return b.String()
	}
	b.WriteByte('_')
	lastUnderscore := false
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case r == 'ä', r == 'ö', r == 'ü', r == 'Ä', r == 'Ö', r == 'Ü', r == 'ß':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// ListChapterFiles returns the .json and .jsonl files of a directory in
// lexical order.
func ListChapterFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".json", ".jsonl":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
