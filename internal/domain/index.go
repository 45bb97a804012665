package domain

// IndexVersion is the on-disk format version accepted by the store.
const IndexVersion = 1

// IndexEntry is one embedded segment. Entries are immutable; a chapter
// re-index replaces all entries of that chapter.
type IndexEntry struct {
	SegmentID string
	KapNr     int
	KapTitel  string
	SegNr     int
	WordCount int
	Text      string
	Vector    []float64
}

// Index is the ordered collection of embedded segments plus the metadata
// needed to reject incompatible readers and mismatched embedders.
type Index struct {
	Version   int
	Model     string
	Dimension int
	Entries   []IndexEntry
}

// NewIndex creates an empty index for the given embedding model.
func NewIndex(model string, dimension int) *Index {
	return &Index{Version: IndexVersion, Model: model, Dimension: dimension}
}

// Len returns the number of entries.
func (ix *Index) Len() int { return len(ix.Entries) }

// ReplaceChapter removes any existing entries of the chapter and appends
// the new ones, so re-adding a chapter never duplicates.
func (ix *Index) ReplaceChapter(kapNr int, entries []IndexEntry) {
	kept := ix.Entries[:0]
	for _, e := range ix.Entries {
		if e.KapNr != kapNr {
			kept = append(kept, e)
		}
	}
	ix.Entries = append(kept, entries...)
}

// Chapter returns the entries belonging to kapNr in index order.
func (ix *Index) Chapter(kapNr int) []IndexEntry {
	var out []IndexEntry
	for _, e := range ix.Entries {
		if e.KapNr == kapNr {
			out = append(out, e)
		}
	}
	return out
}
