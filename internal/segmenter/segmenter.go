package segmenter

import (
	"strings"

	"segsearch/internal/domain"
)

// Limits are the word-count bands for segment packing. A segment should land
// in [TargetLow, TargetHigh], must land in [MinWords, MaxWords], may fall
// below LowException only as a standalone multi-sentence paragraph, and may
// stretch to StretchMax when splitting would break a cohesive passage.
type Limits struct {
	MinWords     int
	TargetLow    int
	TargetHigh   int
	MaxWords     int
	LowException int
	StretchMax   int
}

// DefaultLimits returns the packing bands used throughout the project.
func DefaultLimits() Limits {
	return Limits{
		MinWords:     150,
		TargetLow:    180,
		TargetHigh:   350,
		MaxWords:     400,
		LowException: 120,
		StretchMax:   550,
	}
}

// Segmenter splits chapter text into sentence-aligned segments via a greedy
// size-constrained packer.
type Segmenter struct {
	limits Limits
}

// New creates a Segmenter. Zero-valued limits fall back to the defaults.
func New(limits Limits) *Segmenter {
	def := DefaultLimits()
	if limits.MinWords <= 0 {
		limits.MinWords = def.MinWords
	}
	if limits.TargetLow <= 0 {
		limits.TargetLow = def.TargetLow
	}
	if limits.TargetHigh <= 0 {
		limits.TargetHigh = def.TargetHigh
	}
	if limits.MaxWords <= 0 {
		limits.MaxWords = def.MaxWords
	}
	if limits.LowException <= 0 {
		limits.LowException = def.LowException
	}
	if limits.StretchMax <= 0 {
		limits.StretchMax = def.StretchMax
	}
	return &Segmenter{limits: limits}
}

// Segment splits text into ordered segment records. Concatenating the
// returned texts in order reproduces text exactly.
func (s *Segmenter) Segment(kapNr int, kapTitel, text string) ([]domain.Segment, error) {
	if strings.TrimSpace(kapTitel) == "" {
		return nil, &domain.ValidationError{Reason: "kap_titel must not be empty"}
	}
	if kapNr <= 0 {
		return nil, &domain.ValidationError{Reason: "kap_nr must be positive"}
	}
	sents := splitSentences(text)
	if len(sents) == 0 {
		return nil, &domain.SegmentationError{KapNr: kapNr, Reason: "chapter text contains no sentences"}
	}
	for _, sn := range sents {
		if sn.words > s.limits.StretchMax {
			return nil, &domain.SegmentationError{
				KapNr:  kapNr,
				Span:   truncateSpan(sn.text),
				Reason: "single sentence exceeds the stretch ceiling",
			}
		}
	}

	groups := s.pack(sents)
	groups, err := s.fixup(kapNr, groups)
	if err != nil {
		return nil, err
	}

	segments := make([]domain.Segment, 0, len(groups))
	for i, g := range groups {
		var b strings.Builder
		for _, sn := range g {
			b.WriteString(sn.text)
		}
		segNr := i + 1
		txt := b.String()
		segments = append(segments, domain.Segment{
			ID:        domain.SegmentID(kapNr, segNr),
			KapNr:     kapNr,
			KapTitel:  kapTitel,
			SegNr:     segNr,
			WordCount: domain.CountWords(txt),
			Text:      txt,
		})
	}
	return segments, nil
}

// pack greedily accumulates sentences into candidate groups. It closes a
// group as soon as the word target is reached, preferring paragraph breaks,
// and stretches toward StretchMax instead of leaving a sub-minimum tail of
// an unbroken passage.
func (s *Segmenter) pack(sents []sentence) [][]sentence {
	var groups [][]sentence
	var cur []sentence
	curWords := 0

	flush := func() {
		if len(cur) > 0 {
			groups = append(groups, cur)
			cur = nil
			curWords = 0
		}
	}

	for i, sn := range sents {
		cur = append(cur, sn)
		curWords += sn.words
		if i == len(sents)-1 {
			break
		}
		if len(cur) < 2 {
			continue
		}
		next := sents[i+1]
		switch {
		case curWords >= s.limits.TargetHigh:
			flush()
		case curWords >= s.limits.TargetLow && sn.endsPara:
			flush()
		case curWords+next.words > s.limits.MaxWords:
			if curWords >= s.limits.MinWords {
				flush()
			} else if curWords+next.words > s.limits.StretchMax {
				// forced close; fixup will merge or rebalance
				flush()
			}
			// otherwise stretch: the passage has no acceptable break yet
		}
	}
	flush()
	return groups
}

// fixup repairs candidate groups that violate the size or sentence-count
// invariants: single-sentence groups and short groups outside the standalone
// paragraph exception are merged with a neighbor and the merged run is
// re-split at the boundary closest to the target band.
func (s *Segmenter) fixup(kapNr int, groups [][]sentence) ([][]sentence, error) {
	for i := 0; i < len(groups); {
		g := groups[i]
		if s.acceptable(g) {
			i++
			continue
		}
		switch {
		case i > 0:
			merged := append(append([][]sentence{}, groups[:i-1]...), append(groups[i-1], g...))
			groups = append(merged, groups[i+1:]...)
			i--
		case len(groups) > 1:
			groups = append([][]sentence{append(g, groups[1]...)}, groups[2:]...)
		default:
			if len(g) < 2 {
				return nil, &domain.SegmentationError{
					KapNr:  kapNr,
					Span:   truncateSpan(g[0].text),
					Reason: "chapter consists of a single sentence",
				}
			}
			// a whole chapter shorter than the minimum stands on its own;
			// an oversized one falls through to rebalancing
			if groupWords(g) <= s.limits.StretchMax {
				return groups, nil
			}
		}
		rebalanced, err := s.rebalance(kapNr, groups[i])
		if err != nil {
			return nil, err
		}
		groups = append(append(append([][]sentence{}, groups[:i]...), rebalanced...), groups[i+1:]...)
		i += len(rebalanced)
	}
	// merged runs are re-split at the best boundary, which can still leave
	// a half outside every permitted band; such a chapter has no valid
	// sentence-aligned packing
	for _, g := range groups {
		if !s.acceptable(g) {
			return nil, &domain.SegmentationError{
				KapNr:  kapNr,
				Span:   truncateSpan(g[0].text),
				Reason: "no sentence-aligned packing satisfies the size constraints",
			}
		}
	}
	return groups, nil
}

// acceptable reports whether a group satisfies the invariants on its own.
func (s *Segmenter) acceptable(g []sentence) bool {
	if len(g) < 2 {
		return false
	}
	w := groupWords(g)
	switch {
	case w >= s.limits.MinWords && w <= s.limits.StretchMax:
		return true
	case w < s.limits.LowException:
		// standalone coherent paragraph with at least two sentences
		return g[0].startsPara && g[len(g)-1].endsPara
	default:
		return false
	}
}

// rebalance splits an oversized merged run at the sentence boundary that
// keeps both halves closest to the target band. Runs within the stretch
// ceiling stay whole.
func (s *Segmenter) rebalance(kapNr int, g []sentence) ([][]sentence, error) {
	w := groupWords(g)
	if w <= s.limits.StretchMax {
		return [][]sentence{g}, nil
	}
	bestK, bestCost := -1, 0
	left := 0
	for k := 1; k < len(g); k++ {
		left += g[k-1].words
		right := w - left
		if k < 2 || len(g)-k < 2 {
			continue
		}
		if left > s.limits.StretchMax || right > s.limits.StretchMax {
			continue
		}
		cost := s.bandCost(left) + s.bandCost(right)
		if bestK == -1 || cost < bestCost {
			bestK, bestCost = k, cost
		}
	}
	if bestK == -1 {
		return nil, &domain.SegmentationError{
			KapNr:  kapNr,
			Span:   truncateSpan(g[0].text),
			Reason: "no sentence boundary yields segments within the stretch ceiling",
		}
	}
	lhs, err := s.rebalance(kapNr, g[:bestK])
	if err != nil {
		return nil, err
	}
	rhs, err := s.rebalance(kapNr, g[bestK:])
	if err != nil {
		return nil, err
	}
	return append(lhs, rhs...), nil
}

// bandCost is the distance of w to the preferred [TargetLow, TargetHigh] band.
func (s *Segmenter) bandCost(w int) int {
	switch {
	case w < s.limits.TargetLow:
		return s.limits.TargetLow - w
	case w > s.limits.TargetHigh:
		return w - s.limits.TargetHigh
	default:
		return 0
	}
}

func groupWords(g []sentence) int {
	w := 0
	for _, sn := range g {
		w += sn.words
	}
	return w
}

func truncateSpan(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= 120 {
		return text
	}
	return string(runes[:120]) + "…"
}
