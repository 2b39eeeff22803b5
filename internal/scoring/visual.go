package scoring

import (
	"math/bits"
	"strconv"
	"strings"
)

// VisualScorer compares the imagery of two reports. Same contract as
// TextScorer: deterministic, [0,1] or nil when unavailable.
type VisualScorer interface {
	Score(a, b Subject) *float64
}

// PerceptualHashScorer is the default VisualScorer. Reports carry 64-bit
// perceptual hashes computed at upload time by the reports subsystem; the
// score is the best pairwise Hamming similarity across the two hash sets.
type PerceptualHashScorer struct{}

func NewPerceptualHashScorer() *PerceptualHashScorer {
	return &PerceptualHashScorer{}
}

func (s *PerceptualHashScorer) Score(a, b Subject) *float64 {
	hashesA := parseHashes(a.ImageHashes)
	hashesB := parseHashes(b.ImageHashes)
	if len(hashesA) == 0 || len(hashesB) == 0 {
		return nil
	}

	best := 0.0
	for _, ha := range hashesA {
		for _, hb := range hashesB {
			similarity := 1 - float64(bits.OnesCount64(ha^hb))/64
			if similarity > best {
				best = similarity
			}
		}
	}

	score := clamp01(best)
	return &score
}

func parseHashes(raw []string) []uint64 {
	hashes := make([]uint64, 0, len(raw))
	for _, value := range raw {
		trimmed := strings.TrimSpace(strings.TrimPrefix(strings.ToLower(value), "0x"))
		if trimmed == "" {
			continue
		}
		parsed, err := strconv.ParseUint(trimmed, 16, 64)
		if err != nil {
			continue
		}
		hashes = append(hashes, parsed)
	}
	return hashes
}
