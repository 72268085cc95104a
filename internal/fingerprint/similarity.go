package fingerprint

import (
	"math"
)

const (
	// DefaultFuzzFactor is the usual scale of the uncertainty correction.
	// Options does not substitute it for zero.
	DefaultFuzzFactor = 5.0
	// DefaultSignificance is the significance threshold, in percent, used to
	// normalize the uncertainty correction when none is configured.
	DefaultSignificance = 25.0

	// A baseline On pixel the candidate lacks costs a full match; an extra On
	// pixel in the candidate costs half.
	baselineOnPenalty  = 1.0
	candidateOnPenalty = 0.5

	// Weight of positions the baseline does not mask when measuring the
	// deviation between the raw and filtered candidate.
	fallbackWeight = 0.5
)

// Options tunes SimilarityWith.
type Options struct {
	// Filtered is the filtered variant of the candidate. When set, an
	// uncertainty correction is subtracted from the plain similarity.
	Filtered Fingerprint
	// FuzzFactor scales the uncertainty correction. Zero disables it.
	FuzzFactor float64
	// Significance is the configured significance threshold in percent. Zero
	// selects DefaultSignificance.
	Significance float64
}

// Similarity returns the plain similarity percentage of candidate to
// baseline, in the range [0,100]. It returns 0 when either input is empty or
// their lengths differ.
func Similarity(baseline, candidate Fingerprint) float64 {
	return SimilarityWith(baseline, candidate, Options{})
}

// SimilarityWith is Similarity with an optional uncertainty correction. The
// correction is not clamped, so the result may be slightly negative.
func SimilarityWith(baseline, candidate Fingerprint, opts Options) float64 {
	if len(baseline) == 0 || len(baseline) != len(candidate) {
		return 0
	}
	similarity := plainSimilarity(baseline, candidate)
	if len(opts.Filtered) != len(candidate) {
		return similarity
	}
	return similarity - uncertainty(baseline, candidate, opts)
}

func plainSimilarity(baseline, candidate Fingerprint) float64 {
	n := len(baseline)
	var equal, baselineOn, candidateOn int
	for i, b := range baseline {
		c := candidate[i]
		switch {
		case b == Unknown:
		case b == c:
			equal++
		case b == On:
			baselineOn++
		case c == On:
			candidateOn++
		}
	}

	zeros := min(baseline.CountOff(), candidate.CountOff())
	denominator := float64(n-baseline.CountUnknown()) - float64(zeros)/2
	if denominator <= 0 {
		return 0
	}

	penalty := baselineOnPenalty*float64(baselineOn) + candidateOnPenalty*float64(candidateOn)
	similarity := 100 * (float64(equal) - penalty) / denominator
	return math.Max(0, math.Min(100, similarity))
}

// uncertainty measures how far the filtered candidate deviates from the raw
// candidate. Positions the baseline masks as Unknown carry full weight, the
// rest carry fallbackWeight.
func uncertainty(baseline, candidate Fingerprint, opts Options) float64 {
	factor := opts.FuzzFactor
	if factor <= 0 {
		return 0
	}
	significance := opts.Significance
	if significance <= 0 {
		significance = DefaultSignificance
	}

	var deviation, total float64
	for i := range candidate {
		weight := fallbackWeight
		if baseline[i] == Unknown {
			weight = 1
		}
		total += weight
		if candidate[i] != opts.Filtered[i] {
			deviation += weight
		}
	}
	if total == 0 {
		return 0
	}
	fuzz := 100 * deviation / total
	return factor * fuzz / significance
}
