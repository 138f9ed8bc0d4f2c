package tempo

import (
	"iter"
	"slices"
)

// thresholdEpsilon absorbs float error when comparing a stepped threshold to the floor.
const thresholdEpsilon = 1e-9

// Peaks yields the indices of samples strictly greater than threshold, scanning from
// index 0 and skipping refractory samples after every hit. Negative excursions never
// register. The sequence is a pure function of its inputs and can be ranged over again.
func Peaks(samples []float64, threshold float64, refractory int) iter.Seq[int] {
	if refractory < 1 {
		refractory = 1
	}
	return func(yield func(int) bool) {
		for i := 0; i < len(samples); {
			if samples[i] > threshold {
				if !yield(i) {
					return
				}
				i += refractory
				continue
			}
			i++
		}
	}
}

// DetectPeaks collects Peaks into a slice.
func DetectPeaks(samples []float64, threshold float64, refractory int) []int {
	return slices.Collect(Peaks(samples, threshold, refractory))
}

// SearchResult is the outcome of the threshold search.
type SearchResult struct {
	Peaks        []int
	Threshold    float64 // threshold that produced Peaks
	Attempts     int
	FloorReached bool // true when MinPeaks was never satisfied
}

// SearchThreshold lowers the detection threshold from p.InitialThreshold by
// p.ThresholdStep until at least p.MinPeaks peaks are found or p.MinThreshold has
// been tried. When the floor is reached the last peak set is kept as a best effort,
// even if it is empty.
func SearchThreshold(samples []float64, p Params) SearchResult {
	var res SearchResult
	limit := p.attempts()
	if !(limit <= MaxAttempts) {
		limit = MaxAttempts
	}
	n := int(limit)
	for step := 0; step < n; step++ {
		threshold := p.InitialThreshold - float64(step)*p.ThresholdStep

		res.Peaks = DetectPeaks(samples, threshold, p.RefractorySamples)
		res.Threshold = threshold
		res.Attempts++

		if len(res.Peaks) >= p.MinPeaks {
			return res
		}
	}
	res.FloorReached = true
	return res
}
