package tempo

import "math"

// IntervalCount tallies how often a sample distance between two nearby peaks occurs.
type IntervalCount struct {
	Interval int `json:"interval"`
	Count    int `json:"count"`
}

// TempoCount tallies the interval occurrences that round to the same tempo.
type TempoCount struct {
	Tempo int `json:"tempo"`
	Count int `json:"count"`
}

// counter is a tally keyed by K that remembers first-seen order.
type counter[K comparable] struct {
	keys   []K
	counts map[K]int
}

func newCounter[K comparable]() *counter[K] {
	return &counter[K]{counts: make(map[K]int)}
}

func (c *counter[K]) add(key K, n int) {
	if _, ok := c.counts[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.counts[key] += n
}

// CountIntervals builds the interval histogram. For every peak it measures the
// distance to itself and to the following lookahead-1 peaks, skipping positions past
// the end of the list. The zero self-distance is counted too; TempoHistogram drops it.
func CountIntervals(peaks []int, lookahead int) []IntervalCount {
	c := newCounter[int]()
	for index, peak := range peaks {
		for i := 0; i < lookahead; i++ {
			if index+i >= len(peaks) {
				break
			}
			c.add(peaks[index+i]-peak, 1)
		}
	}

	out := make([]IntervalCount, len(c.keys))
	for i, interval := range c.keys {
		out[i] = IntervalCount{Interval: interval, Count: c.counts[interval]}
	}
	return out
}

// IntervalToTempo converts a sample distance to beats per minute, rounded half away
// from zero.
func IntervalToTempo(interval, sampleRate int) int {
	return int(math.Round(60 / (float64(interval) / float64(sampleRate))))
}

// GroupByTempo builds the tempo histogram from the interval histogram. Zero intervals
// are skipped; intervals rounding to the same tempo have their counts merged into the
// entry first created for that tempo.
func GroupByTempo(intervals []IntervalCount, sampleRate int) []TempoCount {
	c := newCounter[int]()
	for _, ic := range intervals {
		if ic.Interval == 0 {
			continue
		}
		c.add(IntervalToTempo(ic.Interval, sampleRate), ic.Count)
	}

	out := make([]TempoCount, len(c.keys))
	for i, tempo := range c.keys {
		out[i] = TempoCount{Tempo: tempo, Count: c.counts[tempo]}
	}
	return out
}

// SelectTempo returns the tempo with the highest count. On a tie the entry that comes
// first in the table wins. ok is false for an empty table.
func SelectTempo(tempos []TempoCount) (tempo int, ok bool) {
	if len(tempos) == 0 {
		return 0, false
	}
	best := tempos[0]
	for _, tc := range tempos[1:] {
		if tc.Count > best.Count {
			best = tc
		}
	}
	return best.Tempo, true
}
