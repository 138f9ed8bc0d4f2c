// Package tempo estimates the tempo of a mono sample buffer from the spacing of its
// amplitude peaks.
//
// The pipeline is strictly one way: a threshold search finds peaks, nearby peak
// distances are tallied into an interval histogram, intervals are converted to rounded
// tempos and tallied again, and the most frequent tempo is returned. Everything is
// computed per call; nothing is retained and the input buffer is never modified.
package tempo

import "fmt"

// Result is the detailed outcome of an estimate.
type Result struct {
	BPM          int             `json:"bpm"`
	Threshold    float64         `json:"threshold"`
	Attempts     int             `json:"attempts"`
	FloorReached bool            `json:"floor_reached"`
	Peaks        []int           `json:"peaks"`
	Intervals    []IntervalCount `json:"intervals"`
	Tempos       []TempoCount    `json:"tempos"`
}

// EstimateBPM estimates the tempo of samples with the default parameters.
func EstimateBPM(samples []float64, sampleRate int) (int, error) {
	res, err := Estimate(samples, sampleRate, DefaultParams())
	if err != nil {
		return 0, err
	}
	return res.BPM, nil
}

// Estimate runs the full pipeline with p. On ErrInsufficientData and ErrNoViableTempo
// the partial result built so far is returned alongside the error.
func Estimate(samples []float64, sampleRate int, p Params) (*Result, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	search := SearchThreshold(samples, p)
	res := &Result{
		Threshold:    search.Threshold,
		Attempts:     search.Attempts,
		FloorReached: search.FloorReached,
		Peaks:        search.Peaks,
	}
	if len(search.Peaks) == 0 {
		return res, fmt.Errorf("%w: no peaks in %d samples down to threshold %.2f",
			ErrInsufficientData, len(samples), search.Threshold)
	}

	res.Intervals = CountIntervals(search.Peaks, p.LookaheadPeaks)
	res.Tempos = GroupByTempo(res.Intervals, sampleRate)

	bpm, ok := SelectTempo(res.Tempos)
	if !ok {
		return res, fmt.Errorf("%w: %d peaks produced only zero intervals",
			ErrNoViableTempo, len(search.Peaks))
	}
	res.BPM = bpm
	return res, nil
}
