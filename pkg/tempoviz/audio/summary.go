package audio

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the level of a sample buffer.
type Summary struct {
	SampleCount   int
	Duration      time.Duration
	PeakAmplitude float64 // largest positive sample
	RMS           float64
	Mean          float64
}

// Summarize computes buffer statistics. An empty buffer yields a zero Summary.
func Summarize(samples []float64, sampleRate int) Summary {
	s := Summary{SampleCount: len(samples)}
	if len(samples) == 0 {
		return s
	}
	if sampleRate > 0 {
		s.Duration = time.Duration(len(samples)) * time.Second / time.Duration(sampleRate)
	}
	s.PeakAmplitude = floats.Max(samples)
	s.RMS = floats.Norm(samples, 2) / math.Sqrt(float64(len(samples)))
	s.Mean = stat.Mean(samples, nil)
	return s
}
