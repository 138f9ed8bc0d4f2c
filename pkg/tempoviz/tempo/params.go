package tempo

import (
	"fmt"
	"math"
)

// Params holds the tunables of the tempo estimator.
type Params struct {
	InitialThreshold  float64 // first detection threshold tried
	ThresholdStep     float64 // amount the threshold is lowered per retry
	MinThreshold      float64 // lowest threshold tried (inclusive)
	MinPeaks          int     // peak count that ends the threshold search
	RefractorySamples int     // samples skipped after each detected peak
	LookaheadPeaks    int     // peaks examined per anchor, the anchor included
}

// DefaultParams returns the recognized defaults.
func DefaultParams() Params {
	return Params{
		InitialThreshold:  1.0,
		ThresholdStep:     0.05,
		MinThreshold:      0.7,
		MinPeaks:          30,
		RefractorySamples: 950,
		LookaheadPeaks:    10,
	}
}

// MaxAttempts bounds the number of thresholds a search may try.
const MaxAttempts = 1000

// Validate rejects parameter sets that cannot terminate or produce intervals.
func (p Params) Validate() error {
	for _, v := range []float64{p.InitialThreshold, p.ThresholdStep, p.MinThreshold} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: thresholds must be finite, got %v", ErrInvalidParams, v)
		}
	}
	if p.ThresholdStep <= 0 {
		return fmt.Errorf("%w: threshold step must be positive, got %v", ErrInvalidParams, p.ThresholdStep)
	}
	if p.MinThreshold > p.InitialThreshold {
		return fmt.Errorf("%w: min threshold %v above initial threshold %v", ErrInvalidParams, p.MinThreshold, p.InitialThreshold)
	}
	if n := p.attempts(); n > MaxAttempts {
		return fmt.Errorf("%w: threshold step %v needs %v attempts (maximum %d)", ErrInvalidParams, p.ThresholdStep, n, MaxAttempts)
	}
	if p.MinPeaks < 1 {
		return fmt.Errorf("%w: min peaks must be at least 1, got %d", ErrInvalidParams, p.MinPeaks)
	}
	if p.RefractorySamples < 1 {
		return fmt.Errorf("%w: refractory window must be at least 1 sample, got %d", ErrInvalidParams, p.RefractorySamples)
	}
	if p.LookaheadPeaks < 1 {
		return fmt.Errorf("%w: lookahead must be at least 1 peak, got %d", ErrInvalidParams, p.LookaheadPeaks)
	}
	return nil
}

// attempts is the number of thresholds from InitialThreshold down to MinThreshold
// inclusive. It is a float so huge counts do not overflow before Validate sees them.
func (p Params) attempts() float64 {
	return math.Floor((p.InitialThreshold-p.MinThreshold)/p.ThresholdStep+thresholdEpsilon) + 1
}

// Key is a stable textual form of the parameters, used to tell cached results apart.
func (p Params) Key() string {
	return fmt.Sprintf("t%g-s%g-m%g-p%d-r%d-l%d",
		p.InitialThreshold, p.ThresholdStep, p.MinThreshold,
		p.MinPeaks, p.RefractorySamples, p.LookaheadPeaks)
}
