package tempo

import (
	"math"
	"slices"
	"testing"
)

func TestDetectPeaks(t *testing.T) {
	samples := make([]float64, 4000)
	samples[10] = 0.9
	samples[500] = 0.95 // inside the refractory window of 10
	samples[960] = 0.91
	samples[2000] = 0.8 // below threshold
	samples[3000] = -0.99

	peaks := DetectPeaks(samples, 0.85, 950)

	expected := []int{10, 960}
	if !slices.Equal(peaks, expected) {
		t.Errorf("Expected peaks %v, got %v", expected, peaks)
	}
}

func TestDetectPeaksStrictThreshold(t *testing.T) {
	samples := []float64{1.0, 0, 0, 1.0}

	if peaks := DetectPeaks(samples, 1.0, 950); len(peaks) != 0 {
		t.Errorf("Expected no peaks at threshold equal to amplitude, got %v", peaks)
	}
}

func TestDetectPeaksIgnoresNegative(t *testing.T) {
	samples := []float64{-1.0, -0.99, -5, 0.2}

	if peaks := DetectPeaks(samples, 0.7, 2); len(peaks) != 0 {
		t.Errorf("Expected negative excursions to be ignored, got %v", peaks)
	}
}

func TestPeaksRestartable(t *testing.T) {
	samples := noise(50000, 11)
	seq := Peaks(samples, 0.9, 950)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !slices.Equal(first, second) {
		t.Error("Expected ranging twice over the sequence to give the same peaks")
	}

	var got []int
	for p := range seq {
		got = append(got, p)
		if len(got) == 2 {
			break
		}
	}
	if len(first) >= 2 && !slices.Equal(got, first[:2]) {
		t.Errorf("Expected early stop to yield %v, got %v", first[:2], got)
	}
}

func TestPeaksRefractorySpacing(t *testing.T) {
	samples := noise(400000, 5)

	for _, threshold := range []float64{1.0, 0.9, 0.8, 0.7, 0.1} {
		peaks := DetectPeaks(samples, threshold, 950)
		for i := 1; i < len(peaks); i++ {
			if peaks[i]-peaks[i-1] < 950 {
				t.Fatalf("threshold %.2f: peaks %d and %d closer than 950 samples", threshold, peaks[i-1], peaks[i])
			}
		}
	}
}

func TestPeakCountMonotonic(t *testing.T) {
	samples := noise(400000, 9)

	prev := -1
	for threshold := 1.1; threshold >= 0.0; threshold -= 0.05 {
		n := len(DetectPeaks(samples, threshold, 950))
		if n < prev {
			t.Errorf("Peak count dropped from %d to %d when lowering threshold to %.2f", prev, n, threshold)
		}
		prev = n
	}
}

func TestSearchThresholdStopsAtMinPeaks(t *testing.T) {
	samples := clickTrack(40, 2000)
	for i := 0; i < 40; i += 2 {
		samples[i*2000] = 0.8 // half the clicks only appear at 0.75 and below
	}

	res := SearchThreshold(samples, DefaultParams())

	if len(res.Peaks) != 40 {
		t.Errorf("Expected 40 peaks, got %d", len(res.Peaks))
	}
	if res.Threshold < 0.749 || res.Threshold > 0.751 {
		t.Errorf("Expected threshold 0.75, got %f", res.Threshold)
	}
	if res.FloorReached {
		t.Error("Expected search to stop before reaching the floor")
	}
}

func TestSearchThresholdTriesFloor(t *testing.T) {
	samples := make([]float64, 10000)
	samples[0] = 0.71 // only visible at the 0.70 floor

	res := SearchThreshold(samples, DefaultParams())

	if !slices.Equal(res.Peaks, []int{0}) {
		t.Errorf("Expected the floor threshold to find peak 0, got %v", res.Peaks)
	}
	if !res.FloorReached {
		t.Error("Expected FloorReached")
	}
	if res.Threshold < 0.699 || res.Threshold > 0.701 {
		t.Errorf("Expected last threshold 0.70, got %f", res.Threshold)
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
		valid  bool
	}{
		{"defaults", func(p *Params) {}, true},
		{"zero step", func(p *Params) { p.ThresholdStep = 0 }, false},
		{"negative step", func(p *Params) { p.ThresholdStep = -0.05 }, false},
		{"floor above start", func(p *Params) { p.MinThreshold = 1.2 }, false},
		{"no min peaks", func(p *Params) { p.MinPeaks = 0 }, false},
		{"no refractory", func(p *Params) { p.RefractorySamples = 0 }, false},
		{"no lookahead", func(p *Params) { p.LookaheadPeaks = 0 }, false},
		{"single threshold", func(p *Params) { p.MinThreshold = p.InitialThreshold }, true},
		{"NaN floor", func(p *Params) { p.MinThreshold = math.NaN() }, false},
		{"infinite floor", func(p *Params) { p.MinThreshold = math.Inf(-1) }, false},
		{"NaN start", func(p *Params) { p.InitialThreshold = math.NaN() }, false},
		{"infinite start", func(p *Params) { p.InitialThreshold = math.Inf(1) }, false},
		{"NaN step", func(p *Params) { p.ThresholdStep = math.NaN() }, false},
		{"infinite step", func(p *Params) { p.ThresholdStep = math.Inf(1) }, false},
		{"tiny step", func(p *Params) { p.ThresholdStep = 1e-300 }, false},
		{"max attempts", func(p *Params) { p.ThresholdStep = 0.3 / (MaxAttempts - 1) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)
			err := p.Validate()
			if tt.valid && err != nil {
				t.Errorf("Expected valid params, got %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestSearchThresholdBoundedWithoutValidate(t *testing.T) {
	p := DefaultParams()
	p.MinThreshold = math.NaN()

	res := SearchThreshold(make([]float64, 1000), p)
	if res.Attempts != MaxAttempts || !res.FloorReached {
		t.Errorf("Attempts = %d, FloorReached = %v; want %d, true", res.Attempts, res.FloorReached, MaxAttempts)
	}
}

func TestParamsKey(t *testing.T) {
	a := DefaultParams()
	b := DefaultParams()
	if a.Key() != b.Key() {
		t.Error("Expected equal params to share a key")
	}
	b.MinPeaks = 31
	if a.Key() == b.Key() {
		t.Error("Expected different params to have different keys")
	}
}
