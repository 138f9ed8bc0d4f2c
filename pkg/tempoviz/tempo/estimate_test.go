package tempo

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"
)

// clickTrack returns n unit impulses spaced every samples apart, silence elsewhere.
func clickTrack(n, spacing int) []float64 {
	samples := make([]float64, n*spacing)
	for i := 0; i < n; i++ {
		samples[i*spacing] = 1.0
	}
	return samples
}

func noise(n int, seed uint64) []float64 {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = r.Float64()*2.2 - 1.1
	}
	return samples
}

func TestEstimateBPMKnownTempo(t *testing.T) {
	samples := clickTrack(31, 22050)

	bpm, err := EstimateBPM(samples, 44100)
	if err != nil {
		t.Fatalf("EstimateBPM failed: %v", err)
	}
	if bpm != 120 {
		t.Errorf("Expected 120 BPM, got %d", bpm)
	}
}

func TestEstimateResultDetails(t *testing.T) {
	samples := clickTrack(31, 22050)

	res, err := Estimate(samples, 44100, DefaultParams())
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	// impulses of exactly 1.0 are not strictly above the first threshold
	if res.Attempts != 2 {
		t.Errorf("Expected 2 threshold attempts, got %d", res.Attempts)
	}
	if res.Threshold < 0.949 || res.Threshold > 0.951 {
		t.Errorf("Expected threshold 0.95, got %f", res.Threshold)
	}
	if res.FloorReached {
		t.Error("Expected search to stop before the floor")
	}
	if len(res.Peaks) != 31 {
		t.Errorf("Expected 31 peaks, got %d", len(res.Peaks))
	}
	if len(res.Tempos) == 0 || res.Tempos[0].Tempo != 120 || res.Tempos[0].Count != 30 {
		t.Errorf("Expected first tempo entry {120 30}, got %+v", res.Tempos)
	}
	for _, tc := range res.Tempos {
		if tc.Count < 1 {
			t.Errorf("Tempo %d has count %d", tc.Tempo, tc.Count)
		}
	}
}

func TestEstimateFewPeaksUsesFloorResult(t *testing.T) {
	// 5 peaks never satisfy MinPeaks; the floor result is still used
	samples := clickTrack(5, 11025)

	res, err := Estimate(samples, 44100, DefaultParams())
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if !res.FloorReached {
		t.Error("Expected floor to be reached")
	}
	if res.Attempts != 7 {
		t.Errorf("Expected 7 attempts (1.00 down to 0.70), got %d", res.Attempts)
	}
	if res.BPM != 240 {
		t.Errorf("Expected 240 BPM, got %d", res.BPM)
	}
}

func TestEstimateErrors(t *testing.T) {
	single := make([]float64, 5000)
	single[100] = 0.9

	tests := []struct {
		name       string
		samples    []float64
		sampleRate int
		want       error
	}{
		{"empty", []float64{}, 44100, ErrInsufficientData},
		{"nil", nil, 44100, ErrInsufficientData},
		{"silence", make([]float64, 44100), 44100, ErrInsufficientData},
		{"below floor", []float64{0.1, 0.5, 0.69, -0.99}, 44100, ErrInsufficientData},
		{"zero rate", clickTrack(31, 22050), 0, ErrInvalidSampleRate},
		{"negative rate", clickTrack(3, 22050), -44100, ErrInvalidSampleRate},
		{"empty zero rate", nil, 0, ErrInvalidSampleRate},
		{"single peak", single, 44100, ErrNoViableTempo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EstimateBPM(tt.samples, tt.sampleRate)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if !IsTempoError(err) {
				t.Errorf("Expected %v to be a tempo error", err)
			}
		})
	}
}

func TestEstimateInvalidParams(t *testing.T) {
	p := DefaultParams()
	p.ThresholdStep = 0

	_, err := Estimate(clickTrack(31, 22050), 44100, p)
	if !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("Expected ErrInvalidParams, got %v", err)
	}
	if IsTempoError(err) {
		t.Error("Invalid params should not be reported as a tempo outcome")
	}
}

func TestEstimateDeterministic(t *testing.T) {
	samples := noise(200000, 7)
	before := append([]float64(nil), samples...)

	first, err1 := Estimate(samples, 44100, DefaultParams())
	second, err2 := Estimate(samples, 44100, DefaultParams())

	if (err1 == nil) != (err2 == nil) {
		t.Fatalf("Errors differ: %v vs %v", err1, err2)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Expected identical results for identical input")
	}
	if !reflect.DeepEqual(samples, before) {
		t.Error("Input buffer was modified")
	}
}

func TestEstimateNoZeroIntervalTempo(t *testing.T) {
	res, err := Estimate(noise(300000, 3), 44100, DefaultParams())
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}

	zeroCount := 0
	for _, ic := range res.Intervals {
		if ic.Interval == 0 {
			zeroCount = ic.Count
		}
	}
	if zeroCount != len(res.Peaks) {
		t.Errorf("Expected zero interval counted once per peak (%d), got %d", len(res.Peaks), zeroCount)
	}

	total := 0
	for _, tc := range res.Tempos {
		total += tc.Count
	}
	intervalTotal := 0
	for _, ic := range res.Intervals {
		intervalTotal += ic.Count
	}
	if total != intervalTotal-zeroCount {
		t.Errorf("Expected tempo tallies %d to exclude zero intervals, got %d", intervalTotal-zeroCount, total)
	}
}
