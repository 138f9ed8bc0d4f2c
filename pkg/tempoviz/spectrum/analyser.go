// Package spectrum produces the live frequency-magnitude array shown next to the
// tempo estimate. It follows the behaviour of a Web Audio AnalyserNode: a Blackman
// windowed FFT over the most recent FFTSize samples, exponential smoothing between
// frames, and a linear mapping of the [MinDecibels, MaxDecibels] range onto bytes.
package spectrum

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	minFFTSize = 32
	maxFFTSize = 32768
)

// Config controls the analyser.
type Config struct {
	FFTSize               int     `json:"fft_size"`
	SmoothingTimeConstant float64 `json:"smoothing_time_constant"`
	MinDecibels           float64 `json:"min_decibels"`
	MaxDecibels           float64 `json:"max_decibels"`
	BlockSize             int     `json:"block_size"` // samples per processing callback
}

// DefaultConfig matches the defaults of the browser analyser and a 1024-sample
// script processor.
func DefaultConfig() Config {
	return Config{
		FFTSize:               2048,
		SmoothingTimeConstant: 0.8,
		MinDecibels:           -100,
		MaxDecibels:           -30,
		BlockSize:             1024,
	}
}

func (c Config) Validate() error {
	if c.FFTSize < minFFTSize || c.FFTSize > maxFFTSize || c.FFTSize&(c.FFTSize-1) != 0 {
		return fmt.Errorf("fft size must be a power of two in [%d, %d], got %d", minFFTSize, maxFFTSize, c.FFTSize)
	}
	if c.SmoothingTimeConstant < 0 || c.SmoothingTimeConstant > 1 {
		return fmt.Errorf("smoothing time constant must be in [0, 1], got %v", c.SmoothingTimeConstant)
	}
	if c.MinDecibels >= c.MaxDecibels {
		return fmt.Errorf("min decibels %v must be below max decibels %v", c.MinDecibels, c.MaxDecibels)
	}
	if c.BlockSize < 1 {
		return errors.New("block size must be positive")
	}
	return nil
}

// Analyser holds the time-domain history and smoothed spectrum between frames.
// It is not safe for concurrent use.
type Analyser struct {
	cfg      Config
	window   []float64
	history  []float64
	frame    []float64
	smoothed []float64
	dirty    bool
}

func NewAnalyser(cfg Config) (*Analyser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Analyser{
		cfg:      cfg,
		window:   window.Blackman(cfg.FFTSize),
		history:  make([]float64, cfg.FFTSize),
		frame:    make([]float64, cfg.FFTSize),
		smoothed: make([]float64, cfg.FFTSize/2),
	}, nil
}

// FrequencyBinCount is the length of the frequency data, half the FFT size.
func (a *Analyser) FrequencyBinCount() int {
	return a.cfg.FFTSize / 2
}

// Config returns the analyser configuration.
func (a *Analyser) Config() Config {
	return a.cfg
}

// Process appends block to the time-domain history, keeping the last FFTSize samples.
func (a *Analyser) Process(block []float64) {
	if len(block) == 0 {
		return
	}
	n := len(a.history)
	if len(block) >= n {
		copy(a.history, block[len(block)-n:])
	} else {
		copy(a.history, a.history[len(block):])
		copy(a.history[n-len(block):], block)
	}
	a.dirty = true
}

// Reset clears history and smoothing.
func (a *Analyser) Reset() {
	clear(a.history)
	clear(a.smoothed)
	a.dirty = false
}

// analyse refreshes the smoothed magnitudes once per batch of new samples, so reading
// float and byte data for the same frame does not smooth twice.
func (a *Analyser) analyse() {
	if !a.dirty {
		return
	}
	a.dirty = false

	for i, s := range a.history {
		a.frame[i] = s * a.window[i]
	}
	spec := fft.FFTReal(a.frame)

	tau := a.cfg.SmoothingTimeConstant
	scale := 1.0 / float64(a.cfg.FFTSize)
	for k := range a.smoothed {
		mag := cmplx.Abs(spec[k]) * scale
		v := tau*a.smoothed[k] + (1-tau)*mag
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		a.smoothed[k] = v
	}
}

// FloatFrequencyData writes the current spectrum in decibels into dst and returns the
// number of bins written. Silent bins are -Inf.
func (a *Analyser) FloatFrequencyData(dst []float64) int {
	a.analyse()
	n := min(len(dst), len(a.smoothed))
	for k := 0; k < n; k++ {
		dst[k] = 20 * math.Log10(a.smoothed[k])
	}
	return n
}

// ByteFrequencyData writes the current spectrum scaled to 0..255 into dst and returns
// the number of bins written.
func (a *Analyser) ByteFrequencyData(dst []uint8) int {
	a.analyse()
	lo, hi := a.cfg.MinDecibels, a.cfg.MaxDecibels
	rangeScale := 255 / (hi - lo)

	n := min(len(dst), len(a.smoothed))
	for k := 0; k < n; k++ {
		db := 20 * math.Log10(a.smoothed[k])
		v := math.Floor(rangeScale * (db - lo))
		switch {
		case math.IsNaN(v) || v < 0:
			v = 0
		case v > 255:
			v = 255
		}
		dst[k] = uint8(v)
	}
	return n
}

// BinFrequency returns the centre frequency in Hz of bin for the given FFT size.
func BinFrequency(bin, sampleRate, fftSize int) float64 {
	return float64(bin) * float64(sampleRate) / float64(fftSize)
}

// PeakBin returns the index of the loudest bin, the first one on ties. It returns -1
// for empty or all-zero data.
func PeakBin(data []uint8) int {
	best, bestVal := -1, uint8(0)
	for i, v := range data {
		if v > bestVal {
			best, bestVal = i, v
		}
	}
	return best
}

// Frame is the analyser output after one processing block.
type Frame struct {
	Offset int     `json:"offset"` // index of the first sample of the block
	Data   []uint8 `json:"data"`
}

// Frames feeds samples to a new analyser one block at a time and yields the byte
// frequency data after each block. Every yielded Frame owns its Data slice.
func Frames(samples []float64, cfg Config) (iter.Seq[Frame], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return func(yield func(Frame) bool) {
		a, _ := NewAnalyser(cfg)
		for off := 0; off < len(samples); off += cfg.BlockSize {
			end := min(off+cfg.BlockSize, len(samples))
			a.Process(samples[off:end])

			data := make([]uint8, a.FrequencyBinCount())
			a.ByteFrequencyData(data)
			if !yield(Frame{Offset: off, Data: data}) {
				return
			}
		}
	}, nil
}
