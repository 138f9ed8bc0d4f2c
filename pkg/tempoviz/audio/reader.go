package audio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Buffer is a decoded mono sample buffer.
type Buffer struct {
	Samples    []float64 // channel 0, normalized to [-1, 1]
	SampleRate int
	Channels   int // channel count of the source
	BitDepth   int
}

// Duration returns the playing time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// firstChannel extracts channel 0 of interleaved integer PCM and scales it to [-1, 1].
// 8-bit PCM is unsigned with silence at 128.
func firstChannel(buf *goaudio.IntBuffer, numChannels, bitDepth int) []float64 {
	if numChannels < 1 {
		numChannels = 1
	}
	half := int64(1) << (uint(bitDepth) - 1)
	scale := 1.0 / float64(half)
	offset := 0
	if bitDepth == 8 {
		offset = int(half)
	}

	frames := len(buf.Data) / numChannels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		out[i] = float64(buf.Data[i*numChannels]-offset) * scale
	}
	return out
}

// DecodeWav decodes integer PCM WAV data and returns channel 0. Extra channels are
// ignored rather than mixed in.
func DecodeWav(r io.ReadSeeker) (*Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("not a valid WAV file")
	}
	if dec.WavAudioFormat != 1 {
		return nil, fmt.Errorf("unsupported WAV audio format %d: only PCM (1) supported", dec.WavAudioFormat)
	}
	if dec.BitDepth == 0 || dec.BitDepth > 32 {
		return nil, fmt.Errorf("unsupported bits per sample: %d", dec.BitDepth)
	}
	if dec.NumChans == 0 {
		return nil, errors.New("WAV file declares no channels")
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decoding PCM samples: %w", err)
	}

	return &Buffer{
		Samples:    firstChannel(pcm, int(dec.NumChans), int(dec.BitDepth)),
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}, nil
}

// ReadWav opens path and decodes it with DecodeWav.
func ReadWav(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := DecodeWav(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return buf, nil
}

// ReadWavAsFloat64 reads a PCM WAV file and returns channel 0 normalized to [-1, 1]
// together with the sample rate.
func ReadWavAsFloat64(path string) ([]float64, int, error) {
	buf, err := ReadWav(path)
	if err != nil {
		return nil, 0, err
	}
	return buf.Samples, buf.SampleRate, nil
}

// WriteWav encodes samples as mono 16-bit PCM. Values outside [-1, 1] are clipped.
func WriteWav(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data := make([]int, len(samples))
	for i, s := range samples {
		switch {
		case s > 1:
			s = 1
		case s < -1:
			s = -1
		}
		data[i] = int(s * 32767)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("writing PCM samples: %w", err)
	}
	return enc.Close()
}
