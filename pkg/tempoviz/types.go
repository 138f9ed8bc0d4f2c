package tempoviz

import "github.com/himanishpuri/tempoviz/pkg/tempoviz/spectrum"

// AnalyzeOptions controls a single Analyze call.
type AnalyzeOptions struct {
	Force  bool   // re-run the estimate even if a stored result exists
	Source string // stored source identifier, defaults to the absolute file path
}

// SpectrumResult holds the analyser output for every processing block of a file.
type SpectrumResult struct {
	SampleRate int              // rate of the decoded samples
	FFTSize    int              // analyser FFT length
	BinCount   int              // values per frame, FFTSize/2
	BlockSize  int              // samples consumed per frame
	Frames     []spectrum.Frame // one per block, in order
	PeakHz     []float64        // strongest bin per frame in Hz, 0 for silent frames
}
