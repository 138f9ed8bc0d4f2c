package main

import (
	"fmt"
	"time"

	"github.com/himanishpuri/tempoviz/pkg/models"
	"github.com/himanishpuri/tempoviz/pkg/tempoviz"
)

const (
	// MaxSamples caps POST /api/analyses/samples at ten minutes of 48 kHz audio
	MaxSamples = 48000 * 600

	// MaxSampleRate rejects rates no audio interface produces
	MaxSampleRate = 384000

	// maxUploadBytes is the multipart limit for audio uploads
	maxUploadBytes = 100 << 20

	// maxSamplesBodyBytes bounds the JSON body of a samples request
	maxSamplesBodyBytes = 512 << 20
)

// AnalyzeSamplesRequest is the request body for POST /api/analyses/samples
type AnalyzeSamplesRequest struct {
	Title      string    `json:"title,omitempty"`
	Source     string    `json:"source,omitempty"`
	SampleRate int       `json:"sample_rate"`
	Samples    []float64 `json:"samples"`
}

// Validate checks request limits. Sample rate and content problems are left to the
// estimator, which reports them as an analysis without a tempo.
func (r *AnalyzeSamplesRequest) Validate() error {
	if r.Samples == nil {
		return fmt.Errorf("samples are required")
	}
	if len(r.Samples) > MaxSamples {
		return fmt.Errorf("too many samples: %d (maximum: %d)", len(r.Samples), MaxSamples)
	}
	if r.SampleRate > MaxSampleRate {
		return fmt.Errorf("sample rate %d exceeds %d", r.SampleRate, MaxSampleRate)
	}
	return nil
}

// AnalysisDTO represents an analysis in API responses
type AnalysisDTO struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	SourcePath    string    `json:"source_path,omitempty"`
	BPM           int       `json:"bpm"`
	BPMLabel      string    `json:"bpm_label"`
	Status        string    `json:"status"`
	SampleRate    int       `json:"sample_rate"`
	SampleCount   int       `json:"sample_count"`
	DurationMs    int       `json:"duration_ms"`
	Threshold     float64   `json:"threshold"`
	PeakCount     int       `json:"peak_count"`
	FloorReached  bool      `json:"floor_reached"`
	PeakAmplitude float64   `json:"peak_amplitude"`
	RMS           float64   `json:"rms"`
	ParamsKey     string    `json:"params_key"`
	CreatedAt     time.Time `json:"created_at"`
}

func toAnalysisDTO(a *models.Analysis) AnalysisDTO {
	return AnalysisDTO{
		ID:            a.ID,
		Title:         a.Title,
		SourcePath:    a.SourcePath,
		BPM:           a.BPM,
		BPMLabel:      a.BPMLabel(),
		Status:        string(a.Status),
		SampleRate:    a.SampleRate,
		SampleCount:   a.SampleCount,
		DurationMs:    a.DurationMs,
		Threshold:     a.Threshold,
		PeakCount:     a.PeakCount,
		FloorReached:  a.FloorReached,
		PeakAmplitude: a.PeakAmplitude,
		RMS:           a.RMS,
		ParamsKey:     a.ParamsKey,
		CreatedAt:     a.CreatedAt,
	}
}

// ListAnalysesResponse is the response for GET /api/analyses
type ListAnalysesResponse struct {
	Analyses []AnalysisDTO `json:"analyses"`
	Count    int           `json:"count"`
}

// DeleteAnalysisResponse is the response for DELETE /api/analyses/{id}
type DeleteAnalysisResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// SpectrumResponse is the response for POST /api/spectrum
type SpectrumResponse struct {
	SampleRate int         `json:"sample_rate"`
	FFTSize    int         `json:"fft_size"`
	BinCount   int         `json:"bin_count"`
	BlockSize  int         `json:"block_size"`
	FrameCount int         `json:"frame_count"`
	PeakHz     []float64   `json:"peak_hz"`
	Frames     [][]int     `json:"frames,omitempty"`
}

func toSpectrumResponse(res *tempoviz.SpectrumResult, withFrames bool) SpectrumResponse {
	out := SpectrumResponse{
		SampleRate: res.SampleRate,
		FFTSize:    res.FFTSize,
		BinCount:   res.BinCount,
		BlockSize:  res.BlockSize,
		FrameCount: len(res.Frames),
		PeakHz:     res.PeakHz,
	}
	if withFrames {
		// []uint8 would be base64 encoded by encoding/json
		out.Frames = make([][]int, len(res.Frames))
		for i, f := range res.Frames {
			row := make([]int, len(f.Data))
			for j, v := range f.Data {
				row[j] = int(v)
			}
			out.Frames[i] = row
		}
	}
	return out
}

// MetricsResponse provides server health and database metrics
type MetricsResponse struct {
	Status        string `json:"status"`
	DatabasePath  string `json:"database_path"`
	AnalysisCount int64  `json:"analysis_count"`
	SampleRate    int    `json:"sample_rate"`
	Uptime        string `json:"uptime"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
