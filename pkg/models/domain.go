package models

import (
	"strconv"
	"time"
)

// AnalysisStatus records how a tempo estimate ended.
type AnalysisStatus string

const (
	StatusOK                AnalysisStatus = "ok"
	StatusInsufficientData  AnalysisStatus = "insufficient_data"
	StatusNoViableTempo     AnalysisStatus = "no_viable_tempo"
	StatusInvalidSampleRate AnalysisStatus = "invalid_sample_rate"
)

// Analysis is the stored result of estimating the tempo of one audio source.
type Analysis struct {
	ID            string         // UUID
	Title         string         // display title
	SourcePath    string         // file the samples came from, empty for raw uploads
	SampleRate    int            // samples per second
	SampleCount   int            // mono samples analysed
	DurationMs    int            // duration in milliseconds
	BPM           int            // 0 when Status is not StatusOK
	Status        AnalysisStatus // outcome of the estimate
	Threshold     float64        // detection threshold that produced the peaks
	PeakCount     int            // peaks used for the interval histogram
	FloorReached  bool           // threshold search ran down to its floor
	PeakAmplitude float64        // largest positive sample
	RMS           float64        // root mean square level
	ParamsKey     string         // estimator parameters used
	CreatedAt     time.Time
}

// HasTempo reports whether the analysis produced a BPM value.
func (a *Analysis) HasTempo() bool {
	return a.Status == StatusOK && a.BPM > 0
}

// BPMLabel is the value to display: the BPM, or a placeholder when unknown.
func (a *Analysis) BPMLabel() string {
	if !a.HasTempo() {
		return "--"
	}
	return strconv.Itoa(a.BPM)
}
