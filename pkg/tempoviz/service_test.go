package tempoviz

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/himanishpuri/tempoviz/pkg/models"
	"github.com/himanishpuri/tempoviz/pkg/tempoviz/audio"
	"github.com/himanishpuri/tempoviz/pkg/tempoviz/spectrum"
	"github.com/himanishpuri/tempoviz/pkg/tempoviz/tempo"
)

type quietLogger struct{}

func (quietLogger) Infof(string, ...any)  {}
func (quietLogger) Warnf(string, ...any)  {}
func (quietLogger) Errorf(string, ...any) {}
func (quietLogger) Debugf(string, ...any) {}

func setupTestService(t *testing.T, opts ...Option) Service {
	t.Helper()

	dir := t.TempDir()
	opts = append([]Option{
		WithDBPath(filepath.Join(dir, "test_tempoviz.sqlite3")),
		WithTempDir(dir),
		WithLogger(quietLogger{}),
	}, opts...)

	svc, err := NewService(opts...)
	if err != nil {
		t.Fatalf("Failed to create test service: %v", err)
	}
	t.Cleanup(func() {
		svc.Close()
	})
	return svc
}

// writeClickTrack writes n unit clicks spaced spacing samples apart at 44.1 kHz.
func writeClickTrack(t *testing.T, n, spacing int) string {
	t.Helper()

	samples := make([]float64, n*spacing)
	for i := 0; i < n; i++ {
		samples[i*spacing] = 1.0
	}
	path := filepath.Join(t.TempDir(), "clicks.wav")
	if err := audio.WriteWav(path, samples, 44100); err != nil {
		t.Fatalf("WriteWav failed: %v", err)
	}
	return path
}

func TestNewServiceRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	bad := tempo.DefaultParams()
	bad.ThresholdStep = 0

	tests := []struct {
		name string
		opt  Option
	}{
		{"tempo params", WithTempoParams(bad)},
		{"spectrum config", WithSpectrumConfig(spectrum.Config{FFTSize: 1000})},
		{"sample rate", WithSampleRate(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(WithDBPath(filepath.Join(dir, tt.name+".db")), tt.opt)
			if err == nil {
				svc.Close()
				t.Fatal("Expected configuration error")
			}
		})
	}
}

func TestAnalyzeWavFile(t *testing.T) {
	svc := setupTestService(t)
	path := writeClickTrack(t, 31, 22050)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a, err := svc.Analyze(ctx, path, "Clicks", AnalyzeOptions{})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if a.BPM != 120 {
		t.Errorf("Expected 120 BPM, got %d", a.BPM)
	}
	if a.Status != models.StatusOK {
		t.Errorf("Expected status ok, got %s", a.Status)
	}
	if a.SampleRate != 44100 || a.SampleCount != 31*22050 {
		t.Errorf("Unexpected buffer info: rate=%d count=%d", a.SampleRate, a.SampleCount)
	}
	if a.DurationMs != 15500 {
		t.Errorf("Expected 15500 ms, got %d", a.DurationMs)
	}
	if a.PeakCount != 31 {
		t.Errorf("Expected 31 peaks, got %d", a.PeakCount)
	}
	if a.ID == "" {
		t.Error("Expected analysis to be stored with an ID")
	}

	stored, err := svc.GetAnalysis(a.ID)
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if stored.BPM != 120 || stored.Title != "Clicks" {
		t.Errorf("Stored analysis mismatch: %+v", stored)
	}
}

func TestAnalyzeUsesStoredResult(t *testing.T) {
	svc := setupTestService(t)
	path := writeClickTrack(t, 31, 22050)
	ctx := context.Background()

	first, err := svc.Analyze(ctx, path, "", AnalyzeOptions{})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if first.Title != "clicks.wav" {
		t.Errorf("Expected default title from file name, got %q", first.Title)
	}

	second, err := svc.Analyze(ctx, path, "", AnalyzeOptions{})
	if err != nil {
		t.Fatalf("second Analyze failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Expected stored analysis %s, got new %s", first.ID, second.ID)
	}

	forced, err := svc.Analyze(ctx, path, "", AnalyzeOptions{Force: true})
	if err != nil {
		t.Fatalf("forced Analyze failed: %v", err)
	}
	if forced.ID == first.ID {
		t.Error("Expected Force to produce a new analysis")
	}

	count, err := svc.CountAnalyses()
	if err != nil {
		t.Fatalf("CountAnalyses failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 stored analyses, got %d", count)
	}
}

func TestAnalyzeSourceOverride(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	first, err := svc.Analyze(ctx, writeClickTrack(t, 31, 22050), "a", AnalyzeOptions{Source: "sha256:abc"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if first.SourcePath != "sha256:abc" {
		t.Errorf("SourcePath = %q", first.SourcePath)
	}

	// a different file under the same source identifier is served from storage
	second, err := svc.Analyze(ctx, writeClickTrack(t, 31, 22050), "b", AnalyzeOptions{Source: "sha256:abc"})
	if err != nil {
		t.Fatalf("second Analyze failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Expected stored analysis for same source")
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	svc := setupTestService(t)

	_, err := svc.Analyze(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), "", AnalyzeOptions{})
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestAnalyzeSamplesNoTempo(t *testing.T) {
	svc := setupTestService(t)

	tests := []struct {
		name       string
		samples    []float64
		sampleRate int
		want       models.AnalysisStatus
	}{
		{"silence", make([]float64, 44100), 44100, models.StatusInsufficientData},
		{"empty", nil, 44100, models.StatusInsufficientData},
		{"single click", []float64{0, 1, 0}, 44100, models.StatusNoViableTempo},
		{"bad rate", []float64{1}, 0, models.StatusInvalidSampleRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := svc.AnalyzeSamples(tt.samples, tt.sampleRate, tt.name, "")
			if err != nil {
				t.Fatalf("AnalyzeSamples returned error: %v", err)
			}
			if a.Status != tt.want {
				t.Errorf("status = %s, want %s", a.Status, tt.want)
			}
			if a.BPM != 0 || a.HasTempo() {
				t.Errorf("Expected no tempo, got BPM %d", a.BPM)
			}
		})
	}
}

func TestListAndDelete(t *testing.T) {
	svc := setupTestService(t)

	samples := make([]float64, 31*22050)
	for i := 0; i < 31; i++ {
		samples[i*22050] = 1
	}
	a, err := svc.AnalyzeSamples(samples, 44100, "raw", "")
	if err != nil {
		t.Fatalf("AnalyzeSamples failed: %v", err)
	}

	list, err := svc.ListAnalyses()
	if err != nil {
		t.Fatalf("ListAnalyses failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != a.ID {
		t.Fatalf("Unexpected list: %+v", list)
	}

	if err := svc.DeleteAnalysis(a.ID); err != nil {
		t.Fatalf("DeleteAnalysis failed: %v", err)
	}
	if _, err := svc.GetAnalysis(a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestSpectrum(t *testing.T) {
	svc := setupTestService(t)
	path := writeClickTrack(t, 4, 4096)

	res, err := svc.Spectrum(context.Background(), path)
	if err != nil {
		t.Fatalf("Spectrum failed: %v", err)
	}
	if res.FFTSize != 2048 || res.BinCount != 1024 || res.BlockSize != 1024 {
		t.Errorf("Unexpected analyser shape: %+v", res)
	}
	// 16384 samples in blocks of 1024
	if len(res.Frames) != 16 || len(res.PeakHz) != 16 {
		t.Fatalf("Expected 16 frames, got %d", len(res.Frames))
	}
	for i, f := range res.Frames {
		if f.Offset != i*1024 {
			t.Errorf("frame %d offset = %d", i, f.Offset)
		}
		if len(f.Data) != 1024 {
			t.Errorf("frame %d has %d bins", i, len(f.Data))
		}
	}
}

type memStorage struct {
	saved []*models.Analysis
}

func (m *memStorage) SaveAnalysis(a *models.Analysis) error {
	a.ID = "mem"
	m.saved = append(m.saved, a)
	return nil
}
func (m *memStorage) GetAnalysisByID(string) (*models.Analysis, error) { return nil, ErrNotFound }
func (m *memStorage) FindBySource(string, string) (*models.Analysis, error) {
	return nil, ErrNotFound
}
func (m *memStorage) ListAnalyses() ([]models.Analysis, error) { return nil, nil }
func (m *memStorage) DeleteAnalysisByID(string) error        { return nil }
func (m *memStorage) CountAnalyses() (int64, error)          { return int64(len(m.saved)), nil }
func (m *memStorage) Close() error                           { return nil }

func TestWithStorageAndParams(t *testing.T) {
	mem := &memStorage{}
	p := tempo.DefaultParams()
	p.MinPeaks = 3

	svc, err := NewService(WithStorage(mem), WithTempoParams(p), WithLogger(quietLogger{}))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer svc.Close()

	// five clicks a quarter second apart
	samples := make([]float64, 5*11025)
	for i := 0; i < 5; i++ {
		samples[i*11025] = 1
	}
	a, err := svc.AnalyzeSamples(samples, 44100, "", "")
	if err != nil {
		t.Fatalf("AnalyzeSamples failed: %v", err)
	}
	if a.BPM != 240 {
		t.Errorf("Expected 240 BPM, got %d", a.BPM)
	}
	if a.FloorReached {
		t.Error("MinPeaks 3 should be met at the first threshold")
	}
	if a.ParamsKey != p.Key() {
		t.Errorf("ParamsKey = %q, want %q", a.ParamsKey, p.Key())
	}
	if len(mem.saved) != 1 || a.Title != "untitled" {
		t.Errorf("Unexpected storage state: %d saved, title %q", len(mem.saved), a.Title)
	}
}
