// Package tempoviz is the service facade that decodes audio, estimates its tempo and
// keeps the results in storage.
package tempoviz

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/himanishpuri/tempoviz/pkg/logger"
	"github.com/himanishpuri/tempoviz/pkg/models"
	"github.com/himanishpuri/tempoviz/pkg/tempoviz/audio"
	"github.com/himanishpuri/tempoviz/pkg/tempoviz/spectrum"
	"github.com/himanishpuri/tempoviz/pkg/tempoviz/tempo"
)

// tempoService is the default implementation of the Service interface.
type tempoService struct {
	storage Storage
	log     Logger
	config  *Config
}

func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.TempoParams.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Spectrum.Validate(); err != nil {
		return nil, err
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger().WithPrefix("[tempoviz]")
	}

	var stor Storage
	var err error
	if cfg.Storage != nil {
		stor = cfg.Storage
	} else {
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &tempoService{
		storage: stor,
		log:     cfg.Logger,
		config:  cfg,
	}, nil
}

func (s *tempoService) convertConfig() audio.ConvertWAVConfig {
	return audio.ConvertWAVConfig{
		SampleRate: s.config.SampleRate,
		Timeout:    s.config.FFmpegTimeout,
	}
}

// Analyze decodes audioPath, estimates its tempo and stores the result. A stored
// analysis of the same file with the same estimator parameters is returned as is
// unless opts.Force is set.
func (s *tempoService) Analyze(ctx context.Context, audioPath, title string, opts AnalyzeOptions) (*models.Analysis, error) {
	source := opts.Source
	if source == "" {
		abs, err := filepath.Abs(audioPath)
		if err != nil {
			return nil, fmt.Errorf("resolving path: %w", err)
		}
		source = abs
	}
	if title == "" {
		title = filepath.Base(audioPath)
	}

	key := s.config.TempoParams.Key()
	if !opts.Force {
		cached, err := s.storage.FindBySource(source, key)
		switch {
		case err == nil:
			s.log.Debugf("Using stored analysis %s for %s", cached.ID, source)
			return cached, nil
		case !errors.Is(err, ErrNotFound):
			s.log.Warnf("Lookup of stored analysis failed for %s: %v", source, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.log.Infof("Analyzing: %s", source)
	buf, err := audio.Load(ctx, audioPath, s.config.TempDir, s.convertConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to load audio: %w", err)
	}
	s.log.Debugf("Decoded %d samples at %d Hz (%d channels, %d-bit)",
		len(buf.Samples), buf.SampleRate, buf.Channels, buf.BitDepth)

	return s.analyze(buf.Samples, buf.SampleRate, title, source)
}

// AnalyzeSamples estimates the tempo of an already decoded mono buffer and stores
// the result. source may be empty.
func (s *tempoService) AnalyzeSamples(samples []float64, sampleRate int, title, source string) (*models.Analysis, error) {
	if title == "" {
		title = "untitled"
	}
	return s.analyze(samples, sampleRate, title, source)
}

func (s *tempoService) analyze(samples []float64, sampleRate int, title, source string) (*models.Analysis, error) {
	summary := audio.Summarize(samples, sampleRate)

	start := time.Now()
	res, err := tempo.Estimate(samples, sampleRate, s.config.TempoParams)
	if err != nil && !tempo.IsTempoError(err) {
		return nil, fmt.Errorf("tempo estimation failed: %w", err)
	}

	a := &models.Analysis{
		Title:         title,
		SourcePath:    source,
		SampleRate:    sampleRate,
		SampleCount:   summary.SampleCount,
		DurationMs:    int(summary.Duration.Milliseconds()),
		Status:        statusFor(err),
		PeakAmplitude: summary.PeakAmplitude,
		RMS:           summary.RMS,
		ParamsKey:     s.config.TempoParams.Key(),
	}
	if res != nil {
		a.BPM = res.BPM
		a.Threshold = res.Threshold
		a.PeakCount = len(res.Peaks)
		a.FloorReached = res.FloorReached
	}

	if err != nil {
		s.log.Warnf("No tempo for %q: %v", title, err)
	} else {
		s.log.Infof("Estimated %d BPM for %q (threshold %.2f, %d peaks, %s)",
			a.BPM, title, a.Threshold, a.PeakCount, time.Since(start).Round(time.Millisecond))
	}

	if err := s.storage.SaveAnalysis(a); err != nil {
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}
	return a, nil
}

func statusFor(err error) models.AnalysisStatus {
	switch {
	case err == nil:
		return models.StatusOK
	case errors.Is(err, tempo.ErrInvalidSampleRate):
		return models.StatusInvalidSampleRate
	case errors.Is(err, tempo.ErrNoViableTempo):
		return models.StatusNoViableTempo
	default:
		return models.StatusInsufficientData
	}
}

// Spectrum runs the analyser over audioPath block by block.
func (s *tempoService) Spectrum(ctx context.Context, audioPath string) (*SpectrumResult, error) {
	buf, err := audio.Load(ctx, audioPath, s.config.TempDir, s.convertConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to load audio: %w", err)
	}
	return SpectrumOf(buf.Samples, buf.SampleRate, s.config.Spectrum)
}

// SpectrumOf runs the analyser configured by cfg over samples.
func SpectrumOf(samples []float64, sampleRate int, cfg spectrum.Config) (*SpectrumResult, error) {
	frames, err := spectrum.Frames(samples, cfg)
	if err != nil {
		return nil, err
	}

	res := &SpectrumResult{
		SampleRate: sampleRate,
		FFTSize:    cfg.FFTSize,
		BinCount:   cfg.FFTSize / 2,
		BlockSize:  cfg.BlockSize,
	}
	for f := range frames {
		hz := 0.0
		if bin := spectrum.PeakBin(f.Data); bin >= 0 {
			hz = spectrum.BinFrequency(bin, sampleRate, cfg.FFTSize)
		}
		res.Frames = append(res.Frames, f)
		res.PeakHz = append(res.PeakHz, hz)
	}
	return res, nil
}

// GetAnalysis retrieves a stored analysis by ID.
func (s *tempoService) GetAnalysis(id string) (*models.Analysis, error) {
	return s.storage.GetAnalysisByID(id)
}

// ListAnalyses returns every stored analysis, newest first.
func (s *tempoService) ListAnalyses() ([]models.Analysis, error) {
	return s.storage.ListAnalyses()
}

func (s *tempoService) DeleteAnalysis(id string) error {
	return s.storage.DeleteAnalysisByID(id)
}

func (s *tempoService) CountAnalyses() (int64, error) {
	return s.storage.CountAnalyses()
}

// Close releases all resources held by the service.
func (s *tempoService) Close() error {
	return s.storage.Close()
}
