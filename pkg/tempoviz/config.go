package tempoviz

import (
	"time"

	"github.com/himanishpuri/tempoviz/pkg/tempoviz/audio"
	"github.com/himanishpuri/tempoviz/pkg/tempoviz/spectrum"
	"github.com/himanishpuri/tempoviz/pkg/tempoviz/tempo"
)

type Config struct {
	DBPath        string
	TempDir       string
	SampleRate    int // rate non-WAV inputs are converted to
	FFmpegTimeout time.Duration
	TempoParams   tempo.Params
	Spectrum      spectrum.Config
	Logger        Logger
	Storage       Storage
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

func WithFFmpegTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.FFmpegTimeout = d
	}
}

func WithTempoParams(p tempo.Params) Option {
	return func(c *Config) {
		c.TempoParams = p
	}
}

func WithSpectrumConfig(cfg spectrum.Config) Option {
	return func(c *Config) {
		c.Spectrum = cfg
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:        "tempoviz.sqlite3",
		TempDir:       "/tmp",
		SampleRate:    audio.DefaultSampleRate,
		FFmpegTimeout: 2 * time.Minute,
		TempoParams:   tempo.DefaultParams(),
		Spectrum:      spectrum.DefaultConfig(),
		Logger:        nil,
	}
}
