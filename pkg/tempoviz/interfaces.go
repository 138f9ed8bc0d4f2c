package tempoviz

import (
	"context"

	"github.com/himanishpuri/tempoviz/pkg/models"
)

type Service interface {
	Analyze(ctx context.Context, audioPath, title string, opts AnalyzeOptions) (*models.Analysis, error)
	AnalyzeSamples(samples []float64, sampleRate int, title, source string) (*models.Analysis, error)
	Spectrum(ctx context.Context, audioPath string) (*SpectrumResult, error)
	GetAnalysis(id string) (*models.Analysis, error)
	ListAnalyses() ([]models.Analysis, error)
	DeleteAnalysis(id string) error
	CountAnalyses() (int64, error)
	Close() error
}

type Storage interface {
	SaveAnalysis(a *models.Analysis) error
	GetAnalysisByID(id string) (*models.Analysis, error)
	FindBySource(sourcePath, paramsKey string) (*models.Analysis, error)
	ListAnalyses() ([]models.Analysis, error)
	DeleteAnalysisByID(id string) error
	CountAnalyses() (int64, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
