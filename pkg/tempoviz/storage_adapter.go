package tempoviz

import (
	"github.com/himanishpuri/tempoviz/pkg/models"
	"github.com/himanishpuri/tempoviz/pkg/tempoviz/storage"
)

// ErrNotFound is returned by Storage lookups that match nothing.
var ErrNotFound = storage.ErrNotFound

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

var _ Storage = (*storageAdapter)(nil)

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) SaveAnalysis(a *models.Analysis) error {
	return s.db.SaveAnalysis(a)
}

func (s *storageAdapter) GetAnalysisByID(id string) (*models.Analysis, error) {
	return s.db.GetAnalysisByID(id)
}

func (s *storageAdapter) FindBySource(sourcePath, paramsKey string) (*models.Analysis, error) {
	return s.db.FindBySource(sourcePath, paramsKey)
}

func (s *storageAdapter) ListAnalyses() ([]models.Analysis, error) {
	return s.db.ListAnalyses()
}

func (s *storageAdapter) DeleteAnalysisByID(id string) error {
	return s.db.DeleteAnalysisByID(id)
}

func (s *storageAdapter) CountAnalyses() (int64, error) {
	return s.db.CountAnalyses()
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}
