//go:build !js && !wasm
// +build !js,!wasm

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	customlogger "github.com/himanishpuri/tempoviz/pkg/logger"
	"github.com/himanishpuri/tempoviz/pkg/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "tempoviz.sqlite3"
const errDBClientNil = "db client is nil"

// ErrNotFound is returned when no analysis matches the lookup.
var ErrNotFound = errors.New("analysis not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// Analysis is the database row for models.Analysis.
type Analysis struct {
	ID            string  `gorm:"primaryKey;type:varchar(36)"`
	Title         string  `gorm:"index:idx_analysis_title" json:"title"`
	SourcePath    string  `gorm:"index:idx_analysis_source,priority:1" json:"source_path"`
	ParamsKey     string  `gorm:"index:idx_analysis_source,priority:2" json:"params_key"`
	SampleRate    int     `json:"sample_rate"`
	SampleCount   int     `json:"sample_count"`
	DurationMs    int     `json:"duration_ms"`
	BPM           int     `gorm:"index:idx_analysis_bpm" json:"bpm"`
	Status        string  `gorm:"type:varchar(32)" json:"status"`
	Threshold     float64 `json:"threshold"`
	PeakCount     int     `json:"peak_count"`
	FloorReached  bool    `json:"floor_reached"`
	PeakAmplitude float64 `json:"peak_amplitude"`
	RMS           float64 `json:"rms"`
	CreatedAt     time.Time
}

func (a *Analysis) toModel() *models.Analysis {
	return &models.Analysis{
		ID:            a.ID,
		Title:         a.Title,
		SourcePath:    a.SourcePath,
		SampleRate:    a.SampleRate,
		SampleCount:   a.SampleCount,
		DurationMs:    a.DurationMs,
		BPM:           a.BPM,
		Status:        models.AnalysisStatus(a.Status),
		Threshold:     a.Threshold,
		PeakCount:     a.PeakCount,
		FloorReached:  a.FloorReached,
		PeakAmplitude: a.PeakAmplitude,
		RMS:           a.RMS,
		ParamsKey:     a.ParamsKey,
		CreatedAt:     a.CreatedAt,
	}
}

func fromModel(m *models.Analysis) *Analysis {
	return &Analysis{
		ID:            m.ID,
		Title:         m.Title,
		SourcePath:    m.SourcePath,
		ParamsKey:     m.ParamsKey,
		SampleRate:    m.SampleRate,
		SampleCount:   m.SampleCount,
		DurationMs:    m.DurationMs,
		BPM:           m.BPM,
		Status:        string(m.Status),
		Threshold:     m.Threshold,
		PeakCount:     m.PeakCount,
		FloorReached:  m.FloorReached,
		PeakAmplitude: m.PeakAmplitude,
		RMS:           m.RMS,
		CreatedAt:     m.CreatedAt,
	}
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("TEMPOVIZ_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	// sqlite serializes writers; one connection avoids SQLITE_BUSY under the server
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Analysis{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// SaveAnalysis inserts a, or replaces the stored row when a.ID is already set. The
// ID and creation time are assigned when unset and written back into a.
func (c *DBClient) SaveAnalysis(a *models.Analysis) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	isNew := a.ID == ""
	if isNew {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	row := fromModel(a)
	save := c.DB.Save
	if isNew {
		save = c.DB.Create
	}
	if err := save(row).Error; err != nil {
		return fmt.Errorf("saving analysis: %w", err)
	}
	return nil
}

func (c *DBClient) GetAnalysisByID(id string) (*models.Analysis, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var row Analysis
	if err := c.DB.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("querying analysis: %w", err)
	}
	return row.toModel(), nil
}

// FindBySource returns the newest analysis of sourcePath made with paramsKey.
func (c *DBClient) FindBySource(sourcePath, paramsKey string) (*models.Analysis, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var row Analysis
	err := c.DB.Where("source_path = ? AND params_key = ?", sourcePath, paramsKey).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, sourcePath)
		}
		return nil, fmt.Errorf("querying analysis by source: %w", err)
	}
	return row.toModel(), nil
}

// ListAnalyses returns all analyses, newest first.
func (c *DBClient) ListAnalyses() ([]models.Analysis, error) {
	if c == nil || c.DB == nil {
		return nil, errors.New(errDBClientNil)
	}
	var rows []Analysis
	if err := c.DB.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	out := make([]models.Analysis, len(rows))
	for i := range rows {
		out[i] = *rows[i].toModel()
	}
	return out, nil
}

func (c *DBClient) DeleteAnalysisByID(id string) error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&Analysis{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	})
}

func (c *DBClient) CountAnalyses() (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errDBClientNil)
	}
	var count int64
	if err := c.DB.Model(&Analysis{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting analyses: %w", err)
	}
	return count, nil
}

// MustNewDBClient opens the database from TEMPOVIZ_DB_PATH and panics on failure.
func MustNewDBClient() *DBClient {
	cli, err := NewDBClient()
	if err != nil {
		customlogger.GetLogger().Errorf("failed to open DB: %v", err)
		panic(err)
	}
	return cli
}
