package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/tempoviz/pkg/logger"
	"github.com/himanishpuri/tempoviz/pkg/tempoviz"
	"github.com/himanishpuri/tempoviz/pkg/utils"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service tempoviz.Service
	config  *ServerConfig
	log     tempoviz.Logger
	started time.Time
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	SampleRate     int
	AllowedOrigins []string
	LogRequests    bool
}

// NewServer creates a new server instance
func NewServer(service tempoviz.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger().WithPrefix("[http]"),
		started: time.Now(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "TempoViz API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":         "GET /health",
			"metrics":        "GET /api/health/metrics",
			"analyses":       "GET /api/analyses",
			"analyzeFile":    "POST /api/analyses",
			"analyzeSamples": "POST /api/analyses/samples",
			"getAnalysis":    "GET /api/analyses/{id}",
			"deleteAnalysis": "DELETE /api/analyses/{id}",
			"spectrum":       "POST /api/spectrum",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	count, err := s.service.CountAnalyses()
	if err != nil {
		s.log.Errorf("Failed to count analyses: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:        "healthy",
		DatabasePath:  s.config.DBPath,
		AnalysisCount: count,
		SampleRate:    s.config.SampleRate,
		Uptime:        time.Since(s.started).Round(time.Second).String(),
	})
}

// handleListAnalyses handles GET /api/analyses
func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.service.ListAnalyses()
	if err != nil {
		s.log.Errorf("Failed to list analyses: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve analyses")
		return
	}

	dtos := make([]AnalysisDTO, len(analyses))
	for i := range analyses {
		dtos[i] = toAnalysisDTO(&analyses[i])
	}

	s.respondJSON(w, http.StatusOK, ListAnalysesResponse{
		Analyses: dtos,
		Count:    len(dtos),
	})
}

// handleGetAnalysis handles GET /api/analyses/{id}
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request, id string) {
	a, err := s.service.GetAnalysis(id)
	if err != nil {
		s.respondLookupError(w, id, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toAnalysisDTO(a))
}

// handleDeleteAnalysis handles DELETE /api/analyses/{id}
func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.service.DeleteAnalysis(id); err != nil {
		s.respondLookupError(w, id, err)
		return
	}

	s.log.Infof("Deleted analysis %s", id)
	s.respondJSON(w, http.StatusOK, DeleteAnalysisResponse{
		Message: "Analysis deleted successfully",
		ID:      id,
	})
}

func (s *Server) respondLookupError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, tempoviz.ErrNotFound) {
		s.log.Warnf("Analysis not found: %s", id)
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("Analysis with ID %s not found", id))
		return
	}
	s.log.Errorf("Analysis lookup failed for %s: %v", id, err)
	s.respondError(w, http.StatusInternalServerError, "Failed to access analysis")
}

// saveUpload copies the multipart "audio" file into the temp dir. It returns the
// temp path, the original file name and a content digest usable as a source id.
func (s *Server) saveUpload(r *http.Request, prefix string) (path, name, digest string, err error) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		return "", "", "", fmt.Errorf("audio file is required")
	}
	defer file.Close()

	if err := utils.MakeDir(s.config.TempDir); err != nil {
		return "", "", "", err
	}
	tempFile := utils.TempFilePath(s.config.TempDir, prefix, filepath.Ext(header.Filename))
	sum, err := copyToFile(tempFile, file)
	if err != nil {
		return "", "", "", err
	}
	return tempFile, header.Filename, "sha256:" + sum, nil
}

// copyToFile writes src to path and returns the hex sha256 of what was written.
// The file is removed if the copy or the close fails.
func copyToFile(path string, src io.Reader) (string, error) {
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	_, err = io.Copy(io.MultiWriter(out, h), src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		utils.DeleteFile(path)
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// handleAnalyzeFile handles POST /api/analyses (multipart file upload)
func (s *Server) handleAnalyzeFile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	tempFile, name, digest, err := s.saveUpload(r, "upload")
	if err != nil {
		s.log.Errorf("Failed to save upload: %v", err)
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(tempFile)

	title := r.FormValue("title")
	if title == "" {
		title = name
	}
	force, _ := strconv.ParseBool(r.FormValue("force"))

	s.log.Infof("Analyzing upload %s (%s)", name, digest)
	a, err := s.service.Analyze(ctx, tempFile, title, tempoviz.AnalyzeOptions{Force: force, Source: digest})
	if err != nil {
		s.log.Errorf("Failed to analyze upload: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to analyze audio: %v", err))
		return
	}

	s.respondJSON(w, http.StatusCreated, toAnalysisDTO(a))
}

// handleAnalyzeSamples handles POST /api/analyses/samples (decoded PCM from clients)
func (s *Server) handleAnalyzeSamples(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSamplesBodyBytes)

	var req AnalyzeSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.Errorf("Failed to decode request: %v", err)
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := s.service.AnalyzeSamples(req.Samples, req.SampleRate, req.Title, req.Source)
	if err != nil {
		s.log.Errorf("Failed to analyze samples: %v", err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to analyze samples: %v", err))
		return
	}

	s.respondJSON(w, http.StatusCreated, toAnalysisDTO(a))
}

// handleSpectrum handles POST /api/spectrum (multipart file upload). Add
// ?frames=true to include the per-block byte spectra.
func (s *Server) handleSpectrum(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	tempFile, name, _, err := s.saveUpload(r, "spectrum")
	if err != nil {
		s.log.Errorf("Failed to save upload: %v", err)
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(tempFile)

	res, err := s.service.Spectrum(ctx, tempFile)
	if err != nil {
		s.log.Errorf("Spectrum of %s failed: %v", name, err)
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to analyse spectrum: %v", err))
		return
	}

	withFrames, _ := strconv.ParseBool(r.URL.Query().Get("frames"))
	s.respondJSON(w, http.StatusOK, toSpectrumResponse(res, withFrames))
}

// handleAnalyses routes requests to /api/analyses
func (s *Server) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListAnalyses(w, r)
	case http.MethodPost:
		s.handleAnalyzeFile(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleAnalysis routes requests to /api/analyses/{id} and /api/analyses/samples
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/analyses/"), "/")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "Analysis ID required")
		return
	}

	if id == "samples" {
		if r.Method != http.MethodPost {
			s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		s.handleAnalyzeSamples(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetAnalysis(w, r, id)
	case http.MethodDelete:
		s.handleDeleteAnalysis(w, r, id)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
