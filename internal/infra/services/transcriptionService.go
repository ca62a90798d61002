package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"voice-connector/internal/infra/logger"
	"voice-connector/internal/infra/provider"
	"voice-connector/internal/metrics"
)

type FileDiscarder interface {
	Discard(filePath string)
}

type TranscriptionService struct {
	Logger      *logger.Logger
	Transcriber provider.ITranscriber
	Discarder   FileDiscarder
	Metrics     *metrics.Metrics
}

func NewTranscriptionService(logger *logger.Logger, transcriber provider.ITranscriber, discarder FileDiscarder, m *metrics.Metrics) *TranscriptionService {
	return &TranscriptionService{Logger: logger, Transcriber: transcriber, Discarder: discarder, Metrics: m}
}

// Transcribe returns the text spoken in the staged file. The file is deleted
// once the remote call has returned, whatever its outcome.
func (s *TranscriptionService) Transcribe(ctx context.Context, filePath string) (string, error) {
	defer s.Discarder.Discard(filePath)

	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open staged file %s: %w", filePath, err)
	}
	defer file.Close()

	start := time.Now()
	text, err := s.Transcriber.Transcribe(ctx, filepath.Base(filePath), file)
	s.Metrics.ObserveRemote("transcription", time.Since(start).Seconds(), err)
	if err != nil {
		return "", err
	}

	return text, nil
}
