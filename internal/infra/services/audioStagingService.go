package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"voice-connector/internal/domain/dto"
	"voice-connector/internal/infra/logger"
	"voice-connector/internal/metrics"

	"github.com/sirupsen/logrus"
)

type FileDownloader interface {
	DownloadFile(ctx context.Context, fileID string, dst io.Writer) error
}

// AudioStagingService owns the transient audio directory.
type AudioStagingService struct {
	Logger     *logger.Logger
	Downloader FileDownloader
	Dir        string
	Metrics    *metrics.Metrics
}

func NewAudioStagingService(logger *logger.Logger, downloader FileDownloader, dir string, m *metrics.Metrics) *AudioStagingService {
	return &AudioStagingService{Logger: logger, Downloader: downloader, Dir: dir, Metrics: m}
}

// EnsureDir creates the audio directory if needed.
func (s *AudioStagingService) EnsureDir() error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create audio folder %s: %w", s.Dir, err)
	}
	return nil
}

// InputPath is where the attachment with fileID is staged.
func (s *AudioStagingService) InputPath(fileID string) string {
	return filepath.Join(s.Dir, fileID+".ogg")
}

// Stage downloads the voice attachment to InputPath(voice.FileID). An
// existing file at that path is overwritten.
func (s *AudioStagingService) Stage(ctx context.Context, voice dto.IncomingVoice) (string, error) {
	if voice.FileID == "" {
		return "", fmt.Errorf("voice attachment has no file id")
	}
	path := s.InputPath(voice.FileID)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create staged file %s: %w", path, err)
	}

	downloadErr := s.Downloader.DownloadFile(ctx, voice.FileID, file)
	closeErr := file.Close()
	if downloadErr == nil && closeErr != nil {
		downloadErr = fmt.Errorf("failed to close staged file %s: %w", path, closeErr)
	}
	if downloadErr != nil {
		s.Discard(path)
		return "", downloadErr
	}

	s.Metrics.AudioFilesStaged.Inc()
	s.Logger.Debug("Voice attachment staged", logrus.Fields{"path": path})
	return path, nil
}

// Discard deletes a transient audio file. Failures are logged, never returned.
func (s *AudioStagingService) Discard(filePath string) {
	err := os.Remove(filePath)
	if err == nil {
		s.Metrics.AudioFilesDiscarded.Inc()
		return
	}
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	s.Metrics.DiscardErrors.Inc()
	s.Logger.Warn(fmt.Sprintf("Failed to delete audio file %s: %v", filePath, err))
}
