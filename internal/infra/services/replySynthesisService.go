package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"voice-connector/internal/domain/apperrors"
	"voice-connector/internal/domain/dto"
	"voice-connector/internal/infra/logger"
	"voice-connector/internal/infra/provider"
	"voice-connector/internal/metrics"

	"github.com/sirupsen/logrus"
)

const runCancelTimeout = 10 * time.Second

type ReplySynthesisService struct {
	Logger       *logger.Logger
	Backend      provider.IThreadBackend
	Speech       provider.ISpeechSynthesizer
	Discarder    FileDiscarder
	Dir          string
	PollInterval time.Duration
	RunTimeout   time.Duration
	Metrics      *metrics.Metrics
}

type ReplySynthesisConfig struct {
	Dir          string
	PollInterval time.Duration
	RunTimeout   time.Duration
}

func NewReplySynthesisService(
	logger *logger.Logger,
	backend provider.IThreadBackend,
	speech provider.ISpeechSynthesizer,
	discarder FileDiscarder,
	cfg ReplySynthesisConfig,
	m *metrics.Metrics,
) *ReplySynthesisService {
	return &ReplySynthesisService{
		Logger:       logger,
		Backend:      backend,
		Speech:       speech,
		Discarder:    discarder,
		Dir:          cfg.Dir,
		PollInterval: cfg.PollInterval,
		RunTimeout:   cfg.RunTimeout,
		Metrics:      m,
	}
}

// OutputPath is where the speech for messageID on threadID is written.
func (s *ReplySynthesisService) OutputPath(threadID, messageID string) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%s.mp3", threadID, messageID))
}

// SubmitAndAwait appends text to the thread, runs the assistant and returns
// the messages created after the user's message, oldest first.
func (s *ReplySynthesisService) SubmitAndAwait(ctx context.Context, threadID, text string) ([]dto.TranscriptMessage, error) {
	start := time.Now()
	userMessageID, err := s.Backend.CreateUserMessage(ctx, threadID, text)
	s.Metrics.ObserveRemote("message append", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	run, err := s.Backend.CreateRun(ctx, threadID)
	s.Metrics.ObserveRemote("run creation", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}

	run, err = s.awaitRun(ctx, threadID, run)
	if err != nil {
		return nil, err
	}
	if run.Status != dto.RunStatusCompleted {
		return nil, apperrors.Remote("run", fmt.Errorf("run %s ended with status %s: %s", run.ID, run.Status, run.LastError))
	}

	return s.listAfter(ctx, threadID, userMessageID)
}

// awaitRun polls until the run reaches a terminal status, the run timeout
// elapses or ctx is cancelled. A run given up on is cancelled.
func (s *ReplySynthesisService) awaitRun(ctx context.Context, threadID string, run dto.Run) (dto.Run, error) {
	pollCtx, cancel := context.WithTimeout(ctx, s.RunTimeout)
	defer cancel()

	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	for !run.Status.Terminal() {
		select {
		case <-pollCtx.Done():
			s.cancelRun(threadID, run.ID)
			return run, apperrors.Remote("run poll", fmt.Errorf("run %s still %s: %w", run.ID, run.Status, pollCtx.Err()))
		case <-ticker.C:
		}

		start := time.Now()
		next, err := s.Backend.RetrieveRun(pollCtx, threadID, run.ID)
		s.Metrics.ObserveRemote("run poll", time.Since(start).Seconds(), err)
		s.Metrics.RunPolls.Inc()
		if err != nil {
			if pollCtx.Err() != nil {
				s.cancelRun(threadID, run.ID)
			}
			return run, err
		}
		run = next
	}

	s.Logger.Debug("Run finished", logrus.Fields{"run_id": run.ID, "status": string(run.Status)})
	return run, nil
}

// cancelRun stops a run that is still active on the backend. The thread
// rejects new messages until it does. pollCtx is already done here, so the
// call gets its own deadline.
func (s *ReplySynthesisService) cancelRun(threadID, runID string) {
	ctx, cancel := context.WithTimeout(context.Background(), runCancelTimeout)
	defer cancel()

	start := time.Now()
	err := s.Backend.CancelRun(ctx, threadID, runID)
	s.Metrics.ObserveRemote("run cancel", time.Since(start).Seconds(), err)
	if err != nil {
		s.Logger.Warn(fmt.Sprintf("Run %s left active on thread %s: %v", runID, threadID, err))
		return
	}
	s.Logger.Info("Cancelled abandoned run", logrus.Fields{"run_id": runID, "thread_id": threadID})
}

func (s *ReplySynthesisService) listAfter(ctx context.Context, threadID, afterID string) ([]dto.TranscriptMessage, error) {
	var messages []dto.TranscriptMessage
	after := afterID
	for {
		start := time.Now()
		page, err := s.Backend.ListMessagesAfter(ctx, threadID, after)
		s.Metrics.ObserveRemote("message listing", time.Since(start).Seconds(), err)
		if err != nil {
			return nil, err
		}
		messages = append(messages, page.Messages...)

		if !page.HasMore || page.LastID == "" || page.LastID == after {
			return messages, nil
		}
		after = page.LastID
	}
}

// Synthesize writes one mp3 per message, returning paths in input order.
// On failure every file written so far is discarded.
func (s *ReplySynthesisService) Synthesize(ctx context.Context, messages []dto.TranscriptMessage, threadID string) ([]string, error) {
	paths := make([]string, 0, len(messages))
	for _, msg := range messages {
		path := s.OutputPath(threadID, msg.ID)
		if err := s.synthesizeOne(ctx, msg, path); err != nil {
			s.Discarder.Discard(path)
			for _, written := range paths {
				s.Discarder.Discard(written)
			}
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *ReplySynthesisService) synthesizeOne(ctx context.Context, msg dto.TranscriptMessage, path string) error {
	start := time.Now()
	audio, err := s.Speech.Speech(ctx, msg.Text)
	if err != nil {
		s.Metrics.ObserveRemote("speech synthesis", time.Since(start).Seconds(), err)
		return err
	}
	defer audio.Close()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create reply file %s: %w", path, err)
	}

	_, err = io.Copy(file, audio)
	s.Metrics.ObserveRemote("speech synthesis", time.Since(start).Seconds(), err)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write reply file %s: %w", path, err)
	}

	s.Metrics.AudioFilesSynthesized.Inc()
	return nil
}
