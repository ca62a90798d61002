package services

import (
	"context"
	"fmt"
	"time"

	"voice-connector/internal/domain/entities"
	"voice-connector/internal/infra/logger"
	"voice-connector/internal/metrics"

	"github.com/sirupsen/logrus"
)

const (
	DecisionReuse = "reuse"
	DecisionRenew = "renew"
)

type ThreadCreator interface {
	CreateThread(ctx context.Context) (string, error)
}

// ContinuityService applies the thread lifetime policy: a session keeps its
// thread while the gap since its last interaction is at most LifetimeSec.
type ContinuityService struct {
	Logger      *logger.Logger
	Threads     ThreadCreator
	LifetimeSec int64
	Metrics     *metrics.Metrics
}

func NewContinuityService(logger *logger.Logger, threads ThreadCreator, lifetimeSec int64, m *metrics.Metrics) *ContinuityService {
	return &ContinuityService{Logger: logger, Threads: threads, LifetimeSec: lifetimeSec, Metrics: m}
}

// CanReuse reports whether the session's thread is still eligible at now.
func (s *ContinuityService) CanReuse(session entities.Session, now int64) bool {
	if !session.HasThread() || !session.HasInteraction() {
		return false
	}
	return now-session.LastInteraction <= s.LifetimeSec
}

// ResolveThread returns the thread to use for an exchange at now. On renew
// the new id is written to session; the caller persists it.
func (s *ContinuityService) ResolveThread(ctx context.Context, session *entities.Session, now int64) (string, error) {
	if s.CanReuse(*session, now) {
		s.Metrics.ThreadDecisions.WithLabelValues(DecisionReuse).Inc()
		s.Logger.Debug("Reusing thread", logrus.Fields{
			"thread_id": session.ThreadID,
			"elapsed":   now - session.LastInteraction,
		})
		return session.ThreadID, nil
	}

	start := time.Now()
	threadID, err := s.Threads.CreateThread(ctx)
	s.Metrics.ObserveRemote("thread creation", time.Since(start).Seconds(), err)
	if err != nil {
		return "", err
	}
	if threadID == "" {
		return "", fmt.Errorf("backend returned an empty thread id")
	}

	s.Metrics.ThreadDecisions.WithLabelValues(DecisionRenew).Inc()
	s.Logger.Info("Allocated new thread", logrus.Fields{
		"thread_id":       threadID,
		"previous_thread": session.ThreadID,
	})
	session.ThreadID = threadID
	return threadID, nil
}

// RecordInteraction stamps the session with the time of a completed exchange.
func (s *ContinuityService) RecordInteraction(session *entities.Session, now int64) {
	session.LastInteraction = now
}
