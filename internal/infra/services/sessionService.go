package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voice-connector/internal/domain/entities"
	"voice-connector/internal/domain/interfaces/repository"
	repocontants "voice-connector/internal/domain/interfaces/repository/contants"
	"voice-connector/internal/infra/logger"
)

// SessionService is the service responsible for Session persistence.
type SessionService struct {
	SessionRepository repository.Repository[entities.Session]
	Logger            *logger.Logger
}

// NewSessionService creates a new instance of the service.
func NewSessionService(sessionRepository repository.Repository[entities.Session], logger *logger.Logger) *SessionService {
	return &SessionService{
		SessionRepository: sessionRepository,
		Logger:            logger,
	}
}

// FindOrInit returns the stored session for the user, or a fresh one with
// no thread and no recorded interaction. A fresh session is not stored.
func (ss *SessionService) FindOrInit(ctx context.Context, chatID, userID int64) (entities.Session, error) {
	key := entities.SessionKey(chatID, userID)

	result, err := ss.SessionRepository.FindByKey(ctx, repocontants.SESSION_COLLECTION, key)
	if errors.Is(err, repository.ErrNotFound) {
		ss.Logger.Debug(fmt.Sprintf("Session not found for key %s. Initializing new session.", key))
		return entities.Session{SessionKey: key, ChatID: chatID, UserID: userID}, nil
	}
	if err != nil {
		ss.Logger.Error(fmt.Sprintf("Failed to find Session with key '%s': %v", key, err))
		return entities.Session{}, err
	}

	return result, nil
}

// Save upserts the session.
func (ss *SessionService) Save(ctx context.Context, session entities.Session) (entities.Session, error) {
	session.UpdatedAt = time.Now().UTC()

	result, err := ss.SessionRepository.Update(ctx, repocontants.SESSION_COLLECTION, session.SessionKey, session)
	if err != nil {
		ss.Logger.Error(fmt.Sprintf("Failed to update Session with key '%s': %v", session.SessionKey, err))
		return entities.Session{}, err
	}

	return result, nil
}
