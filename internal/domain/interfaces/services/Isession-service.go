package Iservices

import (
	"context"

	"voice-connector/internal/domain/entities"
)

// ISessionService loads and stores per-user sessions.
type ISessionService interface {
	FindOrInit(ctx context.Context, chatID, userID int64) (entities.Session, error)
	Save(ctx context.Context, session entities.Session) (entities.Session, error)
}
