package entities

import (
	"fmt"
	"time"
)

// Session is the per-user conversation record. ThreadID is empty and
// LastInteraction is zero until the first completed exchange.
type Session struct {
	SessionKey      string    `json:"session_key" bson:"session_key"`
	ChatID          int64     `json:"chat_id" bson:"chat_id"`
	UserID          int64     `json:"user_id" bson:"user_id"`
	ThreadID        string    `json:"thread_id" bson:"thread_id,omitempty"`
	LastInteraction int64     `json:"last_interaction" bson:"last_interaction,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt" bson:"updated_at"`
}

func (s Session) HasThread() bool {
	return s.ThreadID != ""
}

func (s Session) HasInteraction() bool {
	return s.LastInteraction != 0
}

// SessionKey identifies a user inside a chat.
func SessionKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}
