package Iservices

import (
	"context"

	"voice-connector/internal/domain/dto"
	"voice-connector/internal/domain/entities"
)

type IAudioStagingService interface {
	Stage(ctx context.Context, voice dto.IncomingVoice) (string, error)
	Discard(filePath string)
}

type ITranscriptionService interface {
	Transcribe(ctx context.Context, filePath string) (string, error)
}

// IContinuityService decides whether an exchange continues the session's
// thread or starts a new one.
type IContinuityService interface {
	ResolveThread(ctx context.Context, session *entities.Session, now int64) (string, error)
	RecordInteraction(session *entities.Session, now int64)
}

type IReplySynthesisService interface {
	SubmitAndAwait(ctx context.Context, threadID, text string) ([]dto.TranscriptMessage, error)
	Synthesize(ctx context.Context, messages []dto.TranscriptMessage, threadID string) ([]string, error)
}

type IVoiceExchangeService interface {
	HandleVoice(ctx context.Context, voice dto.IncomingVoice) error
}
