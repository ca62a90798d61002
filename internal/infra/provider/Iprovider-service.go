package provider

import (
	"context"
	"io"

	"voice-connector/internal/domain/dto"
)

// IChatProvider is the chat platform boundary.
type IChatProvider interface {
	DownloadFile(ctx context.Context, fileID string, dst io.Writer) error
	SendText(ctx context.Context, chatID int64, text string) error
	SendVoice(ctx context.Context, chatID int64, filePath string) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
}

type ITranscriber interface {
	Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error)
}

// IThreadBackend covers the assistant conversation calls.
type IThreadBackend interface {
	CreateThread(ctx context.Context) (string, error)
	CreateUserMessage(ctx context.Context, threadID, text string) (string, error)
	CreateRun(ctx context.Context, threadID string) (dto.Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (dto.Run, error)
	CancelRun(ctx context.Context, threadID, runID string) error
	ListMessagesAfter(ctx context.Context, threadID, afterID string) (dto.MessagePage, error)
}

type ISpeechSynthesizer interface {
	Speech(ctx context.Context, text string) (io.ReadCloser, error)
}

// IAIProvider is the full AI backend boundary.
type IAIProvider interface {
	ITranscriber
	IThreadBackend
	ISpeechSynthesizer
}
