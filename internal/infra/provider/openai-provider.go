package provider

import (
	"context"
	"fmt"
	"io"
	"strings"

	"voice-connector/internal/domain/apperrors"
	"voice-connector/internal/domain/dto"
	"voice-connector/internal/infra/logger"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const messagesPageSize = 100

var _ IAIProvider = (*OpenAIProvider)(nil)

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	AssistantID string
	STTModel    string
	TTSModel    string
	TTSVoice    string
}

// OpenAIProvider talks to the OpenAI transcription, assistants and speech APIs.
type OpenAIProvider struct {
	Logger *logger.Logger
	Client *openai.Client
	Config OpenAIConfig
}

func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

func NewOpenAIProvider(logger *logger.Logger, client *openai.Client, cfg OpenAIConfig) *OpenAIProvider {
	return &OpenAIProvider{Logger: logger, Client: client, Config: cfg}
}

// Transcribe sends the audio to the speech-to-text endpoint. fileName is only
// used to tell the endpoint the audio format.
func (p *OpenAIProvider) Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error) {
	resp, err := p.Client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.Config.STTModel,
		FilePath: fileName,
		Reader:   audio,
	})
	if err != nil {
		p.Logger.Error(fmt.Sprintf("Transcription failed: %v", err))
		return "", apperrors.Remote("transcription", err)
	}
	return resp.Text, nil
}

func (p *OpenAIProvider) CreateThread(ctx context.Context) (string, error) {
	thread, err := p.Client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		p.Logger.Error(fmt.Sprintf("Failed to create thread: %v", err))
		return "", apperrors.Remote("thread creation", err)
	}
	return thread.ID, nil
}

func (p *OpenAIProvider) CreateUserMessage(ctx context.Context, threadID, text string) (string, error) {
	msg, err := p.Client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
	if err != nil {
		p.Logger.Error(fmt.Sprintf("Failed to append message to thread %s: %v", threadID, err))
		return "", apperrors.Remote("message append", err)
	}
	return msg.ID, nil
}

func (p *OpenAIProvider) CreateRun(ctx context.Context, threadID string) (dto.Run, error) {
	run, err := p.Client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: p.Config.AssistantID,
	})
	if err != nil {
		p.Logger.Error(fmt.Sprintf("Failed to create run on thread %s: %v", threadID, err))
		return dto.Run{}, apperrors.Remote("run creation", err)
	}
	return toRun(run), nil
}

func (p *OpenAIProvider) RetrieveRun(ctx context.Context, threadID, runID string) (dto.Run, error) {
	run, err := p.Client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return dto.Run{}, apperrors.Remote("run poll", err)
	}
	return toRun(run), nil
}

// CancelRun asks the backend to stop a run so the thread accepts new messages.
func (p *OpenAIProvider) CancelRun(ctx context.Context, threadID, runID string) error {
	if _, err := p.Client.CancelRun(ctx, threadID, runID); err != nil {
		p.Logger.Error(fmt.Sprintf("Failed to cancel run %s on thread %s: %v", runID, threadID, err))
		return apperrors.Remote("run cancel", err)
	}
	return nil
}

// ListMessagesAfter returns one page of messages created after afterID,
// oldest first.
func (p *OpenAIProvider) ListMessagesAfter(ctx context.Context, threadID, afterID string) (dto.MessagePage, error) {
	limit := messagesPageSize
	order := "asc"
	after := afterID

	list, err := p.Client.ListMessage(ctx, threadID, &limit, &order, &after, nil, nil)
	if err != nil {
		p.Logger.Error(fmt.Sprintf("Failed to list messages on thread %s: %v", threadID, err))
		return dto.MessagePage{}, apperrors.Remote("message listing", err)
	}

	page := dto.MessagePage{HasMore: list.HasMore}
	if list.LastID != nil {
		page.LastID = *list.LastID
	}
	for _, msg := range list.Messages {
		text := MessageText(msg)
		if text == "" {
			p.Logger.Debug("Skipping message without text content", logrus.Fields{"message_id": msg.ID})
			continue
		}
		page.Messages = append(page.Messages, dto.TranscriptMessage{ID: msg.ID, Text: text})
	}
	if page.LastID == "" && len(list.Messages) > 0 {
		page.LastID = list.Messages[len(list.Messages)-1].ID
	}
	return page, nil
}

// Speech returns the synthesized mp3 stream. The caller closes it.
func (p *OpenAIProvider) Speech(ctx context.Context, text string) (io.ReadCloser, error) {
	resp, err := p.Client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(p.Config.TTSModel),
		Voice:          openai.SpeechVoice(p.Config.TTSVoice),
		Input:          text,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		p.Logger.Error(fmt.Sprintf("Speech synthesis failed: %v", err))
		return nil, apperrors.Remote("speech synthesis", err)
	}
	return resp.ReadCloser, nil
}

// MessageText joins the text parts of an assistant message.
func MessageText(msg openai.Message) string {
	parts := make([]string, 0, len(msg.Content))
	for _, content := range msg.Content {
		if content.Text == nil {
			continue
		}
		if value := strings.TrimSpace(content.Text.Value); value != "" {
			parts = append(parts, value)
		}
	}
	return strings.Join(parts, "\n")
}

func toRun(run openai.Run) dto.Run {
	out := dto.Run{
		ID:       run.ID,
		ThreadID: run.ThreadID,
		Status:   dto.RunStatus(run.Status),
	}
	if run.LastError != nil {
		out.LastError = run.LastError.Message
	}
	return out
}
