package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"voice-connector/internal/domain/apperrors"
	"voice-connector/internal/infra/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const ChatActionRecordVoice = "record_voice"

var _ IChatProvider = (*TelegramProvider)(nil)

// BotAPI is the subset of *tgbotapi.BotAPI the provider needs.
type BotAPI interface {
	GetFileDirectURL(fileID string) (string, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type TelegramProvider struct {
	Logger     *logger.Logger
	Bot        BotAPI
	HttpClient *http.Client
}

func NewTelegramProvider(logger *logger.Logger, bot BotAPI, httpClient *http.Client) *TelegramProvider {
	return &TelegramProvider{Logger: logger, Bot: bot, HttpClient: httpClient}
}

// DownloadFile resolves the file's direct URL and streams its content to dst.
func (th *TelegramProvider) DownloadFile(ctx context.Context, fileID string, dst io.Writer) error {
	fileURL, err := th.Bot.GetFileDirectURL(fileID)
	if err != nil {
		th.Logger.Error(fmt.Sprintf("Failed to resolve file %s: %v", fileID, err))
		return apperrors.Remote("file lookup", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	res, err := th.HttpClient.Do(req)
	if err != nil {
		th.Logger.Error(fmt.Sprintf("HTTP request failed %v", err))
		return apperrors.Remote("file download", err)
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		th.Logger.Error(fmt.Sprintf("Unexpected HTTP status %s downloading file %s", res.Status, fileID))
		return apperrors.Remote("file download", fmt.Errorf("unexpected HTTP status: %s", res.Status))
	}

	if _, err := io.Copy(dst, res.Body); err != nil {
		return fmt.Errorf("failed to write downloaded file: %w", err)
	}
	return nil
}

func (th *TelegramProvider) SendText(ctx context.Context, chatID int64, text string) error {
	if text == "" {
		return fmt.Errorf("message cannot be empty")
	}
	if _, err := th.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		th.Logger.Error(fmt.Sprintf("Failed to send text to chat %d: %v", chatID, err))
		return apperrors.Remote("send text", err)
	}
	return nil
}

func (th *TelegramProvider) SendVoice(ctx context.Context, chatID int64, filePath string) error {
	if filePath == "" {
		return fmt.Errorf("voice file path cannot be empty")
	}
	if _, err := th.Bot.Send(tgbotapi.NewVoice(chatID, tgbotapi.FilePath(filePath))); err != nil {
		th.Logger.Error(fmt.Sprintf("Failed to send voice to chat %d: %v", chatID, err))
		return apperrors.Remote("send voice", err)
	}
	return nil
}

func (th *TelegramProvider) SendChatAction(ctx context.Context, chatID int64, action string) error {
	if _, err := th.Bot.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
		return apperrors.Remote("chat action", err)
	}
	return nil
}
