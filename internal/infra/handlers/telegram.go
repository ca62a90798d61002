package handlers

import (
	"context"
	"fmt"
	"sync"

	"voice-connector/internal/domain/dto"
	Iservices "voice-connector/internal/domain/interfaces/services"
	"voice-connector/internal/infra/logger"
	"voice-connector/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const (
	GreetingText = "Hello! This bot receives voice messages, converts them into text, " +
		"receives answers to questions asked and voices the answers. " +
		"Send bot a voice message and he will answer it!"
	VoiceOnlyText = "Bot only processes voice messages. " +
		"Please send bot a voice message and he will answer it!"
	FailureText = "Sorry, something went wrong while answering your voice message. Please try again later."
)

type TextSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// TelegramHandlers dispatches bot updates. Voice messages are handled in
// their own goroutine; commands and other messages are answered inline.
type TelegramHandlers struct {
	Logger        *logger.Logger
	Chat          TextSender
	VoiceExchange Iservices.IVoiceExchangeService
	Metrics       *metrics.Metrics

	wg sync.WaitGroup
}

func NewTelegramHandlers(logger *logger.Logger, chat TextSender, voiceExchange Iservices.IVoiceExchangeService, m *metrics.Metrics) *TelegramHandlers {
	return &TelegramHandlers{Logger: logger, Chat: chat, VoiceExchange: voiceExchange, Metrics: m}
}

// Run consumes updates until ctx is done or the channel is closed.
func (th *TelegramHandlers) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			th.HandleUpdate(ctx, update)
		}
	}
}

// Wait blocks until every in-flight voice exchange has returned.
func (th *TelegramHandlers) Wait() {
	th.wg.Wait()
}

func (th *TelegramHandlers) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil {
		th.Metrics.UpdatesReceived.WithLabelValues("ignored").Inc()
		return
	}

	switch {
	case message.IsCommand() && message.Command() == "start":
		th.Metrics.UpdatesReceived.WithLabelValues("start").Inc()
		th.reply(ctx, message.Chat.ID, GreetingText)
	case message.Voice != nil:
		th.Metrics.UpdatesReceived.WithLabelValues("voice").Inc()
		voice := toIncomingVoice(message)
		th.wg.Add(1)
		go th.handleVoice(ctx, voice)
	default:
		th.Metrics.UpdatesReceived.WithLabelValues("other").Inc()
		th.reply(ctx, message.Chat.ID, VoiceOnlyText)
	}
}

func (th *TelegramHandlers) handleVoice(ctx context.Context, voice dto.IncomingVoice) {
	defer th.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			th.Logger.Error(fmt.Sprintf("Recovered from panic: %v", r))
		}
	}()

	if err := th.VoiceExchange.HandleVoice(ctx, voice); err != nil {
		if ctx.Err() != nil {
			return
		}
		th.reply(ctx, voice.ChatID, FailureText)
	}
}

func (th *TelegramHandlers) reply(ctx context.Context, chatID int64, text string) {
	if err := th.Chat.SendText(ctx, chatID, text); err != nil {
		th.Logger.Error(fmt.Sprintf("Failed to reply to chat %d: %v", chatID, err), logrus.Fields{"chat_id": chatID})
	}
}

func toIncomingVoice(message *tgbotapi.Message) dto.IncomingVoice {
	voice := dto.IncomingVoice{
		ChatID:       message.Chat.ID,
		MessageID:    message.MessageID,
		FileID:       message.Voice.FileID,
		FileUniqueID: message.Voice.FileUniqueID,
		Duration:     message.Voice.Duration,
		Timestamp:    int64(message.Date),
	}
	if message.From != nil {
		voice.UserID = message.From.ID
	}
	return voice
}
