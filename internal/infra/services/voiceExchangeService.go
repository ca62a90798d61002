package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"voice-connector/internal/domain/dto"
	"voice-connector/internal/domain/entities"
	Iservices "voice-connector/internal/domain/interfaces/services"
	"voice-connector/internal/infra/logger"
	"voice-connector/internal/infra/provider"
	"voice-connector/internal/metrics"
	"voice-connector/internal/util"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ExchangeState is a step of a single voice exchange.
type ExchangeState string

const (
	StateReceived       ExchangeState = "RECEIVED"
	StateStaged         ExchangeState = "STAGED"
	StateTranscribed    ExchangeState = "TRANSCRIBED"
	StateThreadResolved ExchangeState = "THREAD_RESOLVED"
	StateRunComplete    ExchangeState = "RUN_COMPLETE"
	StateSynthesized    ExchangeState = "SYNTHESIZED"
	StateDelivered      ExchangeState = "DELIVERED"
	StateSessionUpdated ExchangeState = "SESSION_UPDATED"
)

const NotRecognizedText = "Sorry, I could not make out any speech in that voice message. Please try again!"

type ChatSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendVoice(ctx context.Context, chatID int64, filePath string) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
}

// ExchangeFailedError reports the step a voice exchange failed to reach.
type ExchangeFailedError struct {
	ExchangeID string
	State      ExchangeState
	Err        error
}

func (e *ExchangeFailedError) Error() string {
	return fmt.Sprintf("exchange %s failed before %s: %v", e.ExchangeID, e.State, e.Err)
}

func (e *ExchangeFailedError) Unwrap() error {
	return e.Err
}

// VoiceExchangeService runs a voice message end to end: stage, transcribe,
// resolve thread, ask the assistant, synthesize, deliver, update session.
type VoiceExchangeService struct {
	Logger        *logger.Logger
	Chat          ChatSender
	Staging       Iservices.IAudioStagingService
	Transcription Iservices.ITranscriptionService
	Sessions      Iservices.ISessionService
	Continuity    Iservices.IContinuityService
	Replies       Iservices.IReplySynthesisService
	Locks         *util.KeyedMutex
	Metrics       *metrics.Metrics
}

func NewVoiceExchangeService(
	logger *logger.Logger,
	chat ChatSender,
	staging Iservices.IAudioStagingService,
	transcription Iservices.ITranscriptionService,
	sessions Iservices.ISessionService,
	continuity Iservices.IContinuityService,
	replies Iservices.IReplySynthesisService,
	m *metrics.Metrics,
) *VoiceExchangeService {
	return &VoiceExchangeService{
		Logger:        logger,
		Chat:          chat,
		Staging:       staging,
		Transcription: transcription,
		Sessions:      sessions,
		Continuity:    continuity,
		Replies:       replies,
		Locks:         util.NewKeyedMutex(),
		Metrics:       m,
	}
}

// HandleVoice processes one voice message. Exchanges of the same user run one
// at a time; the stored session changes only when the exchange completes.
func (cs *VoiceExchangeService) HandleVoice(ctx context.Context, voice dto.IncomingVoice) error {
	key := entities.SessionKey(voice.ChatID, voice.UserID)
	exchangeID := uuid.NewString()
	log := cs.Logger.With(logrus.Fields{"exchange_id": exchangeID, "session_key": key})

	unlock := cs.Locks.Lock(key)
	defer unlock()

	cs.Metrics.ExchangesStarted.Inc()
	cs.Metrics.ActiveExchanges.Inc()
	started := time.Now()
	defer func() {
		cs.Metrics.ActiveExchanges.Dec()
		cs.Metrics.ExchangeDuration.Observe(time.Since(started).Seconds())
	}()

	fail := func(state ExchangeState, err error) error {
		cs.Metrics.ExchangesFailed.WithLabelValues(string(state)).Inc()
		log.Error(fmt.Sprintf("Voice exchange aborted: %v", err), logrus.Fields{"state": string(state)})
		return &ExchangeFailedError{ExchangeID: exchangeID, State: state, Err: err}
	}

	log.Info("Voice message received", logrus.Fields{
		"state":          string(StateReceived),
		"message_id":     voice.MessageID,
		"file_id":        voice.FileID,
		"file_unique_id": voice.FileUniqueID,
		"duration":       voice.Duration,
	})
	if err := cs.Chat.SendChatAction(ctx, voice.ChatID, provider.ChatActionRecordVoice); err != nil {
		log.Debug(fmt.Sprintf("Chat action not sent: %v", err))
	}

	stagedPath, err := cs.Staging.Stage(ctx, voice)
	if err != nil {
		return fail(StateStaged, err)
	}

	text, err := cs.Transcription.Transcribe(ctx, stagedPath)
	if err != nil {
		return fail(StateTranscribed, err)
	}
	// The assistant API rejects empty message content, so a silent voice
	// ends here and the session is left as it was.
	if strings.TrimSpace(text) == "" {
		log.Warn("Transcription is empty, nothing to ask", logrus.Fields{"state": string(StateTranscribed)})
		if err := cs.Chat.SendText(ctx, voice.ChatID, NotRecognizedText); err != nil {
			return fail(StateDelivered, err)
		}
		return nil
	}
	log.Debug("Voice transcribed", logrus.Fields{"state": string(StateTranscribed), "chars": len(text)})

	session, err := cs.Sessions.FindOrInit(ctx, voice.ChatID, voice.UserID)
	if err != nil {
		return fail(StateThreadResolved, err)
	}

	threadID, err := cs.Continuity.ResolveThread(ctx, &session, voice.Timestamp)
	if err != nil {
		return fail(StateThreadResolved, err)
	}
	log = log.With(logrus.Fields{"thread_id": threadID})

	messages, err := cs.Replies.SubmitAndAwait(ctx, threadID, text)
	if err != nil {
		return fail(StateRunComplete, err)
	}
	log.Debug("Assistant replied", logrus.Fields{"state": string(StateRunComplete), "messages": len(messages)})

	paths, err := cs.Replies.Synthesize(ctx, messages, threadID)
	if err != nil {
		return fail(StateSynthesized, err)
	}

	if err := cs.deliver(ctx, voice.ChatID, paths); err != nil {
		return fail(StateDelivered, err)
	}

	cs.Continuity.RecordInteraction(&session, voice.Timestamp)
	if _, err := cs.Sessions.Save(ctx, session); err != nil {
		return fail(StateSessionUpdated, err)
	}

	cs.Metrics.ExchangesFinished.Inc()
	log.Info("Voice exchange completed", logrus.Fields{
		"state":    string(StateSessionUpdated),
		"replies":  len(paths),
		"duration": time.Since(started).String(),
	})
	return nil
}

// deliver sends each file in order and deletes it right after. When a send
// fails the undelivered files are deleted too.
func (cs *VoiceExchangeService) deliver(ctx context.Context, chatID int64, paths []string) error {
	for i, path := range paths {
		err := cs.Chat.SendVoice(ctx, chatID, path)
		cs.Staging.Discard(path)
		if err != nil {
			for _, rest := range paths[i+1:] {
				cs.Staging.Discard(rest)
			}
			return err
		}
	}
	return nil
}
