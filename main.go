package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voice-connector/internal/config"
	"voice-connector/internal/domain/entities"
	"voice-connector/internal/domain/interfaces/repository"
	repocontants "voice-connector/internal/domain/interfaces/repository/contants"
	Iservices "voice-connector/internal/domain/interfaces/services"
	"voice-connector/internal/infra/handlers"
	"voice-connector/internal/infra/logger"
	"voice-connector/internal/infra/provider"
	infrarepo "voice-connector/internal/infra/repository"
	"voice-connector/internal/infra/routes"
	"voice-connector/internal/infra/services"
	"voice-connector/internal/metrics"
	"voice-connector/internal/middleware"
	client "voice-connector/internal/pkg"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gorilla/mux"
)

func main() {
	envFile := config.GetEnvOrDefault("ENV_FILE", ".env")
	_ = config.LoadEnv(envFile)

	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.NewLogger(ctx, cfg.LogLevel, cfg.LogJSON)
	m := metrics.NewMetrics()

	sessionRepo, closeStore := newSessionRepository(ctx, cfg, log)
	defer closeStore()

	openaiClient := provider.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	assistantID, err := provider.ProvisionAssistant(ctx, log, openaiClient, cfg)
	if err != nil {
		log.Fatal(fmt.Sprintf("Failed to provision assistant: %v", err))
	}

	aiProvider := provider.NewOpenAIProvider(log, openaiClient, provider.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		AssistantID: assistantID,
		STTModel:    cfg.STTModel,
		TTSModel:    cfg.TTSModel,
		TTSVoice:    cfg.TTSVoice,
	})

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal(fmt.Sprintf("Failed to initialize Telegram bot: %v", err))
	}
	log.Info(fmt.Sprintf("Authorized as @%s", bot.Self.UserName))

	httpClient := &http.Client{Timeout: 60 * time.Second}
	chatProvider := provider.NewTelegramProvider(log, bot, httpClient)

	staging := services.NewAudioStagingService(log, chatProvider, cfg.AudioFilesFolder, m)
	if err := staging.EnsureDir(); err != nil {
		log.Fatal(err.Error())
	}

	var voiceExchange Iservices.IVoiceExchangeService = services.NewVoiceExchangeService(
		log,
		chatProvider,
		staging,
		services.NewTranscriptionService(log, aiProvider, staging, m),
		services.NewSessionService(sessionRepo, log),
		services.NewContinuityService(log, aiProvider, cfg.ThreadLifetimeSec, m),
		services.NewReplySynthesisService(log, aiProvider, aiProvider, staging, services.ReplySynthesisConfig{
			Dir:          cfg.AudioFilesFolder,
			PollInterval: cfg.RunPollInterval,
			RunTimeout:   cfg.RunTimeout,
		}, m),
		m,
	)
	telegramHandlers := handlers.NewTelegramHandlers(log, chatProvider, voiceExchange, m)

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware(log))
	routes.NewRoutes(router, handlers.NewHttpHandlers(log), m).Init()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		log.Info(fmt.Sprintf("Server is running on port %s", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(fmt.Sprintf("Error running HTTP server: %s", err))
			stop()
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	log.Info("Bot is polling for updates")
	telegramHandlers.Run(ctx, updates)

	log.Info("Shutting down...")
	bot.StopReceivingUpdates()
	telegramHandlers.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(fmt.Sprintf("Server forced to shutdown: %v", err))
	} else {
		log.Info("Server stopped gracefully.")
	}
}

// newSessionRepository uses MongoDB when MONGODB_URI is set and an in-memory
// store otherwise.
func newSessionRepository(ctx context.Context, cfg *config.Config, log *logger.Logger) (repository.Repository[entities.Session], func()) {
	if cfg.MongoURI == "" {
		log.Warn("MONGODB_URI not set, sessions are kept in memory")
		return infrarepo.NewMemoryRepository[entities.Session](), func() {}
	}

	mongoClient, err := client.MongoClient(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal(err.Error())
	}

	repo := infrarepo.NewMongoRepository[entities.Session](mongoClient.Database(cfg.MongoDatabase), repocontants.SESSION_KEY_FIELD)
	if err := repo.EnsureKeyIndex(ctx, repocontants.SESSION_COLLECTION); err != nil {
		log.Warn(fmt.Sprintf("Failed to create session index: %v", err))
	}

	return repo, func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Error(fmt.Sprintf("Failed to disconnect MongoDB: %v", err))
		}
	}
}
