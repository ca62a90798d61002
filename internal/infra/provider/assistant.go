package provider

import (
	"context"
	"fmt"

	"voice-connector/internal/config"
	"voice-connector/internal/domain/apperrors"
	"voice-connector/internal/infra/logger"

	"github.com/sashabaranov/go-openai"
)

type AssistantCreator interface {
	CreateAssistant(ctx context.Context, request openai.AssistantRequest) (openai.Assistant, error)
}

// ProvisionAssistant returns the assistant id to run threads against. When
// cfg.CreateAssistant is set it creates a new assistant, records its id in
// cfg and persists it to the env file so the next start reuses it.
func ProvisionAssistant(ctx context.Context, log *logger.Logger, creator AssistantCreator, cfg *config.Config) (string, error) {
	if !cfg.CreateAssistant {
		return cfg.AssistantID, nil
	}

	name := cfg.AssistantName
	instructions := cfg.AssistantInstructions
	assistant, err := creator.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        cfg.AssistantModel,
		Name:         &name,
		Instructions: &instructions,
	})
	if err != nil {
		return "", apperrors.Remote("assistant creation", err)
	}

	log.Info(fmt.Sprintf("Created assistant %s", assistant.ID))

	if err := config.PersistEnv(cfg.EnvFile, map[string]string{
		"OPENAI_ASSISTANT_ID":     assistant.ID,
		"CREATE_OPENAI_ASSISTANT": "false",
	}); err != nil {
		log.Warn(fmt.Sprintf("Assistant %s created but not persisted: %v", assistant.ID, err))
	}

	cfg.AssistantID = assistant.ID
	cfg.CreateAssistant = false
	return assistant.ID, nil
}
