package narrator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"soloplay-server/internal/domain"
	"soloplay-server/internal/utils"
)

const defaultTimeout = 300 * time.Second

var (
	_ Narrator         = (*OpenAIClient)(nil)
	_ CharacterCreator = (*OpenAIClient)(nil)
)

// OpenAIClient talks to any OpenAI-compatible chat-completion endpoint and
// implements both Narrator and CharacterCreator.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger zerolog.Logger
}

// NewOpenAIClient creates a client. baseURL may point at any compatible
// provider; an empty value keeps the library default.
func NewOpenAIClient(apiKey, model, baseURL string, logger zerolog.Logger) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = &http.Client{Timeout: defaultTimeout}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: logger.With().Str("component", "OpenAIClient").Logger(),
	}
}

func (c *OpenAIClient) SceneStart(ctx context.Context, req Request) (*Response, error) {
	return c.invoke(ctx, sceneStartPrompt(req))
}

func (c *OpenAIClient) Recap(ctx context.Context, req Request) (*Response, error) {
	return c.invoke(ctx, recapPrompt(req))
}

func (c *OpenAIClient) Turn(ctx context.Context, req Request) (*Response, error) {
	return c.invoke(ctx, turnPrompt(req))
}

func (c *OpenAIClient) ResolveRoll(ctx context.Context, req Request) (*Response, error) {
	if req.RollResult == nil {
		return nil, fmt.Errorf("resolve roll invoked without a roll result")
	}
	return c.invoke(ctx, resolveRollPrompt(req))
}

func (c *OpenAIClient) Start(ctx context.Context, gameID, adventureName string) (*CreationResponse, error) {
	raw, err := c.complete(ctx, characterCreatorSystemPrompt, creationStartPrompt(gameID, adventureName))
	if err != nil {
		return nil, err
	}
	return ParseCreationResponse(raw)
}

func (c *OpenAIClient) Refine(ctx context.Context, gameID, adventureName string, draft *domain.PlayerActorDraft, playerInput string) (*CreationResponse, error) {
	raw, err := c.complete(ctx, characterCreatorSystemPrompt, creationTurnPrompt(gameID, adventureName, draft, playerInput))
	if err != nil {
		return nil, err
	}
	return ParseCreationResponse(raw)
}

func (c *OpenAIClient) invoke(ctx context.Context, userPrompt string) (*Response, error) {
	raw, err := c.complete(ctx, gameMasterSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}
	resp, warnings, err := ParseResponse(raw)
	for _, w := range warnings {
		c.logger.Warn().Str("warning", w).Msg("dropped narrator patch")
	}
	if err != nil {
		c.logger.Error().Err(err).Str("raw", utils.Truncate(raw, 500)).Msg("invalid narrator response")
		return nil, err
	}
	return resp, nil
}

func (c *OpenAIClient) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("chat completion returned no content")
	}
	return resp.Choices[0].Message.Content, nil
}
