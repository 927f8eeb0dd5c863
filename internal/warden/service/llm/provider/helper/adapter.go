package helper

import (
	"context"

	"github.com/bytedance/gg/gptr"
	einoOpenAI "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/kiosk404/warden/internal/pkg/options"
)

// NewOpenAICompatibleChatModel creates an Eino ChatModel using the OpenAI-compatible API.
// This is the common path for providers that expose an OpenAI-compatible endpoint
// (OpenAI, Kimi/Moonshot, GLM/ZhiPu, etc.).
func NewOpenAICompatibleChatModel(ctx context.Context, cfg *options.ProviderConfig) (model.BaseChatModel, error) {
	conf := &einoOpenAI.ChatModelConfig{
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		MaxTokens: gptr.Of(4096),
		ResponseFormat: &einoOpenAI.ChatCompletionResponseFormat{
			Type: einoOpenAI.ChatCompletionResponseFormatTypeText,
		},
		ByAzure:     cfg.ByAzure,
		APIVersion:  cfg.APIVersion,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	}

	// Set BaseURL only for non-default OpenAI endpoints.
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	if cfg.MaxTokens > 0 {
		conf.MaxTokens = gptr.Of(cfg.MaxTokens)
	}

	return einoOpenAI.NewChatModel(ctx, conf)
}
