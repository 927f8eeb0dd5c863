package bedrock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/kiosk404/warden/internal/pkg/options"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/helper"
	"github.com/kiosk404/warden/internal/warden/service/llm/provider/spi"
)

const Name = "bedrock"

var _ spi.AdapterPlugin = (*Plugin)(nil)

// Plugin talks to AWS Bedrock through the Converse API, which already
// speaks in content blocks, so no Eino model sits in between.
type Plugin struct {
	helper.BasePlugin
}

func New() spi.ProviderPlugin {
	return &Plugin{
		BasePlugin: helper.BasePlugin{PluginName: Name},
	}
}

func (p *Plugin) BuildAdapter(ctx context.Context, cfg *options.ProviderConfig, norm runtime.NormalizeOptions) (runtime.Adapter, error) {
	if err := p.RequireModel(cfg); err != nil {
		return nil, err
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("provider %s: region is required", Name)
	}

	var (
		awsCfg aws.Config
		err    error
	)
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			)),
		)
	} else {
		awsCfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to load AWS config: %w", err)
	}

	return NewAdapter(bedrockruntime.NewFromConfig(awsCfg), cfg, norm), nil
}

func (p *Plugin) DefaultConfig() *options.ProviderConfig {
	return &options.ProviderConfig{
		Region:    "us-east-1",
		Model:     "anthropic.claude-3-5-sonnet-20241022-v2:0",
		MaxTokens: 4096,
	}
}
