package llm

import (
	"context"
	"testing"

	"github.com/bytedance/gg/gptr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/warden/internal/pkg/options"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
)

func newModule(t *testing.T, opts *options.ModelOptions) *Module {
	t.Helper()
	m, err := (&Config{ModelOptions: opts}).Complete().New(context.Background())
	require.NoError(t, err)
	return m
}

func TestDefaultEchoAdapter(t *testing.T) {
	m := newModule(t, nil)

	a, err := m.DefaultAdapter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "echo", a.Name())

	again, err := m.Adapter(context.Background(), "echo")
	require.NoError(t, err)
	assert.Same(t, a, again)

	resp, err := a.Invoke(context.Background(), &runtime.InvokeRequest{
		Messages: []*entity.Message{entity.NewUserMessage("ping")},
	})
	require.NoError(t, err)
	assert.Equal(t, "echo: ping", resp.Text)
}

func TestNamedProviderUsesType(t *testing.T) {
	opts := options.NewModelOptions()
	opts.Default = "offline"
	opts.Providers["offline"] = &options.ProviderConfig{
		Type:           "echo",
		Model:          "echo-2",
		KeepToolBlocks: gptr.Of(false),
	}
	m := newModule(t, opts)

	a, err := m.DefaultAdapter(context.Background())
	require.NoError(t, err)
	resp, err := a.Invoke(context.Background(), &runtime.InvokeRequest{
		Messages: []*entity.Message{entity.NewUserMessage("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "echo-2", resp.Metadata[entity.MetaModel])
	assert.Contains(t, m.Providers(), "offline")
}

func TestAdapterErrors(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	opts := options.NewModelOptions()
	opts.Default = "nope"
	_, err := (&Config{ModelOptions: opts}).Complete().New(context.Background())
	assert.ErrorContains(t, err, "not registered")

	m := newModule(t, nil)
	_, err = m.Adapter(context.Background(), "openai")
	assert.ErrorContains(t, err, "api-key")

	_, err = m.Adapter(context.Background(), "")
	assert.Error(t, err)
}

func TestAPIKeyFromEnvironment(t *testing.T) {
	t.Setenv("WARDEN_TEST_KEY", "secret")

	opts := options.NewModelOptions()
	opts.Providers["openai"] = &options.ProviderConfig{APIKey: "${WARDEN_TEST_KEY}"}
	m := newModule(t, opts)

	a, err := m.Adapter(context.Background(), "openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", a.Name())
}
