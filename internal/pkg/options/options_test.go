package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/warden/internal/pkg/server"
)

func float32Ptr(v float32) *float32 { return &v }

func boolPtr(v bool) *bool { return &v }

func TestProviderConfigMerge(t *testing.T) {
	def := &ProviderConfig{
		BaseURL:     "https://api.example.com",
		Model:       "base-model",
		MaxTokens:   1024,
		Temperature: float32Ptr(0.7),
	}
	override := &ProviderConfig{
		Model:          "large-model",
		APIKey:         "${EXAMPLE_KEY}",
		KeepToolBlocks: boolPtr(false),
	}

	out := override.Merge(def)
	assert.Equal(t, "https://api.example.com", out.BaseURL)
	assert.Equal(t, "large-model", out.Model)
	assert.Equal(t, "${EXAMPLE_KEY}", out.APIKey)
	assert.Equal(t, 1024, out.MaxTokens)
	require.NotNil(t, out.Temperature)
	assert.InDelta(t, 0.7, *out.Temperature, 1e-6)
	require.NotNil(t, out.KeepToolBlocks)
	assert.False(t, *out.KeepToolBlocks)

	// The defaults are not touched.
	*out.Temperature = 1.5
	assert.InDelta(t, 0.7, *def.Temperature, 1e-6)
	assert.Equal(t, "base-model", def.Model)

	var nilCfg *ProviderConfig
	assert.Equal(t, "base-model", nilCfg.Merge(def).Model)
	assert.Equal(t, "large-model", override.Merge(nil).Model)
}

func TestPluginName(t *testing.T) {
	assert.Equal(t, "openai", (&ProviderConfig{}).PluginName("openai"))
	assert.Equal(t, "openai", (&ProviderConfig{Type: "openai"}).PluginName("kimi-proxy"))
}

func TestModelOptionsValidate(t *testing.T) {
	o := NewModelOptions()
	assert.Empty(t, o.Validate())

	o.Default = ""
	o.Providers["a"] = nil
	o.Providers["b"] = &ProviderConfig{MaxTokens: -1, Temperature: float32Ptr(3)}
	assert.Len(t, o.Validate(), 4)
}

func TestServerRunOptions(t *testing.T) {
	s := NewServerRunOptions()
	assert.Empty(t, s.Validate())
	assert.Equal(t, "127.0.0.1:8787", s.Address())

	c := server.NewConfig()
	s.BindAddress = "0.0.0.0"
	s.Mode = "debug"
	require.NoError(t, s.ApplyTo(c))
	assert.Equal(t, "0.0.0.0:8787", c.Address)
	assert.Equal(t, "debug", c.Mode)

	s.Mode = "fast"
	s.BindPort = -1
	assert.Len(t, s.Validate(), 2)
}

func TestStoreOptionsValidate(t *testing.T) {
	tests := []struct {
		name string
		opts StoreOptions
		errs int
	}{
		{"memory without path", StoreOptions{Type: "memory"}, 0},
		{"boltdb", StoreOptions{Type: "boltdb", Path: "data/w.db"}, 0},
		{"sqlite without path", StoreOptions{Type: "sqlite"}, 1},
		{"unknown", StoreOptions{Type: "redis", Path: "x"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.opts.Validate(), tt.errs)
		})
	}
}

func TestApprovalAndLogOptions(t *testing.T) {
	a := NewApprovalOptions()
	a.RequireApproval = []string{"shell_*", "mcp:*"}
	a.AutoApprove = []string{"current_time"}
	assert.Empty(t, a.Validate())
	a.AutoApprove = append(a.AutoApprove, "[bad")
	assert.Len(t, a.Validate(), 1)

	l := NewLogOptions()
	assert.Empty(t, l.Validate())
	l.Level = "loud"
	l.Format = "xml"
	assert.Len(t, l.Validate(), 2)
}
