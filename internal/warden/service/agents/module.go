package agents

import (
	"context"
	"fmt"
	"io"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/repo"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/service/runtime"
	boltdbStore "github.com/kiosk404/warden/internal/warden/service/agents/store/boltdb"
	"github.com/kiosk404/warden/internal/warden/service/agents/store/inmemory"
	sqliteStore "github.com/kiosk404/warden/internal/warden/service/agents/store/sqlite"
	"github.com/kiosk404/warden/pkg/logger"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreBoltDB = "boltdb"
	StoreSQLite = "sqlite"
)

// Config holds the configuration for the Agents module.
// Follows K8S-style: Config → Complete() → New(ctx, deps).
type Config struct {
	// StoreType selects the persistence backend: "memory", "boltdb" or "sqlite".
	// Default: "memory".
	StoreType string `json:"store_type,omitempty"`

	// StorePath is the database file for the boltdb and sqlite backends.
	// Default: "data/warden.db".
	StorePath string `json:"store_path,omitempty"`

	// Policy tightens the approval requirement of tools by name.
	Policy service.ApprovalPolicy `json:"policy"`

	// StreamBuffer is the event buffer of streamed turns (default: 32).
	StreamBuffer int `json:"stream_buffer,omitempty"`
}

// CompletedConfig is the validated and completed configuration.
type CompletedConfig struct {
	*Config
}

// Complete fills defaults.
func (c *Config) Complete() CompletedConfig {
	if c.StoreType == "" {
		c.StoreType = StoreMemory
	}
	if c.StorePath == "" {
		c.StorePath = "data/warden.db"
	}
	if c.StreamBuffer <= 0 {
		c.StreamBuffer = service.DefaultStreamBuffer
	}
	return CompletedConfig{c}
}

// Dependencies holds the external modules required by the Agents module.
type Dependencies struct {
	// Runtime is the LLM backend adapter.
	Runtime runtime.Adapter
	// Publisher receives domain events after every persisted change.
	// Defaults to a LogPublisher.
	Publisher service.EventPublisher
}

// Module is the top-level Agents module.
//
// It exposes:
//   - Agents: turn execution, resume and conversation lookup
//   - Approvals: human decisions on pending tool calls
//   - Repo: direct access to the conversation store
type Module struct {
	Agents    service.AgentService
	Approvals service.ApprovalService
	Repo      repo.ConversationRepository
	closer    io.Closer // nil for the memory store
}

// Close releases the store handle.
func (m *Module) Close() error {
	if m.closer != nil {
		return m.closer.Close()
	}
	return nil
}

// New creates and initializes the Agents module from a completed config.
func (c CompletedConfig) New(_ context.Context, deps Dependencies) (*Module, error) {
	logger.Info("[Agents] creating Agents module...")

	if deps.Runtime == nil {
		return nil, fmt.Errorf("runtime adapter dependency is required")
	}
	if errs := c.Policy.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid approval policy: %v", errs)
	}

	store, closer, err := openStore(c.StoreType, c.StorePath)
	if err != nil {
		return nil, err
	}

	publisher := deps.Publisher
	if publisher == nil {
		publisher = service.NewLogPublisher()
	}

	agents := service.NewAgentService(service.AgentServiceComponents{
		Repo:         store,
		Runtime:      deps.Runtime,
		Publisher:    publisher,
		Policy:       &c.Policy,
		StreamBuffer: c.StreamBuffer,
	})
	approvals := service.NewApprovalService(store, publisher)

	logger.Info("[Agents] Agents module initialized (store=%s, runtime=%s, require_approval=%v)",
		c.StoreType, deps.Runtime.Name(), c.Policy.RequireApproval)

	return &Module{
		Agents:    agents,
		Approvals: approvals,
		Repo:      store,
		closer:    closer,
	}, nil
}

func openStore(storeType, path string) (repo.ConversationRepository, io.Closer, error) {
	switch storeType {
	case StoreBoltDB:
		db, err := boltdbStore.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open boltdb at %s: %w", path, err)
		}
		logger.Info("[Agents] using BoltDB store at %s", path)
		return boltdbStore.NewConversationStore(db), db, nil
	case StoreSQLite:
		store, err := sqliteStore.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite at %s: %w", path, err)
		}
		logger.Info("[Agents] using SQLite store at %s", path)
		return store, store, nil
	case StoreMemory:
		logger.Info("[Agents] using in-memory store")
		return inmemory.NewConversationStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store type %q", storeType)
	}
}
