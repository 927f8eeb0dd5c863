package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kiosk404/warden/internal/warden/service/agents/domain/entity"
	"github.com/kiosk404/warden/internal/warden/service/agents/domain/repo"
	"github.com/kiosk404/warden/internal/warden/service/agents/pkg/errno"
	"github.com/kiosk404/warden/pkg/logger"
	"github.com/kiosk404/warden/pkg/utils/json"
	_ "github.com/mattn/go-sqlite3" // Register SQLite3 driver
)

var _ repo.ConversationRepository = (*ConversationStore)(nil)

// timeLayout is fixed-width so that stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id          TEXT PRIMARY KEY,
	data        TEXT NOT NULL,
	has_pending INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_updated_at ON conversations(updated_at);
`

// ConversationStore implements repo.ConversationRepository on SQLite.
// The aggregate is stored as a JSON document; has_pending and the
// timestamps are denormalized for listing.
type ConversationStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*ConversationStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection serializes writers and keeps GetOrCreate atomic.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("[Agents] sqlite conversation store initialized at %s", path)
	return &ConversationStore{db: db}, nil
}

// Close closes the database handle.
func (s *ConversationStore) Close() error {
	return s.db.Close()
}

func (s *ConversationStore) Get(ctx context.Context, id entity.ConversationID) (*entity.Conversation, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM conversations WHERE id = ?`, string(id)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errno.ConversationNotFound(string(id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation %q: %w", id, err)
	}
	return decode(data)
}

func (s *ConversationStore) Save(ctx context.Context, conv *entity.Conversation) error {
	data, err := json.MarshalString(conv)
	if err != nil {
		return fmt.Errorf("marshaling conversation %q: %w", conv.ID(), err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, data, has_pending, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			data = excluded.data,
			has_pending = excluded.has_pending,
			updated_at = excluded.updated_at`,
		string(conv.ID()), data, boolToInt(conv.HasPendingApprovals()),
		conv.CreatedAt().Format(timeLayout), conv.UpdatedAt().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("saving conversation %q: %w", conv.ID(), err)
	}
	return nil
}

func (s *ConversationStore) Exists(ctx context.Context, id entity.ConversationID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM conversations WHERE id = ?`, string(id)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking conversation %q: %w", id, err)
	}
	return n > 0, nil
}

func (s *ConversationStore) Delete(ctx context.Context, id entity.ConversationID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, string(id)); err != nil {
		return fmt.Errorf("deleting conversation %q: %w", id, err)
	}
	return nil
}

func (s *ConversationStore) GetOrCreate(ctx context.Context, id entity.ConversationID) (*entity.Conversation, bool, error) {
	conv := entity.NewConversation(id)
	data, err := json.MarshalString(conv)
	if err != nil {
		return nil, false, fmt.Errorf("marshaling conversation %q: %w", conv.ID(), err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO conversations (id, data, has_pending, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?)`,
		string(conv.ID()), data,
		conv.CreatedAt().Format(timeLayout), conv.UpdatedAt().Format(timeLayout),
	)
	if err != nil {
		return nil, false, fmt.Errorf("inserting conversation %q: %w", conv.ID(), err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("inserting conversation %q: %w", conv.ID(), err)
	}

	if inserted == 0 {
		var existing string
		if err := tx.QueryRowContext(ctx, `SELECT data FROM conversations WHERE id = ?`, string(id)).Scan(&existing); err != nil {
			return nil, false, fmt.Errorf("querying conversation %q: %w", id, err)
		}
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("committing transaction: %w", err)
		}
		stored, err := decode(existing)
		return stored, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("committing transaction: %w", err)
	}
	return conv, true, nil
}

func (s *ConversationStore) List(ctx context.Context, limit int) ([]entity.ConversationID, error) {
	query := `SELECT id FROM conversations ORDER BY updated_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var ids []entity.ConversationID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning conversation id: %w", err)
		}
		ids = append(ids, entity.ConversationID(id))
	}
	return ids, rows.Err()
}

func decode(data string) (*entity.Conversation, error) {
	var conv entity.Conversation
	if err := json.UnmarshalString(data, &conv); err != nil {
		return nil, fmt.Errorf("unmarshaling conversation: %w", err)
	}
	return &conv, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
