// Package storage is the durable history collaborator: messages and
// confirmed toggle results land here. Live dispatch never reads through
// it; the in-memory index is the dispatch source.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/parleychat/parley/internal/domain"
)

type Store struct {
	db *sql.DB
}

func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id          TEXT PRIMARY KEY,
		room_id     TEXT NOT NULL,
		author_id   TEXT NOT NULL,
		type        TEXT NOT NULL,
		content     TEXT NOT NULL,
		reply_to_id TEXT NOT NULL DEFAULT '',
		file_ref    TEXT NOT NULL DEFAULT '',
		created_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_room_time ON messages(room_id, created_at);

	CREATE TABLE IF NOT EXISTS reactions (
		message_id TEXT NOT NULL,
		emoji      TEXT NOT NULL,
		user_id    TEXT NOT NULL,
		PRIMARY KEY (message_id, emoji, user_id)
	);

	CREATE TABLE IF NOT EXISTS vote_targets (
		id      TEXT PRIMARY KEY,
		room_id TEXT NOT NULL,
		score   INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS votes (
		target_id TEXT NOT NULL REFERENCES vote_targets(id),
		user_id   TEXT NOT NULL,
		vote      TEXT NOT NULL,
		PRIMARY KEY (target_id, user_id)
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *Store) InsertMessage(ctx context.Context, m *domain.Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, room_id, author_id, type, content, reply_to_id, file_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(m.ID), string(m.RoomID), string(m.AuthorID), string(m.Type),
		m.Content, string(m.ReplyToID), m.FileRef, m.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit messages for the room, oldest first.
func (s *Store) RecentMessages(ctx context.Context, room domain.RoomID, limit int) ([]*domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, author_id, type, content, reply_to_id, file_ref, created_at
		FROM messages WHERE room_id = ?
		ORDER BY created_at DESC, id DESC LIMIT ?`, string(room), limit)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var out []*domain.Message
	for rows.Next() {
		var m domain.Message
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.RoomID, &m.AuthorID, &m.Type, &m.Content, &m.ReplyToID, &m.FileRef, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	// Query is newest-first for the LIMIT; callers want oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) MessageRoom(ctx context.Context, id domain.MessageID) (domain.RoomID, bool, error) {
	var room string
	err := s.db.QueryRowContext(ctx, `SELECT room_id FROM messages WHERE id = ?`, string(id)).Scan(&room)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolving message room: %w", err)
	}
	return domain.RoomID(room), true, nil
}

func (s *Store) SetReaction(ctx context.Context, id domain.MessageID, emoji string, user domain.UserID, reacted bool) error {
	var err error
	if reacted {
		_, err = s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO reactions (message_id, emoji, user_id) VALUES (?, ?, ?)`,
			string(id), emoji, string(user))
	} else {
		_, err = s.db.ExecContext(ctx, `
			DELETE FROM reactions WHERE message_id = ? AND emoji = ? AND user_id = ?`,
			string(id), emoji, string(user))
	}
	if err != nil {
		return fmt.Errorf("persisting reaction: %w", err)
	}
	return nil
}

// ReactionUsers returns the persisted reaction set for (message, emoji).
func (s *Store) ReactionUsers(ctx context.Context, id domain.MessageID, emoji string) ([]domain.UserID, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id FROM reactions WHERE message_id = ? AND emoji = ? ORDER BY user_id`,
		string(id), emoji)
	if err != nil {
		return nil, fmt.Errorf("querying reactions: %w", err)
	}
	defer rows.Close()

	var out []domain.UserID
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scanning reaction: %w", err)
		}
		out = append(out, domain.UserID(u))
	}
	return out, rows.Err()
}

// EnsureTarget registers a votable post or comment and the room its vote
// events broadcast to. The forum CRUD side calls this when content is
// created.
func (s *Store) EnsureTarget(ctx context.Context, id domain.TargetID, room domain.RoomID) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO vote_targets (id, room_id) VALUES (?, ?)`,
		string(id), string(room))
	if err != nil {
		return fmt.Errorf("ensuring vote target: %w", err)
	}
	return nil
}

func (s *Store) TargetRoom(ctx context.Context, id domain.TargetID) (domain.RoomID, bool, error) {
	var room string
	err := s.db.QueryRowContext(ctx, `SELECT room_id FROM vote_targets WHERE id = ?`, string(id)).Scan(&room)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolving vote target: %w", err)
	}
	return domain.RoomID(room), true, nil
}

// SetVote replaces the user's vote row and the target's aggregate score
// in one transaction, so the durable copy can never drift from itself.
func (s *Store) SetVote(ctx context.Context, id domain.TargetID, user domain.UserID, vote *domain.VoteType, score int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning vote transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if vote == nil {
		_, err = tx.ExecContext(ctx, `DELETE FROM votes WHERE target_id = ? AND user_id = ?`,
			string(id), string(user))
	} else {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO votes (target_id, user_id, vote) VALUES (?, ?, ?)
			ON CONFLICT (target_id, user_id) DO UPDATE SET vote = excluded.vote`,
			string(id), string(user), string(*vote))
	}
	if err != nil {
		return fmt.Errorf("persisting vote: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE vote_targets SET score = ? WHERE id = ?`,
		score, string(id)); err != nil {
		return fmt.Errorf("persisting vote score: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing vote: %w", err)
	}
	committed = true
	return nil
}

// TargetScore reads the persisted aggregate, for reconciliation checks.
func (s *Store) TargetScore(ctx context.Context, id domain.TargetID) (int, error) {
	var score int
	err := s.db.QueryRowContext(ctx, `SELECT score FROM vote_targets WHERE id = ?`, string(id)).Scan(&score)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading target score: %w", err)
	}
	return score, nil
}
