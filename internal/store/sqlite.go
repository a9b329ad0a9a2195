// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides server-side persistence for conversations and
// credit accounts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jeranaias/lumen/internal/model"
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	title      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_owner
	ON conversations(owner_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS messages (
	seq             INTEGER PRIMARY KEY AUTOINCREMENT,
	id              TEXT NOT NULL UNIQUE,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      INTEGER NOT NULL,
	is_image        INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages(conversation_id, seq);

CREATE TABLE IF NOT EXISTS credits (
	user_id TEXT PRIMARY KEY,
	balance INTEGER NOT NULL
);
`

// =============================================================================
// SQLITE STORE
// =============================================================================

// SQLiteStore is the durable Store implementation backing lumend.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) the database at path and applies
// the schema. Use ":memory:" for an ephemeral database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The sqlite driver serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent transactions.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// Create makes an empty conversation owned by ownerID.
func (s *SQLiteStore) Create(ctx context.Context, ownerID string) (*model.Conversation, error) {
	conv := model.NewConversation(ownerID)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, owner_id, title, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		conv.ID, conv.OwnerID, conv.Title,
		conv.CreatedAt.UnixMilli(), conv.UpdatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return conv, nil
}

// Get returns one conversation with its full message log.
func (s *SQLiteStore) Get(ctx context.Context, ownerID, id string) (*model.Conversation, error) {
	conv := &model.Conversation{ID: id, OwnerID: ownerID}

	var createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT title, created_at, updated_at
		 FROM conversations WHERE id = ? AND owner_id = ?`,
		id, ownerID).Scan(&conv.Title, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	conv.CreatedAt = time.UnixMilli(createdAt)
	conv.UpdatedAt = time.UnixMilli(updatedAt)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, created_at, is_image
		 FROM messages WHERE conversation_id = ? ORDER BY seq`,
		id)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			msgID, role, content string
			msgCreated           int64
			isImage              bool
		)
		if err := rows.Scan(&msgID, &role, &content, &msgCreated, &isImage); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		conv.Messages = append(conv.Messages, model.Message{
			ID:        model.PersistedID(msgID),
			Role:      model.Role(role),
			Content:   content,
			CreatedAt: time.UnixMilli(msgCreated),
			IsImage:   isImage,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return conv, nil
}

// List returns the owner's conversation metadata, most recently updated
// first.
func (s *SQLiteStore) List(ctx context.Context, ownerID string) ([]model.ConversationMeta, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.title, c.created_at, c.updated_at,
		        (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		 FROM conversations c
		 WHERE c.owner_id = ?
		 ORDER BY c.updated_at DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	metas := make([]model.ConversationMeta, 0)
	for rows.Next() {
		var (
			meta                 model.ConversationMeta
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&meta.ID, &meta.Title, &createdAt, &updatedAt, &meta.MessageCount); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		meta.CreatedAt = time.UnixMilli(createdAt)
		meta.UpdatedAt = time.UnixMilli(updatedAt)
		metas = append(metas, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return metas, nil
}

// Delete removes a conversation and its messages. Idempotent.
func (s *SQLiteStore) Delete(ctx context.Context, ownerID, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE id = ? AND owner_id = ?`,
		id, ownerID)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

// AppendMessage appends one message and bumps the conversation's update
// time. The first user message replaces the default title.
func (s *SQLiteStore) AppendMessage(ctx context.Context, ownerID, conversationID string, msg model.Message) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		title, err := lockConversation(ctx, tx, ownerID, conversationID)
		if err != nil {
			return err
		}
		if err := insertMessage(ctx, tx, conversationID, msg); err != nil {
			return err
		}
		return touchConversation(ctx, tx, conversationID, title, msg)
	})
}

// CommitReply atomically appends the assistant reply and debits the owner's
// balance by cost.
func (s *SQLiteStore) CommitReply(ctx context.Context, ownerID, conversationID string, reply model.Message, cost int64) (int64, error) {
	var balance int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		title, err := lockConversation(ctx, tx, ownerID, conversationID)
		if err != nil {
			return err
		}

		balance, err = accountBalance(ctx, tx, ownerID)
		if err != nil {
			return err
		}
		if balance < cost {
			return ErrInsufficientCredits
		}

		if err := insertMessage(ctx, tx, conversationID, reply); err != nil {
			return err
		}
		if err := touchConversation(ctx, tx, conversationID, title, reply); err != nil {
			return err
		}

		balance -= cost
		_, err = tx.ExecContext(ctx,
			`UPDATE credits SET balance = ? WHERE user_id = ?`,
			balance, ownerID)
		if err != nil {
			return fmt.Errorf("debit credits: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// =============================================================================
// CREDITS
// =============================================================================

// Account returns the user's credit account, seeding the default starting
// balance on first sight.
func (s *SQLiteStore) Account(ctx context.Context, userID string) (model.CreditAccount, error) {
	account := model.CreditAccount{UserID: userID}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		balance, err := accountBalance(ctx, tx, userID)
		if err != nil {
			return err
		}
		account.Balance = balance
		return nil
	})
	if err != nil {
		return model.CreditAccount{}, err
	}
	return account, nil
}

// =============================================================================
// TRANSACTION HELPERS
// =============================================================================

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// lockConversation verifies existence and ownership inside a transaction and
// returns the current title.
func lockConversation(ctx context.Context, tx *sql.Tx, ownerID, conversationID string) (string, error) {
	var title string
	err := tx.QueryRowContext(ctx,
		`SELECT title FROM conversations WHERE id = ? AND owner_id = ?`,
		conversationID, ownerID).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("check conversation: %w", err)
	}
	return title, nil
}

func insertMessage(ctx context.Context, tx *sql.Tx, conversationID string, msg model.Message) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, created_at, is_image)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID.String(), conversationID, msg.Role.String(),
		msg.Content, msg.CreatedAt.UnixMilli(), msg.IsImage)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// touchConversation bumps updated_at and, for the first user message of a
// fresh conversation, derives the title from the prompt.
func touchConversation(ctx context.Context, tx *sql.Tx, conversationID, title string, msg model.Message) error {
	if (title == "" || title == model.DefaultTitle) && msg.Role == model.RoleUser {
		title = model.TitleFromPrompt(msg.Content)
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`,
		title, time.Now().UnixMilli(), conversationID)
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// accountBalance reads the balance inside a transaction, seeding the default
// starting balance for accounts seen for the first time.
func accountBalance(ctx context.Context, tx *sql.Tx, userID string) (int64, error) {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO credits (user_id, balance) VALUES (?, ?)`,
		userID, model.DefaultStartingCredits)
	if err != nil {
		return 0, fmt.Errorf("seed credits: %w", err)
	}

	var balance int64
	err = tx.QueryRowContext(ctx,
		`SELECT balance FROM credits WHERE user_id = ?`,
		userID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}
