package database

import (
	"context"
	"fmt"
)

// Chat is a Telegram chat the bot has seen
type Chat struct {
	ID    int64
	Title string
	Type  string
}

// UpsertChat remembers a chat or refreshes its title
func (db *DB) UpsertChat(ctx context.Context, c Chat) error {
	query := `
	INSERT INTO chats (chat_id, title, chat_type, updated_at)
	VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(chat_id) DO UPDATE SET title = excluded.title, chat_type = excluded.chat_type, updated_at = CURRENT_TIMESTAMP;`

	if _, err := db.ExecContext(ctx, query, c.ID, c.Title, c.Type); err != nil {
		return fmt.Errorf("failed to upsert chat %d: %w", c.ID, err)
	}
	return nil
}

// DeleteChat forgets a chat, e.g. after the bot was removed from it
func (db *DB) DeleteChat(ctx context.Context, chatID int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM chats WHERE chat_id = ?;`, chatID); err != nil {
		return fmt.Errorf("failed to delete chat %d: %w", chatID, err)
	}
	return nil
}

// ListChats returns every known chat ordered by id
func (db *DB) ListChats(ctx context.Context) ([]Chat, error) {
	rows, err := db.QueryContext(ctx, `SELECT chat_id, title, chat_type FROM chats ORDER BY chat_id;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.Title, &c.Type); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}
