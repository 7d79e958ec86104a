package chats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// pgStore is the sqlx/Postgres Store implementation. Each mutation is a
// single UPDATE statement, so concurrent writers to the same chat record
// are serialized by the database.
type pgStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open sqlx connection as a chat Store.
func NewPostgresStore(db *sqlx.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM chats WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("chats exists: %w", err)
	}
	return exists, nil
}

func (s *pgStore) Get(ctx context.Context, id int64) (*Chat, error) {
	var c Chat
	err := s.db.GetContext(ctx, &c, `
		SELECT id, name, user_id, last_command, min_amount_usd, farm_change_gap,
		       watched_address, important_events, last_farm_price,
		       last_important_event_id, created_at
		FROM chats WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chats get: %w", err)
	}
	return &c, nil
}

func (s *pgStore) Insert(ctx context.Context, c *Chat) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO chats (id, name, user_id, last_command, min_amount_usd,
		                   farm_change_gap, watched_address, important_events,
		                   last_farm_price, last_important_event_id)
		VALUES (:id, :name, :user_id, :last_command, :min_amount_usd,
		        :farm_change_gap, :watched_address, :important_events,
		        :last_farm_price, :last_important_event_id)`, c)
	if err != nil {
		return fmt.Errorf("chats insert: %w", err)
	}
	return nil
}

func (s *pgStore) All(ctx context.Context) ([]Chat, error) {
	var out []Chat
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, name, user_id, last_command, min_amount_usd, farm_change_gap,
		       watched_address, important_events, last_farm_price,
		       last_important_event_id, created_at
		FROM chats ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("chats all: %w", err)
	}
	return out, nil
}

func (s *pgStore) SetLastCommand(ctx context.Context, id int64, command string) error {
	return s.exec(ctx, id, `UPDATE chats SET last_command = $2 WHERE id = $1`, id, command)
}

func (s *pgStore) UpdateSettings(ctx context.Context, c *Chat) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE chats
		SET last_command = $2, min_amount_usd = $3, farm_change_gap = $4,
		    watched_address = $5, important_events = $6
		WHERE id = $1`,
		c.ID, c.LastCommand, c.MinAmountUSD, c.FarmChangeGap,
		c.WatchedAddress, c.ImportantEvents)
	if err != nil {
		return fmt.Errorf("chats update settings: %w", err)
	}
	return checkAffected(res)
}

func (s *pgStore) SetLastFarmPrice(ctx context.Context, id int64, price float64) error {
	return s.exec(ctx, id, `UPDATE chats SET last_farm_price = $2 WHERE id = $1`, id, price)
}

func (s *pgStore) SetLastImportantEventID(ctx context.Context, id int64, eventID string) error {
	return s.exec(ctx, id, `UPDATE chats SET last_important_event_id = $2 WHERE id = $1`, id, eventID)
}

func (s *pgStore) exec(ctx context.Context, id int64, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("chats update %d: %w", id, err)
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return nil // driver without affected-rows support; assume success
	}
	if n == 0 {
		return ErrChatNotFound
	}
	return nil
}
