package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/aria/backend/internal/model/chat"
)

// Store implements turn and user persistence on a migrated database.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// SaveTurn inserts an immutable turn.
func (s *Store) SaveTurn(ctx context.Context, t chat.Turn) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	if t.Sentiment == "" {
		t.Sentiment = "neutral"
	}

	var confidence sql.NullFloat64
	if t.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *t.Confidence, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (id, user_id, speaker, text, created_at, sentiment, mood, intent, confidence, provider)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, string(t.Speaker), t.Text, t.Timestamp.UnixNano(), t.Sentiment,
		nullString(t.Mood), nullString(t.Intent), confidence, nullString(t.Provider),
	)
	if err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

// LoadRecentTurns returns the user's latest turns, at most limit of them
// (all when limit <= 0), in the requested order.
func (s *Store) LoadRecentTurns(ctx context.Context, userID string, limit int, order chat.Order) ([]chat.Turn, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, speaker, text, created_at, sentiment, mood, intent, confidence, provider
		FROM turns
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	defer rows.Close()

	var turns []chat.Turn
	for rows.Next() {
		var (
			t                      chat.Turn
			speaker                string
			createdAt              int64
			mood, intent, provider sql.NullString
			confidence             sql.NullFloat64
		)
		if err := rows.Scan(&t.ID, &t.UserID, &speaker, &t.Text, &createdAt, &t.Sentiment, &mood, &intent, &confidence, &provider); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Speaker = chat.Speaker(speaker)
		t.Timestamp = time.Unix(0, createdAt).UTC()
		t.Mood = mood.String
		t.Intent = intent.String
		t.Provider = provider.String
		if confidence.Valid {
			c := confidence.Float64
			t.Confidence = &c
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	if order == chat.OldestFirst {
		for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
			turns[i], turns[j] = turns[j], turns[i]
		}
	}
	return turns, nil
}

// CreateUser inserts u; a duplicate username or email is ErrUserExists.
func (s *Store) CreateUser(ctx context.Context, u chat.User) (chat.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt.UnixNano(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return chat.User{}, chat.ErrUserExists
		}
		return chat.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// FindUserByUsername matches case-insensitively.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (chat.User, error) {
	return s.findUser(ctx, "username = ?", username)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (chat.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *Store) findUser(ctx context.Context, where string, arg any) (chat.User, error) {
	var (
		u         chat.User
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, created_at FROM users WHERE `+where, arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.User{}, chat.ErrUserNotFound
	}
	if err != nil {
		return chat.User{}, fmt.Errorf("find user: %w", err)
	}
	u.CreatedAt = time.Unix(0, createdAt).UTC()
	return u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
