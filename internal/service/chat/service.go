package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/aria/backend/internal/model/chat"
)

var ErrUserRequired = errors.New("user id is required")

// Service is an in-memory turn and user store. It backs the chattester CLI
// and tests; the server uses the SQLite store.
type Service struct {
	mu    sync.RWMutex
	turns map[string][]chat.Turn
	users map[string]chat.User
}

// NewService bootstraps an empty in-memory store.
func NewService() *Service {
	return &Service{
		turns: make(map[string][]chat.Turn),
		users: make(map[string]chat.User),
	}
}

// SaveTurn appends a turn to the user's history.
func (s *Service) SaveTurn(_ context.Context, turn chat.Turn) error {
	if turn.UserID == "" {
		return ErrUserRequired
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	s.turns[turn.UserID] = append(s.turns[turn.UserID], turn)
	s.mu.Unlock()
	return nil
}

// LoadRecentTurns returns at most limit of the user's latest turns in the
// requested order. A non-positive limit returns everything.
func (s *Service) LoadRecentTurns(_ context.Context, userID string, limit int, order chat.Order) ([]chat.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.turns[userID]
	start := 0
	if limit > 0 && len(turns) > limit {
		start = len(turns) - limit
	}

	copied := make([]chat.Turn, len(turns)-start)
	copy(copied, turns[start:])
	if order == chat.NewestFirst {
		for i, j := 0, len(copied)-1; i < j; i, j = i+1, j-1 {
			copied[i], copied[j] = copied[j], copied[i]
		}
	}
	return copied, nil
}

// CreateUser stores u, rejecting a taken username or email.
func (s *Service) CreateUser(_ context.Context, u chat.User) (chat.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return chat.User{}, chat.ErrUserExists
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = u
	return u, nil
}

// FindUserByUsername looks a user up case-insensitively.
func (s *Service) FindUserByUsername(_ context.Context, username string) (chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return chat.User{}, chat.ErrUserNotFound
}

// FindUserByID looks a user up by id.
func (s *Service) FindUserByID(_ context.Context, id string) (chat.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return chat.User{}, chat.ErrUserNotFound
	}
	return u, nil
}
