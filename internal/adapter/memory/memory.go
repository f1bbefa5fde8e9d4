// Package memory implements in-memory repositories for development and testing.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"pouchlog/internal/domain"
)

// DB implements the domain repositories in memory.
type DB struct {
	mu       sync.Mutex
	events   []domain.DoseEvent
	users    []*domain.User
	sessions map[string]*domain.Session

	userIDCounter int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions: make(map[string]*domain.Session),
	}
}

// Ensure interfaces are met.
var _ domain.EventRepository = (*DB)(nil)
var _ domain.UserRepository = (*DB)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)
var _ domain.SnapshotStore = (*SnapshotStore)(nil)

// --- EventRepository ---

// AddEvent stores a dose event.
func (db *DB) AddEvent(ctx context.Context, userID int64, e domain.DoseEvent) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.events {
		if existing.ID == e.ID {
			return errors.New("event already exists")
		}
	}
	e.UserID = userID
	e.StartTime = e.StartTime.UTC()
	if e.EndTime != nil {
		t := e.EndTime.UTC()
		e.EndTime = &t
	}
	db.events = append(db.events, e)
	return nil
}

// CloseEvent sets the end time on an open event; returns false when the
// event is missing or already closed.
func (db *DB) CloseEvent(ctx context.Context, userID int64, id string, endTime time.Time) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := range db.events {
		if db.events[i].ID == id && db.events[i].UserID == userID {
			if db.events[i].EndTime != nil {
				return false, nil
			}
			t := endTime.UTC()
			db.events[i].EndTime = &t
			return true, nil
		}
	}
	return false, nil
}

// ListEventsSince returns events starting at or after since, ascending.
func (db *DB) ListEventsSince(ctx context.Context, userID int64, since time.Time) ([]domain.DoseEvent, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []domain.DoseEvent
	for _, e := range db.events {
		if e.UserID == userID && !e.StartTime.Before(since.UTC()) {
			out = append(out, e)
		}
	}
	sortByStart(out)
	return out, nil
}

// ListOpenEvents returns events without an end time, ascending.
func (db *DB) ListOpenEvents(ctx context.Context, userID int64) ([]domain.DoseEvent, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []domain.DoseEvent
	for _, e := range db.events {
		if e.UserID == userID && e.EndTime == nil {
			out = append(out, e)
		}
	}
	sortByStart(out)
	return out, nil
}

// ListRecentEvents returns up to limit most recent events, ascending.
func (db *DB) ListRecentEvents(ctx context.Context, userID int64, limit int) ([]domain.DoseEvent, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []domain.DoseEvent
	for _, e := range db.events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sortByStart(out)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func sortByStart(events []domain.DoseEvent) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
}

// --- UserRepository ---

// GetByUsername retrieves a user by username.
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

// GetByID retrieves a user by ID.
func (db *DB) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

// Create creates a new user.
func (db *DB) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			return nil, errors.New("user already exists")
		}
	}

	db.userIDCounter++
	u := &domain.User{
		ID:           db.userIDCounter,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	db.users = append(db.users, u)
	return u, nil
}

// Count returns the number of users.
func (db *DB) Count(ctx context.Context) (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.users), nil
}

// --- SessionRepository ---

// SessionRepo implements session operations on DB.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo wraps a DB as a SessionRepository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[token] = &domain.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sessions[token]
	if !ok {
		return nil, nil
	}
	return s, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := time.Now()
	for token, s := range r.db.sessions {
		if now.After(s.ExpiresAt) {
			delete(r.db.sessions, token)
		}
	}
	return nil
}

// --- SnapshotStore ---

// SnapshotStore is an in-memory snapshot cache.
type SnapshotStore struct {
	mu  sync.Mutex
	rec *domain.SnapshotRecord
}

// NewSnapshotStore creates an empty in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// WriteSnapshot overwrites the cached record.
func (s *SnapshotStore) WriteSnapshot(rec domain.SnapshotRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = &rec
	return nil
}

// ReadSnapshot returns the latest record, or nil when none was written.
func (s *SnapshotStore) ReadSnapshot() (*domain.SnapshotRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil, nil
	}
	rec := *s.rec
	return &rec, nil
}
