package memory

import (
	"context"
	"sync"
	"time"

	"clinic_booking_bot/internal/dialogue"
	"clinic_booking_bot/internal/session"
	"clinic_booking_bot/pkg/metrics"
)

type entry struct {
	state     dialogue.State
	expiresAt time.Time
}

// Store хранилище сессий в памяти процесса
type Store struct {
	mu       sync.Mutex
	sessions map[int64]entry
	ttl      time.Duration
	now      func() time.Time
}

var _ session.Store = (*Store)(nil)

// New создает хранилище; ttl <= 0 означает session.DefaultTTL
func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return &Store{
		sessions: make(map[int64]entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get возвращает копию сессии
func (s *Store) Get(ctx context.Context, chatID int64) (*dialogue.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[chatID]
	if !ok {
		return nil, nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.sessions, chatID)
		metrics.ActiveSessions.Set(float64(len(s.sessions)))
		return nil, nil
	}

	st := e.state
	st.Slots = append([]int(nil), e.state.Slots...)
	if e.state.Hour != nil {
		h := *e.state.Hour
		st.Hour = &h
	}
	return &st, nil
}

// Put сохраняет копию сессии и продлевает срок ее жизни
func (s *Store) Put(ctx context.Context, chatID int64, st *dialogue.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *st
	cp.Slots = append([]int(nil), st.Slots...)
	if st.Hour != nil {
		h := *st.Hour
		cp.Hour = &h
	}
	s.sessions[chatID] = entry{state: cp, expiresAt: s.now().Add(s.ttl)}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return nil
}

// Delete удаляет сессию чата
func (s *Store) Delete(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	return nil
}

// Len возвращает количество хранимых сессий, включая истекшие
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }
