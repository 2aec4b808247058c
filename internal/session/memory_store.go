package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"studybot/internal/constant"
	"studybot/pkg/store"

	"github.com/patrickmn/go-cache"
)

// MemoryStore backs sessions with an in-process cache. Single-worker
// deployments and tests use it; it does not survive restarts.
type MemoryStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: cache.New(constant.SessionKeyTTL, 10*time.Minute),
	}
}

func (s *MemoryStore) load(userID int64) *store.Session {
	if x, found := s.cache.Get(strconv.FormatInt(userID, 10)); found {
		return x.(*store.Session)
	}
	return emptySession(userID)
}

func (s *MemoryStore) save(sess *store.Session) {
	s.cache.Set(strconv.FormatInt(sess.UserID, 10), sess, cache.DefaultExpiration)
}

func (s *MemoryStore) GetState(_ context.Context, userID int64) (store.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(userID).State, nil
}

func (s *MemoryStore) SetState(_ context.Context, userID int64, state store.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.load(userID)
	applyState(sess, state)
	s.save(sess)
	return nil
}

func (s *MemoryStore) UpdatePayload(_ context.Context, userID int64, partial map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.load(userID)
	merge(sess, partial)
	s.save(sess)
	return nil
}

func (s *MemoryStore) GetPayload(_ context.Context, userID int64) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.load(userID)
	out := make(map[string]string, len(sess.Payload))
	for k, v := range sess.Payload {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(strconv.FormatInt(userID, 10))
	return nil
}
