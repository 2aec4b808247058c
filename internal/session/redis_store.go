package session

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"studybot/internal/constant"
	"studybot/pkg/store"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the production session store: shared by all workers and
// surviving restarts. Sessions idle out after a day.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func key(userID int64) string {
	return constant.SessionKeySpace + strconv.FormatInt(userID, 10)
}

func (s *RedisStore) load(ctx context.Context, userID int64) (*store.Session, error) {
	raw, err := s.client.Get(ctx, key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return emptySession(userID), nil
	}
	if err != nil {
		return nil, err
	}

	var sess store.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		// Corrupt session data is unrecoverable; start over idle.
		return emptySession(userID), nil
	}
	if sess.Payload == nil {
		sess.Payload = map[string]string{}
	}
	return &sess, nil
}

func (s *RedisStore) save(ctx context.Context, sess *store.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key(sess.UserID), raw, constant.SessionKeyTTL).Err()
}

func (s *RedisStore) GetState(ctx context.Context, userID int64) (store.State, error) {
	sess, err := s.load(ctx, userID)
	if err != nil {
		return store.StateIdle, err
	}
	return sess.State, nil
}

func (s *RedisStore) SetState(ctx context.Context, userID int64, state store.State) error {
	sess, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	applyState(sess, state)
	return s.save(ctx, sess)
}

func (s *RedisStore) UpdatePayload(ctx context.Context, userID int64, partial map[string]string) error {
	sess, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	merge(sess, partial)
	return s.save(ctx, sess)
}

func (s *RedisStore) GetPayload(ctx context.Context, userID int64) (map[string]string, error) {
	sess, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sess.Payload, nil
}

func (s *RedisStore) Clear(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, key(userID)).Err()
}
