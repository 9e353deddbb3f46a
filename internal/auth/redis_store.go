package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/franciscosanchezn/gin-entitlement-auth/internal/models"
	"github.com/redis/go-redis/v9"
)

const DefaultCodeKeyPrefix = "oauth:code:"

// removeCodeScript deletes the code only when it belongs to the given client.
var removeCodeScript = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return 0
end
if cjson.decode(data).client_id ~= ARGV[1] then
  return 0
end
return redis.call('DEL', KEYS[1])
`)

// RedisCodeStore keeps authorization codes in redis with a TTL matching their expiry.
type RedisCodeStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedisCodeStore(client redis.UniversalClient, keyPrefix string) *RedisCodeStore {
	if keyPrefix == "" {
		keyPrefix = DefaultCodeKeyPrefix
	}
	return &RedisCodeStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisCodeStore) CreateCode(ctx context.Context, code *models.OAuthCode) error {
	data, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("failed to marshal authorization code: %w", err)
	}

	ttl := time.Until(code.ExpiresAt)
	if ttl <= 0 {
		return errors.New("authorization code already expired")
	}

	ok, err := s.client.SetNX(ctx, s.key(code.Code), data, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("authorization code already exists")
	}
	return nil
}

func (s *RedisCodeStore) GetCode(ctx context.Context, code, clientID string) (*models.OAuthCode, error) {
	data, err := s.client.Get(ctx, s.key(code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var oauthCode models.OAuthCode
	if err := json.Unmarshal(data, &oauthCode); err != nil {
		return nil, fmt.Errorf("failed to unmarshal authorization code: %w", err)
	}
	if oauthCode.ClientID != clientID {
		return nil, ErrNotFound
	}
	return &oauthCode, nil
}

func (s *RedisCodeStore) RemoveCode(ctx context.Context, code, clientID string) (bool, error) {
	removed, err := removeCodeScript.Run(ctx, s.client, []string{s.key(code)}, clientID).Int()
	if err != nil {
		return false, err
	}
	return removed == 1, nil
}

func (s *RedisCodeStore) key(code string) string {
	return s.keyPrefix + code
}
