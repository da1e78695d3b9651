package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// RefreshStore keeps single-use refresh tokens in redis. Only the SHA-256 of
// a token is stored.
type RefreshStore struct {
	client redis.Cmdable
}

func NewRefreshStore(client redis.Cmdable) *RefreshStore {
	return &RefreshStore{client: client}
}

func GenerateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *RefreshStore) Save(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	key := tokenKey(token)
	userKey := userTokensKey(userID)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, userID.String(), ttl)
	pipe.SAdd(ctx, userKey, key)
	pipe.Expire(ctx, userKey, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// Consume returns the owner of token and deletes it atomically.
func (s *RefreshStore) Consume(ctx context.Context, token string) (uuid.UUID, error) {
	key := tokenKey(token)
	value, err := s.client.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, ErrRefreshTokenNotFound
	}
	if err != nil {
		return uuid.Nil, err
	}

	userID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, ErrRefreshTokenNotFound
	}
	_ = s.client.SRem(ctx, userTokensKey(userID), key).Err()
	return userID, nil
}

func (s *RefreshStore) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, tokenKey(token)).Err()
}

func (s *RefreshStore) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	userKey := userTokensKey(userID)
	keys, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	keys = append(keys, userKey)
	return s.client.Del(ctx, keys...).Err()
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "refresh:" + hex.EncodeToString(sum[:])
}

func userTokensKey(userID uuid.UUID) string {
	return "refresh:user:" + userID.String()
}
