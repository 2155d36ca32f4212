// Copyright (c) 2026 Tikra. All rights reserved.

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tikra-app/tikra/internal/platform/constants"
)

// # Redis Session Store

// RedisSessionStore implements SessionStore on the shared Session Store.
//
// # Key Layout
//
//	auth:session:{sid}       -> JSON Session, idle TTL
//	auth:session_user:{uid}  -> SET of session IDs
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore creates a Redis-backed SessionStore.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

/*
Create persists a session record with an idle TTL and indexes it by user.

Parameters:
  - context: context.Context
  - session: *Session
  - ttl: time.Duration

Returns:
  - error: Storage failures
*/
func (store *RedisSessionStore) Create(context context.Context, session *Session, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redis_session_marshal_failed: %w", err)
	}

	key := constants.RedisPrefixSession + session.ID
	indexKey := constants.RedisPrefixSessionUser + session.UserID

	pipe := store.client.TxPipeline()
	pipe.Set(context, key, payload, ttl)
	pipe.SAdd(context, indexKey, session.ID)
	// The index must outlive every member; it is pruned lazily on DeleteByUser.
	pipe.Expire(context, indexKey, ttl)

	if _, err := pipe.Exec(context); err != nil {
		return fmt.Errorf("redis_session_create_failed: %w", err)
	}

	return nil
}

/*
Get returns the session record, or nil when it expired or never existed.

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - *Session: Hydrated record, nil when absent
  - error: Storage failures
*/
func (store *RedisSessionStore) Get(context context.Context, sessionID string) (*Session, error) {
	raw, err := store.client.Get(context, constants.RedisPrefixSession+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis_session_get_failed: %w", err)
	}

	session := &Session{}
	if err := json.Unmarshal(raw, session); err != nil {
		return nil, fmt.Errorf("redis_session_unmarshal_failed: %w", err)
	}

	return session, nil
}

/*
Touch bumps the session's last-activity time and pushes its TTL forward.

Parameters:
  - context: context.Context
  - sessionID: string
  - ttl: time.Duration

Returns:
  - bool: false when the session no longer exists
  - error: Storage failures
*/
func (store *RedisSessionStore) Touch(context context.Context, sessionID string, ttl time.Duration) (bool, error) {
	session, err := store.Get(context, sessionID)
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, nil
	}

	session.LastActivity = time.Now()
	if err := store.Create(context, session, ttl); err != nil {
		return false, err
	}

	return true, nil
}

/*
Delete removes a single session. Missing records are not an error.

Parameters:
  - context: context.Context
  - sessionID: string

Returns:
  - error: Storage failures
*/
func (store *RedisSessionStore) Delete(context context.Context, sessionID string) error {
	session, err := store.Get(context, sessionID)
	if err != nil {
		return err
	}

	pipe := store.client.TxPipeline()
	pipe.Del(context, constants.RedisPrefixSession+sessionID)
	if session != nil {
		pipe.SRem(context, constants.RedisPrefixSessionUser+session.UserID, sessionID)
	}

	if _, err := pipe.Exec(context); err != nil {
		return fmt.Errorf("redis_session_delete_failed: %w", err)
	}

	return nil
}

/*
DeleteByUser removes every session belonging to the user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Storage failures
*/
func (store *RedisSessionStore) DeleteByUser(context context.Context, userID string) error {
	indexKey := constants.RedisPrefixSessionUser + userID

	sessionIDs, err := store.client.SMembers(context, indexKey).Result()
	if err != nil {
		return fmt.Errorf("redis_session_index_read_failed: %w", err)
	}

	pipe := store.client.TxPipeline()
	for _, sessionID := range sessionIDs {
		pipe.Del(context, constants.RedisPrefixSession+sessionID)
	}
	pipe.Del(context, indexKey)

	if _, err := pipe.Exec(context); err != nil {
		return fmt.Errorf("redis_session_delete_by_user_failed: %w", err)
	}

	return nil
}

// # Redis Refresh Token Store

// RedisRefreshStore implements RefreshTokenStore on the shared Session Store.
//
// # Key Layout
//
//	auth:refresh:{jti}       -> JSON RefreshRecord, absolute TTL
//	auth:refresh_user:{uid}  -> SET of token IDs
type RedisRefreshStore struct {
	client *redis.Client
}

// NewRedisRefreshStore creates a Redis-backed RefreshTokenStore.
func NewRedisRefreshStore(client *redis.Client) *RedisRefreshStore {
	return &RedisRefreshStore{client: client}
}

/*
Store registers a refresh token ID for a user with an absolute TTL.

Parameters:
  - context: context.Context
  - tokenID: string
  - record: RefreshRecord
  - ttl: time.Duration

Returns:
  - error: Storage failures
*/
func (store *RedisRefreshStore) Store(context context.Context, tokenID string, record RefreshRecord, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("redis_refresh_marshal_failed: %w", err)
	}

	indexKey := constants.RedisPrefixRefreshUser + record.UserID

	pipe := store.client.TxPipeline()
	pipe.Set(context, constants.RedisPrefixRefresh+tokenID, payload, ttl)
	pipe.SAdd(context, indexKey, tokenID)
	pipe.Expire(context, indexKey, ttl)

	if _, err := pipe.Exec(context); err != nil {
		return fmt.Errorf("redis_refresh_store_failed: %w", err)
	}

	return nil
}

/*
Consume atomically removes and returns the record for a token ID.

Description: GETDEL guarantees that two concurrent consumers of the same
token ID observe exactly one success — the second sees an absent key, which
the service treats as a replay signal.

Parameters:
  - context: context.Context
  - tokenID: string

Returns:
  - *RefreshRecord: The stored record
  - bool: false when the token was already consumed or expired
  - error: Storage failures
*/
func (store *RedisRefreshStore) Consume(context context.Context, tokenID string) (*RefreshRecord, bool, error) {
	raw, err := store.client.GetDel(context, constants.RedisPrefixRefresh+tokenID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis_refresh_consume_failed: %w", err)
	}

	record := &RefreshRecord{}
	if err := json.Unmarshal(raw, record); err != nil {
		return nil, false, fmt.Errorf("redis_refresh_unmarshal_failed: %w", err)
	}

	_ = store.client.SRem(context, constants.RedisPrefixRefreshUser+record.UserID, tokenID).Err()

	return record, true, nil
}

/*
Revoke removes a single refresh token without consuming it.

Parameters:
  - context: context.Context
  - tokenID: string
  - userID: string

Returns:
  - error: Storage failures
*/
func (store *RedisRefreshStore) Revoke(context context.Context, tokenID, userID string) error {
	pipe := store.client.TxPipeline()
	pipe.Del(context, constants.RedisPrefixRefresh+tokenID)
	pipe.SRem(context, constants.RedisPrefixRefreshUser+userID, tokenID)

	if _, err := pipe.Exec(context); err != nil {
		return fmt.Errorf("redis_refresh_revoke_failed: %w", err)
	}

	return nil
}

/*
RevokeAllForUser removes every outstanding refresh token for the user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Storage failures
*/
func (store *RedisRefreshStore) RevokeAllForUser(context context.Context, userID string) error {
	indexKey := constants.RedisPrefixRefreshUser + userID

	tokenIDs, err := store.client.SMembers(context, indexKey).Result()
	if err != nil {
		return fmt.Errorf("redis_refresh_index_read_failed: %w", err)
	}

	pipe := store.client.TxPipeline()
	for _, tokenID := range tokenIDs {
		pipe.Del(context, constants.RedisPrefixRefresh+tokenID)
	}
	pipe.Del(context, indexKey)

	if _, err := pipe.Exec(context); err != nil {
		return fmt.Errorf("redis_refresh_revoke_all_failed: %w", err)
	}

	return nil
}
