package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

type KeyType interface {
	string | uuid.UUID
}

// CacheBuilder assembles a single valkey command against one key.
//
//	database.NewCacheBuilder(cache, trackID).
//		WithContext(ctx).
//		WithHash(RELATED_TRACKS_CACHE_PREFIX).
//		WithStruct(tracks).
//		WithTTL(30 * time.Minute).
//		Set()
type CacheBuilder struct {
	cache      valkey.Client
	key        string
	value      string
	ttl        time.Duration
	ctx        context.Context
	ctxTimeout time.Duration
	err        error
}

func NewCacheBuilder[K KeyType](cache valkey.Client, key K) *CacheBuilder {
	cacheBuilder := CacheBuilder{
		cache:      cache,
		ttl:        1 * time.Hour,
		ctxTimeout: 5 * time.Second,
		ctx:        context.Background(),
	}

	switch k := any(key).(type) {
	case string:
		cacheBuilder.key = k
	case uuid.UUID:
		cacheBuilder.key = k.String()
	}

	return &cacheBuilder
}

func (cb *CacheBuilder) WithStruct(value any) *CacheBuilder {
	bytes, err := json.Marshal(value)
	if err != nil {
		cb.err = fmt.Errorf("failed to marshal value to json: %w", err)
		return cb
	}

	cb.value = string(bytes)
	return cb
}

// WithHash prefixes the key as "<hash>:<key>".
func (cb *CacheBuilder) WithHash(hash string) *CacheBuilder {
	if hash != "" {
		cb.key = fmt.Sprintf("%s:%s", hash, cb.key)
	}

	return cb
}

func (cb *CacheBuilder) WithTTL(ttl time.Duration) *CacheBuilder {
	cb.ttl = ttl
	return cb
}

func (cb *CacheBuilder) WithContext(ctx context.Context) *CacheBuilder {
	cb.ctx = ctx
	return cb
}

func (cb *CacheBuilder) WithTimeout(timeout time.Duration) *CacheBuilder {
	cb.ctxTimeout = timeout
	return cb
}

func (cb *CacheBuilder) Key() string {
	return cb.key
}

func (cb *CacheBuilder) Set() error {
	if cb.err != nil {
		return cb.err
	}

	if cb.cache == nil {
		return fmt.Errorf("cache client is nil")
	}

	if cb.key == "" {
		return fmt.Errorf("key is required")
	}

	if cb.value == "" {
		return fmt.Errorf("value is required")
	}

	ctx, cancel := cb.createTimeoutContext()
	defer cancel()

	return cb.cache.Do(ctx, cb.cache.B().Set().Key(cb.key).Value(cb.value).Ex(cb.ttl).Build()).
		Error()
}

// Get unmarshals the cached value into result. A missing key is reported as
// found=false with a nil error.
func (cb *CacheBuilder) Get(result any) (bool, error) {
	if cb.err != nil {
		return false, cb.err
	}

	if cb.cache == nil {
		return false, fmt.Errorf("cache client is nil")
	}

	if cb.key == "" {
		return false, fmt.Errorf("key is required")
	}

	ctx, cancel := cb.createTimeoutContext()
	defer cancel()

	data, err := cb.cache.Do(ctx, cb.cache.B().Get().Key(cb.key).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return false, nil
		}
		return false, err
	}

	if data == "" {
		return false, nil
	}

	if err := json.Unmarshal([]byte(data), result); err != nil {
		return false, err
	}

	return true, nil
}

func (cb *CacheBuilder) Delete() error {
	if cb.err != nil {
		return cb.err
	}

	if cb.cache == nil {
		return fmt.Errorf("cache client is nil")
	}

	ctx, cancel := cb.createTimeoutContext()
	defer cancel()

	return cb.cache.Do(ctx, cb.cache.B().Del().Key(cb.key).Build()).Error()
}

func (cb *CacheBuilder) createTimeoutContext() (context.Context, context.CancelFunc) {
	if deadline, ok := cb.ctx.Deadline(); ok {
		if time.Until(deadline) < cb.ctxTimeout {
			return context.WithCancel(cb.ctx)
		}
	}
	return context.WithTimeout(cb.ctx, cb.ctxTimeout)
}
