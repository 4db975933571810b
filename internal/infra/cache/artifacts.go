// Package cache keeps generated invitations in Redis so repeated requests
// for the same guest skip rendering.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"invitegen/internal/infra/logging"
)

const keyPrefix = "invitecache:"

const defaultTTL = time.Minute

// Artifact is the cached form of a generated invitation.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Artifacts struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewArtifacts(rdb *redis.Client, ttl time.Duration) *Artifacts {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Artifacts{rdb: rdb, ttl: ttl}
}

// Key derives the cache key from the inputs that determine an artifact.
func Key(template, name, role, background string) string {
	h := sha256.New()
	for _, part := range []string{template, name, role, background} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached artifact, or nil on a miss. Redis failures are
// logged and reported as a miss.
func (a *Artifacts) Get(ctx context.Context, key string) *Artifact {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	fields, err := a.rdb.HGetAll(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logging.Warn("Redis read failed", "error", err)
		return nil
	}
	data, ok := fields["data"]
	if !ok {
		return nil
	}

	logging.Debug("Invitation cache hit", "key", key)
	return &Artifact{
		Filename:    fields["filename"],
		ContentType: fields["content_type"],
		Data:        []byte(data),
	}
}

// Set stores the artifact with the configured TTL.
func (a *Artifacts) Set(ctx context.Context, key string, art Artifact) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	_, err := a.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key,
			"filename", art.Filename,
			"content_type", art.ContentType,
			"data", art.Data,
		)
		p.Expire(ctx, key, a.ttl)
		return nil
	})
	if err != nil {
		logging.Warn("Redis write failed", "error", err)
	}
}
