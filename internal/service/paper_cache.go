package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/mcq-exam/internal/config"
	"github.com/stemsi/mcq-exam/internal/model"
)

// ErrCacheMiss is returned by PaperCache.Get when nothing is cached.
var ErrCacheMiss = errors.New("paper not cached")

// PaperCache stores the student-facing exam paper. It never holds answer keys.
type PaperCache interface {
	Get(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error)
	Set(ctx context.Context, paper *model.ExamPaper) error
	Invalidate(ctx context.Context, examID uuid.UUID) error
}

// RedisPaperCache keeps papers under exam:{id}:paper with a TTL.
type RedisPaperCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisPaperCache creates a RedisPaperCache. A zero ttl keeps entries
// until they are invalidated.
func NewRedisPaperCache(rdb *redis.Client, ttl time.Duration) *RedisPaperCache {
	return &RedisPaperCache{rdb: rdb, ttl: ttl}
}

func (c *RedisPaperCache) Get(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.ExamPaperKey(examID.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get paper: %w", err)
	}

	var paper model.ExamPaper
	if err := json.Unmarshal(raw, &paper); err != nil {
		return nil, fmt.Errorf("decode paper: %w", err)
	}
	return &paper, nil
}

func (c *RedisPaperCache) Set(ctx context.Context, paper *model.ExamPaper) error {
	raw, err := json.Marshal(paper)
	if err != nil {
		return fmt.Errorf("marshal paper: %w", err)
	}
	return c.rdb.Set(ctx, config.CacheKey.ExamPaperKey(paper.ExamID.String()), raw, c.ttl).Err()
}

func (c *RedisPaperCache) Invalidate(ctx context.Context, examID uuid.UUID) error {
	return c.rdb.Del(ctx, config.CacheKey.ExamPaperKey(examID.String())).Err()
}
