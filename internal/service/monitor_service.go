package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/mcq-exam/internal/config"
	"github.com/stemsi/mcq-exam/internal/model"
)

// MonitorPublisher broadcasts live events to admins watching an exam.
type MonitorPublisher interface {
	Publish(ctx context.Context, examID uuid.UUID, ev model.MonitorEvent) error
}

// RedisMonitor publishes monitor events on the exam's pub/sub channel.
type RedisMonitor struct {
	rdb *redis.Client
}

// NewRedisMonitor creates a RedisMonitor.
func NewRedisMonitor(rdb *redis.Client) *RedisMonitor {
	return &RedisMonitor{rdb: rdb}
}

func (m *RedisMonitor) Publish(ctx context.Context, examID uuid.UUID, ev model.MonitorEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal monitor event: %w", err)
	}
	return m.rdb.Publish(ctx, config.CacheKey.ExamMonitorChannel(examID.String()), raw).Err()
}

// Subscription is a live feed of raw monitor event payloads.
type Subscription interface {
	Channel() <-chan *redis.Message
	Close() error
}

// MonitorSubscriber attaches to an exam's monitor feed.
type MonitorSubscriber interface {
	Subscribe(ctx context.Context, examID uuid.UUID) Subscription
}

type redisSubscription struct {
	ps *redis.PubSub
}

func (s redisSubscription) Channel() <-chan *redis.Message { return s.ps.Channel() }
func (s redisSubscription) Close() error                   { return s.ps.Close() }

// Subscribe attaches to the exam's channel. The caller closes the
// subscription.
func (m *RedisMonitor) Subscribe(ctx context.Context, examID uuid.UUID) Subscription {
	return redisSubscription{ps: m.rdb.Subscribe(ctx, config.CacheKey.ExamMonitorChannel(examID.String()))}
}

// MonitorService builds the snapshot shown when an admin opens the live
// monitor.
type MonitorService struct {
	results   ResultStore
	integrity IntegrityCounter
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(results ResultStore, integrity IntegrityCounter) *MonitorService {
	return &MonitorService{results: results, integrity: integrity}
}

// MonitorSnapshot holds submissions so far and warning counts per roll.
type MonitorSnapshot struct {
	Results       []model.Result   `json:"results"`
	WarningCounts map[string]int64 `json:"warning_counts"`
	TotalWarnings int64            `json:"total_warnings"`
}

// Snapshot fetches results and warning counts concurrently. Warning counts
// are best-effort.
func (s *MonitorService) Snapshot(ctx context.Context, examID uuid.UUID) (*MonitorSnapshot, error) {
	var (
		results    []model.Result
		counts     map[string]int64
		resultsErr error
		countsErr  error
		wg         sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		results, resultsErr = s.results.ListByExam(ctx, examID)
	}()
	go func() {
		defer wg.Done()
		counts, countsErr = s.integrity.CountByStudent(ctx, examID)
	}()
	wg.Wait()

	if resultsErr != nil {
		return nil, fmt.Errorf("list results: %w", resultsErr)
	}

	snap := &MonitorSnapshot{
		Results:       results,
		WarningCounts: map[string]int64{},
	}
	if snap.Results == nil {
		snap.Results = []model.Result{}
	}
	if countsErr == nil && counts != nil {
		snap.WarningCounts = counts
		for _, n := range counts {
			snap.TotalWarnings += n
		}
	}
	return snap, nil
}
