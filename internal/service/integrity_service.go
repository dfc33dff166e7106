package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/mcq-exam/internal/config"
	"github.com/stemsi/mcq-exam/internal/model"
)

// ErrInvalidSource is returned for a warning with an unknown source.
var ErrInvalidSource = errors.New("unknown integrity source")

// IntegrityQueue buffers integrity events for the persistence worker.
type IntegrityQueue interface {
	Enqueue(ctx context.Context, ev model.IntegrityEvent) error
}

// RedisIntegrityQueue pushes events onto the persist_integrity_queue list.
type RedisIntegrityQueue struct {
	rdb *redis.Client
}

// NewRedisIntegrityQueue creates a RedisIntegrityQueue.
func NewRedisIntegrityQueue(rdb *redis.Client) *RedisIntegrityQueue {
	return &RedisIntegrityQueue{rdb: rdb}
}

func (q *RedisIntegrityQueue) Enqueue(ctx context.Context, ev model.IntegrityEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal integrity event: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistIntegrityQueue, raw).Err()
}

// IntegrityService records client-reported warnings. They are advisory and
// never influence scoring.
type IntegrityService struct {
	queue   IntegrityQueue
	monitor MonitorPublisher
	now     func() time.Time
	log     zerolog.Logger
}

// NewIntegrityService creates a new IntegrityService.
func NewIntegrityService(queue IntegrityQueue, monitor MonitorPublisher, log zerolog.Logger) *IntegrityService {
	return &IntegrityService{
		queue:   queue,
		monitor: monitor,
		now:     time.Now,
		log:     log.With().Str("component", "integrity_service").Logger(),
	}
}

// Joined announces a student attaching to the integrity stream.
func (s *IntegrityService) Joined(ctx context.Context, examID uuid.UUID, name, roll string) {
	s.publish(ctx, examID, model.MonitorEvent{
		Type: model.MonitorEventStudentJoined,
		Data: map[string]string{"name": name, "roll": roll},
	})
}

// Report queues a warning for persistence and forwards it to the monitor.
func (s *IntegrityService) Report(ctx context.Context, examID uuid.UUID, name, roll string, source model.IntegritySource, count int) (*model.IntegrityEvent, error) {
	switch source {
	case model.IntegritySourceVisibility, model.IntegritySourceFullscreen:
	default:
		return nil, ErrInvalidSource
	}

	ev := model.IntegrityEvent{
		ExamID:      examID,
		StudentName: name,
		StudentRoll: roll,
		Source:      source,
		Count:       count,
		RecordedAt:  s.now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, ev); err != nil {
		return nil, fmt.Errorf("enqueue integrity event: %w", err)
	}

	s.publish(ctx, examID, model.MonitorEvent{Type: model.MonitorEventWarning, Data: ev})
	return &ev, nil
}

func (s *IntegrityService) publish(ctx context.Context, examID uuid.UUID, ev model.MonitorEvent) {
	if s.monitor == nil {
		return
	}
	if err := s.monitor.Publish(ctx, examID, ev); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Str("type", string(ev.Type)).Msg("Failed to publish monitor event")
	}
}
