package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/mcq-exam/internal/config"
	"github.com/stemsi/mcq-exam/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ErrQueueEmpty is returned by EventQueue.Pop when nothing arrived in time.
var ErrQueueEmpty = errors.New("integrity queue empty")

// EventQueue is the source of serialized integrity events.
type EventQueue interface {
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
	Requeue(ctx context.Context, events []model.IntegrityEvent) error
}

// EventStore persists integrity events.
type EventStore interface {
	CopyEvents(ctx context.Context, events []model.IntegrityEvent) error
	InsertEvent(ctx context.Context, ev model.IntegrityEvent) error
}

// IntegrityWorker drains the integrity queue into Postgres in batches.
type IntegrityWorker struct {
	queue EventQueue
	store EventStore
	log   zerolog.Logger

	batchSize    int
	batchTimeout time.Duration
	errorBackoff time.Duration
}

func NewIntegrityWorker(queue EventQueue, store EventStore, log zerolog.Logger) *IntegrityWorker {
	return &IntegrityWorker{
		queue:        queue,
		store:        store,
		log:          log.With().Str("component", "integrity_worker").Logger(),
		batchSize:    BatchSize,
		batchTimeout: BatchTimeout,
		errorBackoff: 3 * time.Second,
	}
}

func (w *IntegrityWorker) Start(ctx context.Context) {
	w.log.Info().Msg("IntegrityWorker started")

	buffer := make([]model.IntegrityEvent, 0, w.batchSize)
	lastFlushTime := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= w.batchSize || time.Since(lastFlushTime) >= w.batchTimeout) {
			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlushTime = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		raw, err := w.queue.Pop(ctx, PollTimeout)
		if err != nil {
			if errors.Is(err, ErrQueueEmpty) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Dur("backoff", w.errorBackoff).Msg("Queue error, backing off")
			sleep(ctx, w.errorBackoff)
			continue
		}

		var ev model.IntegrityEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			// Malformed payloads can never succeed; drop them.
			w.log.Error().Err(err).Str("data", string(raw)).Msg("Discarding malformed integrity event")
			continue
		}
		buffer = append(buffer, ev)
	}
}

// flushSafe attempts a bulk copy, then row inserts, then requeues what failed.
func (w *IntegrityWorker) flushSafe(ctx context.Context, batch []model.IntegrityEvent) {
	err := w.store.CopyEvents(ctx, batch)
	if err == nil {
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk copy failed, attempting row-by-row recovery")

	var failed []model.IntegrityEvent
	for _, ev := range batch {
		if err := w.store.InsertEvent(ctx, ev); err != nil {
			w.log.Error().Err(err).Str("exam_id", ev.ExamID.String()).Str("roll", ev.StudentRoll).Msg("Insert failed, requeueing")
			failed = append(failed, ev)
		}
	}
	if len(failed) == 0 {
		return
	}

	if err := w.queue.Requeue(ctx, failed); err != nil {
		w.log.Error().Err(err).Int("count", len(failed)).Msg("CRITICAL: Failed to requeue integrity events. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(failed)).Msg("Requeued failed integrity events")
	sleep(ctx, w.errorBackoff)
}

func (w *IntegrityWorker) shutdown(buffer []model.IntegrityEvent) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// ─── Redis queue ────────────────────────────────────────────────────

// RedisEventQueue pops events pushed by service.RedisIntegrityQueue.
type RedisEventQueue struct {
	rdb *redis.Client
}

func NewRedisEventQueue(rdb *redis.Client) *RedisEventQueue {
	return &RedisEventQueue{rdb: rdb}
}

func (q *RedisEventQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	// BLPop returns immediately if data exists.
	result, err := q.rdb.BLPop(ctx, timeout, config.WorkerKey.PersistIntegrityQueue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrQueueEmpty
	}
	if err != nil {
		return nil, err
	}
	if len(result) < 2 {
		return nil, ErrQueueEmpty
	}
	return []byte(result[1]), nil
}

func (q *RedisEventQueue) Requeue(ctx context.Context, events []model.IntegrityEvent) error {
	pipe := q.rdb.Pipeline()
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		pipe.RPush(ctx, config.WorkerKey.PersistIntegrityQueue, data)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// ─── Postgres store ─────────────────────────────────────────────────

var integrityColumns = []string{"exam_id", "student_name", "student_roll", "source", "count", "recorded_at"}

// PostgresEventStore writes into integrity_events.
type PostgresEventStore struct {
	pool *pgxpool.Pool
}

func NewPostgresEventStore(pool *pgxpool.Pool) *PostgresEventStore {
	return &PostgresEventStore{pool: pool}
}

func (s *PostgresEventStore) CopyEvents(ctx context.Context, events []model.IntegrityEvent) error {
	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"integrity_events"},
		integrityColumns,
		pgx.CopyFromRows(eventRows(events)),
	)
	return err
}

func (s *PostgresEventStore) InsertEvent(ctx context.Context, ev model.IntegrityEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO integrity_events (exam_id, student_name, student_roll, source, count, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		eventRow(ev)...,
	)
	return err
}

func eventRows(events []model.IntegrityEvent) [][]any {
	rows := make([][]any, len(events))
	for i, ev := range events {
		rows[i] = eventRow(ev)
	}
	return rows
}

func eventRow(ev model.IntegrityEvent) []any {
	recordedAt := ev.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}
	return []any{ev.ExamID, ev.StudentName, ev.StudentRoll, string(ev.Source), ev.Count, recordedAt}
}
