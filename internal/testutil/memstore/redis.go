package memstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/mcq-exam/internal/model"
	"github.com/stemsi/mcq-exam/internal/service"
)

// PaperCache is an in-memory service.PaperCache. Papers are stored as JSON
// so callers can never alias cached data.
type PaperCache struct {
	mu     sync.Mutex
	papers map[uuid.UUID][]byte

	Hits          int
	Invalidations int
}

func NewPaperCache() *PaperCache {
	return &PaperCache{papers: map[uuid.UUID][]byte{}}
}

func (c *PaperCache) Get(_ context.Context, examID uuid.UUID) (*model.ExamPaper, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.papers[examID]
	if !ok {
		return nil, service.ErrCacheMiss
	}
	c.Hits++
	var p model.ExamPaper
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *PaperCache) Set(_ context.Context, paper *model.ExamPaper) error {
	raw, err := json.Marshal(paper)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.papers[paper.ExamID] = raw
	return nil
}

func (c *PaperCache) Invalidate(_ context.Context, examID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Invalidations++
	delete(c.papers, examID)
	return nil
}

// Cached reports whether a paper is currently cached.
func (c *PaperCache) Cached(examID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.papers[examID]
	return ok
}

// Monitor records published monitor events and fans them out to
// subscribers of the same exam.
type Monitor struct {
	mu     sync.Mutex
	Events []model.MonitorEvent
	Err    error
	subs   map[uuid.UUID]map[*subscription]struct{}
}

func (m *Monitor) Publish(_ context.Context, examID uuid.UUID, ev model.MonitorEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, ev)

	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	for sub := range m.subs[examID] {
		select {
		case sub.ch <- &redis.Message{Channel: examID.String(), Payload: string(raw)}:
		default:
		}
	}
	return nil
}

func (m *Monitor) Subscribe(_ context.Context, examID uuid.UUID) service.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subs == nil {
		m.subs = map[uuid.UUID]map[*subscription]struct{}{}
	}
	if m.subs[examID] == nil {
		m.subs[examID] = map[*subscription]struct{}{}
	}
	sub := &subscription{m: m, examID: examID, ch: make(chan *redis.Message, 16)}
	m.subs[examID][sub] = struct{}{}
	return sub
}

// Subscribers returns the number of open subscriptions for an exam.
func (m *Monitor) Subscribers(examID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[examID])
}

type subscription struct {
	m      *Monitor
	examID uuid.UUID
	ch     chan *redis.Message
	once   sync.Once
}

func (s *subscription) Channel() <-chan *redis.Message { return s.ch }

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.m.mu.Lock()
		defer s.m.mu.Unlock()
		delete(s.m.subs[s.examID], s)
		close(s.ch)
	})
	return nil
}

// Types returns the types of the recorded events in order.
func (m *Monitor) Types() []model.MonitorEventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.MonitorEventType, len(m.Events))
	for i, ev := range m.Events {
		out[i] = ev.Type
	}
	return out
}

// Queue records enqueued integrity events.
type Queue struct {
	mu     sync.Mutex
	Events []model.IntegrityEvent
	Err    error
}

func (q *Queue) Enqueue(_ context.Context, ev model.IntegrityEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return q.Err
	}
	q.Events = append(q.Events, ev)
	return nil
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.Events)
}
