package examclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stemsi/mcq-exam/internal/model"
	ws "github.com/stemsi/mcq-exam/internal/websocket"
)

const writeWait = 10 * time.Second

// WarningStream reports integrity warnings over the exam's WebSocket.
// Reports are advisory; the submission carries the authoritative count.
type WarningStream struct {
	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}
}

// DialWarningStream opens the integrity stream for an exam.
func DialWarningStream(ctx context.Context, baseURL string, examID uuid.UUID, student Identity) (*WarningStream, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/ws/v1/exams/" + examID.String() + "/stream")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("name", student.Name)
	q.Set("roll", student.Roll)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial integrity stream: %w", err)
	}

	s := &WarningStream{conn: conn, done: make(chan struct{})}
	go s.drain()
	return s, nil
}

// drain consumes acks so control frames keep flowing.
func (s *WarningStream) drain() {
	defer close(s.done)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Report sends one warning.
func (s *WarningStream) Report(source model.IntegritySource, count int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(ws.WarningRequest{
		Action: ws.ActionWarning,
		Count:  count,
		Source: source,
		Reason: reason,
	})
}

// Close sends a close frame and waits briefly for the server to hang up.
func (s *WarningStream) Close() error {
	s.mu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(time.Second):
	}
	return s.conn.Close()
}
