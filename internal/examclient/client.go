// Package examclient talks to the exam server on behalf of one student and
// drives a session.Session against real clocks and signal sources.
package examclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/mcq-exam/internal/model"
	"github.com/stemsi/mcq-exam/internal/session"
)

// ErrExamUnavailable is returned when the server redirects a paper request
// away because the exam is missing or inactive.
var ErrExamUnavailable = errors.New("exam is not available")

// Identity is the free-text identity a student types before starting.
type Identity struct {
	Name string
	Roll string
}

// Client is an HTTP client for the student endpoints.
type Client struct {
	baseURL string
	student Identity
	http    *http.Client
}

// NewClient creates a client for the server at baseURL. Redirects are never
// followed so the exam-unavailable redirect can be observed.
func NewClient(baseURL string, student Identity) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		student: student,
		http: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Student returns the identity sent with submissions.
func (c *Client) Student() Identity { return c.student }

// FetchPaper loads the exam and its questions, without answer keys.
func (c *Client) FetchPaper(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/exams/"+examID.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch paper: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusFound || resp.StatusCode == http.StatusSeeOther:
		return nil, ErrExamUnavailable
	case resp.StatusCode != http.StatusOK:
		return nil, statusError("fetch paper", resp)
	}

	var env struct {
		Data model.ExamPaper `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode paper: %w", err)
	}
	return &env.Data, nil
}

// Submit sends the terminal submission and reports the server's verdict.
// Transport failures and non-2xx statuses come back as Outcome.Err.
func (c *Client) Submit(ctx context.Context, sub session.Submission) session.Outcome {
	answers, err := json.Marshal(sub.Answers)
	if err != nil {
		return session.Outcome{Err: err}
	}
	form := url.Values{
		"name":        {c.student.Name},
		"roll":        {c.student.Roll},
		"answersJson": {string(answers)},
		"reason":      {string(sub.Reason)},
		"warnings":    {strconv.Itoa(sub.WarningCount)},
	}

	target := c.baseURL + "/exams/" + sub.ExamID.String() + "/submit"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return session.Outcome{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return session.Outcome{Err: fmt.Errorf("submit: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return session.Outcome{Err: statusError("submit", resp)}
	}

	var out model.SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return session.Outcome{Err: fmt.Errorf("decode submit response: %w", err)}
	}
	return session.Outcome{OK: out.OK, Redirect: out.Redirect}
}

func statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: unexpected status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
}
