package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Webhook delivery is best effort: the queue is bounded and a full queue
// drops new events rather than stalling request handling.
const (
	webhookQueueSize    = 1024
	webhookSendTimeout  = 10 * time.Second
	webhookRetryBackoff = time.Second
)

// webhookEvent is the JSON document POSTed for each audit event. Session
// lifecycle fields are first-class so a receiver can key on the session
// and lock reason directly.
type webhookEvent struct {
	Event      string `json:"event"`
	AccountID  string `json:"account_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
	RemoteAddr string `json:"remote_addr,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// auditWebhook forwards audit events to an external collector. A single
// background goroutine drains the queue in order; enqueue never blocks.
type auditWebhook struct {
	endpoint string
	header   string // optional "Name: Value" pair added to every request
	client   *http.Client
	log      *slog.Logger
	queue    chan webhookEvent
	done     sync.WaitGroup
}

func newAuditWebhook(endpoint, header string, log *slog.Logger) *auditWebhook {
	w := &auditWebhook{
		endpoint: endpoint,
		header:   header,
		client:   &http.Client{Timeout: webhookSendTimeout},
		log:      log.With("component", "webhook"),
		queue:    make(chan webhookEvent, webhookQueueSize),
	}
	w.done.Add(1)
	go func() {
		defer w.done.Done()
		for evt := range w.queue {
			w.deliver(evt)
		}
	}()
	return w
}

// enqueue hands an event to the dispatcher without blocking the caller.
func (w *auditWebhook) enqueue(evt webhookEvent) {
	select {
	case w.queue <- evt:
	default:
		w.log.Warn("webhook queue full, event dropped",
			"event", evt.Event, "session_id", evt.SessionID)
	}
}

// close stops accepting events and waits for the queued ones to be sent.
func (w *auditWebhook) close() {
	close(w.queue)
	w.done.Wait()
}

// deliver POSTs one event. Transport errors and 5xx responses get a
// single retry after a short backoff; 4xx responses do not, since
// resending the same payload cannot succeed.
func (w *auditWebhook) deliver(evt webhookEvent) {
	body, err := json.Marshal(evt)
	if err != nil {
		w.log.Warn("webhook payload marshal failed", "error", err)
		return
	}

	retryable, err := w.post(body)
	if err == nil {
		return
	}
	if !retryable {
		w.log.Warn("webhook delivery rejected", "event", evt.Event, "error", err)
		return
	}
	w.log.Warn("webhook delivery failed, retrying", "event", evt.Event, "error", err)
	time.Sleep(webhookRetryBackoff)
	if _, err := w.post(body); err != nil {
		w.log.Warn("webhook delivery failed after retry", "event", evt.Event, "error", err)
	}
}

// post performs one HTTP attempt. The bool reports whether a failure is
// worth retrying.
func (w *auditWebhook) post(body []byte) (bool, error) {
	req, err := http.NewRequest(http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "SessionGuard-Audit-Webhook/1.0")
	if name, value, ok := strings.Cut(w.header, ":"); ok {
		req.Header.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return true, err
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("collector returned %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("collector returned %d", resp.StatusCode)
	}
}
