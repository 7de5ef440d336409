package service

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Notification kinds
const (
	NotifySuccess = "success"
	NotifyError   = "error"
)

// Notifier receives short user-facing messages from the upload queue. The
// queue depends only on this interface, never on a presentation layer.
type Notifier interface {
	Notify(kind, message string)
}

// NopNotifier discards notifications
type NopNotifier struct{}

func (NopNotifier) Notify(string, string) {}

// LogNotifier mirrors notifications into the structured log
type LogNotifier struct{}

func (LogNotifier) Notify(kind, message string) {
	if kind == NotifyError {
		slog.Warn("notification", "kind", kind, "message", message)
		return
	}
	slog.Info("notification", "kind", kind, "message", message)
}

// MultiNotifier forwards each notification to every wrapped notifier
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(kind, message string) {
	for _, n := range m {
		n.Notify(kind, message)
	}
}

// Broadcaster fans notifications out to subscribed dashboard clients as
// JSON-encoded events, one channel per connected client.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[chan string]struct{}
}

type notificationEvent struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[chan string]struct{}),
	}
}

// Subscribe registers a new client channel. The caller must Unsubscribe when
// the connection closes.
func (b *Broadcaster) Subscribe() chan string {
	ch := make(chan string, 16)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a client channel
func (b *Broadcaster) Unsubscribe(ch chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
}

// Notify delivers the event to every subscriber. Slow clients drop events
// rather than blocking the upload pass.
func (b *Broadcaster) Notify(kind, message string) {
	payload, err := json.Marshal(notificationEvent{Kind: kind, Message: message})
	if err != nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case ch <- string(payload):
		default:
			slog.Debug("dropping notification, subscriber channel full")
		}
	}
}

// SubscriberCount returns the number of connected clients
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
