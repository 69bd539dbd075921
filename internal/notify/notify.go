// Package notify carries fire-and-forget user-facing toasts: gating
// rejections, sync warnings. No acknowledgment, no delivery guarantee.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Level classifies a notification for display.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Notification is a single user-facing message.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Notifier delivers notifications to the user. Implementations must not
// block the caller on delivery.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// SlogNotifier logs notifications instead of displaying them; the default
// sink on the server side.
type SlogNotifier struct{}

func (SlogNotifier) Notify(_ context.Context, n Notification) {
	slog.Info("user notification", "level", n.Level, "message", n.Message)
}

// Gateway fans a notification out to every registered notifier.
type Gateway struct {
	mu        sync.RWMutex
	notifiers []Notifier
}

// NewGateway creates an empty notification gateway.
func NewGateway() *Gateway {
	return &Gateway{}
}

// Register adds a notifier to the gateway.
func (g *Gateway) Register(n Notifier) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.notifiers = append(g.notifiers, n)
}

func (g *Gateway) Notify(ctx context.Context, n Notification) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, sink := range g.notifiers {
		sink.Notify(ctx, n)
	}
}

// MemoryNotifier records notifications for tests.
type MemoryNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

func (m *MemoryNotifier) Notify(_ context.Context, n Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
}

// Sent returns a copy of everything notified so far.
func (m *MemoryNotifier) Sent() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification{}, m.sent...)
}
