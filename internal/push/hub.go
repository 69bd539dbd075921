package push

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Hub broadcasts progress updates to websocket subscribers. Each connected
// client registers with the user it belongs to and only receives that
// user's updates.
type Hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]hubSub
}

type hubSub struct {
	userID string
	ch     chan Update
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]hubSub)}
}

// Broadcast queues an update to every subscriber of its user. Slow clients
// drop updates rather than block the writer; the next full fetch reconciles
// them.
func (h *Hub) Broadcast(u Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if sub.userID != u.UserID {
			continue
		}
		select {
		case sub.ch <- u:
		default:
		}
	}
}

func (h *Hub) subscribe(userID string) (int, chan Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	ch := make(chan Update, 16)
	h.subs[id] = hubSub{userID: userID, ch: ch}
	return id, ch
}

func (h *Hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// ServeFeed upgrades the request to a websocket and streams the user's
// updates until the client goes away.
func (h *Hub) ServeFeed(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("feed accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	id, ch := h.subscribe(userID)
	defer h.unsubscribe(id)
	slog.Debug("feed subscriber connected", "user_id", userID)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case u := <-ch:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, u)
			cancel()
			if err != nil {
				slog.Debug("feed write failed, dropping subscriber", "user_id", userID, "error", err)
				return
			}
		}
	}
}

// Feed is the client side of the websocket stream: it dials the server's
// feed endpoint and merges every received update into the local store.
type Feed struct {
	url   string
	token string
	store Merger
}

// NewFeed creates a feed client for the given websocket URL.
func NewFeed(url, token string, store Merger) *Feed {
	return &Feed{url: url, token: token, store: store}
}

// Run consumes the feed until ctx is done or the connection drops. Callers
// own the reconnect policy.
func (f *Feed) Run(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, f.url, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + f.token}},
	})
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	for {
		var u Update
		if err := wsjson.Read(ctx, conn, &u); err != nil {
			return err
		}
		if err := u.Apply(f.store); err != nil {
			slog.Warn("discarding malformed feed update", "error", err)
		}
	}
}
