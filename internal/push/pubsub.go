package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/brightpath/courseplayer/internal/progress"
)

// DefaultChannel is the pub/sub channel carrying progress updates.
const DefaultChannel = "courseplayer:progress"

// Publisher fans confirmed writes out over redis pub/sub so every connected
// device of the user sees them.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher creates a publisher on the given channel ("" for default).
func NewPublisher(client *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{client: client, channel: channel}
}

// Publish sends an update. Publishing is best effort: a failure is logged,
// never propagated, because the write of record already succeeded.
func (p *Publisher) Publish(ctx context.Context, u Update) {
	if p == nil || p.client == nil {
		return
	}
	data, err := json.Marshal(u)
	if err != nil {
		slog.Warn("push publish encode failed", "error", err)
		return
	}
	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		slog.Warn("push publish failed", "channel", p.channel, "error", err)
	}
}

// Subscriber consumes the pub/sub channel and merges updates for one user
// into their store.
type Subscriber struct {
	client  *redis.Client
	channel string
	userID  string
	store   Merger
}

// Merger is the slice of the progress store the subscriber needs.
type Merger interface {
	MergeVideo(rec progress.VideoProgress)
	MergeQuestion(rec progress.QuestionProgress)
	MergeUnit(rec progress.UnitProgress)
}

// NewSubscriber creates a subscriber merging updates for userID into store.
func NewSubscriber(client *redis.Client, channel, userID string, store Merger) *Subscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Subscriber{client: client, channel: channel, userID: userID, store: store}
}

// Run blocks consuming updates until ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("push subscription closed")
			}
			u, err := Decode([]byte(msg.Payload))
			if err != nil {
				slog.Warn("discarding malformed push update", "error", err)
				continue
			}
			if u.UserID != s.userID {
				continue
			}
			s.apply(u)
		}
	}
}

func (s *Subscriber) apply(u Update) {
	switch u.Kind {
	case KindVideo:
		if u.Video != nil {
			s.store.MergeVideo(*u.Video)
		}
	case KindQuestion:
		if u.Question != nil {
			s.store.MergeQuestion(*u.Question)
		}
	case KindUnit:
		if u.Unit != nil {
			s.store.MergeUnit(*u.Unit)
		}
	default:
		slog.Warn("discarding push update of unknown kind", "kind", u.Kind)
	}
}
