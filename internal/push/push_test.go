package push_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brightpath/courseplayer/internal/progress"
	"github.com/brightpath/courseplayer/internal/push"
)

// fakeMerger records merged updates.
type fakeMerger struct {
	video     []progress.VideoProgress
	questions []progress.QuestionProgress
	units     []progress.UnitProgress
}

func (f *fakeMerger) MergeVideo(rec progress.VideoProgress) { f.video = append(f.video, rec) }
func (f *fakeMerger) MergeQuestion(rec progress.QuestionProgress) {
	f.questions = append(f.questions, rec)
}
func (f *fakeMerger) MergeUnit(rec progress.UnitProgress) { f.units = append(f.units, rec) }

func TestUpdateWireRoundTrip(t *testing.T) {
	orig := push.VideoUpdate(progress.VideoProgress{
		UserID:      "u1",
		UnitID:      "unit-a",
		CurrentTime: 120,
		Duration:    300,
		Completed:   true,
		LastUpdated: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatal(err)
	}
	got, err := push.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if got.Kind != push.KindVideo || got.UserID != "u1" {
		t.Errorf("decoded envelope = %+v", got)
	}
	if got.Video == nil || *got.Video != *orig.Video {
		t.Errorf("decoded record = %+v, want %+v", got.Video, orig.Video)
	}
	if got.Question != nil || got.Unit != nil {
		t.Error("tagged union should carry exactly one record")
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := push.Decode([]byte(`{not json`)); err == nil {
		t.Error("Decode should reject malformed payloads")
	}
}

func TestApply(t *testing.T) {
	m := &fakeMerger{}

	updates := []push.Update{
		push.VideoUpdate(progress.VideoProgress{UserID: "u1", UnitID: "unit-a"}),
		push.QuestionUpdate(progress.QuestionProgress{UserID: "u1", QuestionID: "q-1"}),
		push.UnitUpdate(progress.UnitProgress{UserID: "u1", UnitID: "unit-a"}),
	}
	for _, u := range updates {
		if err := u.Apply(m); err != nil {
			t.Errorf("Apply(%s) error = %v", u.Kind, err)
		}
	}
	if len(m.video) != 1 || len(m.questions) != 1 || len(m.units) != 1 {
		t.Errorf("merged counts = %d/%d/%d, want 1/1/1", len(m.video), len(m.questions), len(m.units))
	}
}

func TestApply_Invalid(t *testing.T) {
	m := &fakeMerger{}

	tests := []struct {
		name string
		u    push.Update
	}{
		{"unknown kind", push.Update{Kind: "mystery", UserID: "u1"}},
		{"missing record", push.Update{Kind: push.KindVideo, UserID: "u1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.u.Apply(m); err == nil {
				t.Error("Apply should reject the update")
			}
		})
	}
	if len(m.video)+len(m.questions)+len(m.units) != 0 {
		t.Error("rejected updates must not merge anything")
	}
}

// chanMerger forwards merged video records to a channel so the test can wait
// on delivery.
type chanMerger struct {
	video chan progress.VideoProgress
}

func (m *chanMerger) MergeVideo(rec progress.VideoProgress)   { m.video <- rec }
func (m *chanMerger) MergeQuestion(progress.QuestionProgress) {}
func (m *chanMerger) MergeUnit(progress.UnitProgress)         {}

func TestHubFeed_EndToEnd(t *testing.T) {
	hub := push.NewHub()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeFeed(w, r, "u1")
	}))
	defer srv.Close()

	merger := &chanMerger{video: make(chan progress.VideoProgress, 1)}
	feed := push.NewFeed(srv.URL, "token", merger)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		feed.Run(ctx)
	}()

	// Give the dial a moment to register with the hub, then broadcast for
	// both the connected user and a stranger.
	stranger := push.VideoUpdate(progress.VideoProgress{UserID: "u2", UnitID: "unit-a"})
	mine := push.VideoUpdate(progress.VideoProgress{UserID: "u1", UnitID: "unit-a", CurrentTime: 42})
	deadline := time.After(4 * time.Second)
	delivered := false
	for !delivered {
		hub.Broadcast(stranger)
		hub.Broadcast(mine)
		select {
		case rec := <-merger.video:
			if rec.UserID != "u1" || rec.CurrentTime != 42 {
				t.Errorf("merged record = %+v", rec)
			}
			delivered = true
		case <-deadline:
			t.Fatal("update never reached the feed client")
		case <-time.After(50 * time.Millisecond):
		}
	}

	select {
	case rec := <-merger.video:
		// Re-broadcast loops may deliver "mine" more than once; another
		// user's record must never arrive.
		if rec.UserID != "u1" {
			t.Errorf("received another user's record: %+v", rec)
		}
	default:
	}

	cancel()
	<-done
}
