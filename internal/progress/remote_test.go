package progress_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brightpath/courseplayer/internal/progress"
)

// remoteFixture serves canned responses for the progress API paths.
func remoteFixture(t *testing.T, status int, body string) *progress.RemotePersister {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("Authorization = %q, want bearer token", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return progress.NewRemotePersister(srv.URL, "token", "u1")
}

func TestRemotePersister_Fetch(t *testing.T) {
	p := remoteFixture(t, http.StatusOK, `{
		"video_progress": [{"user_id":"u1","unit_id":"unit-a","completed":true}],
		"question_progress": [],
		"unit_progress": []
	}`)

	set, err := p.Fetch(t.Context(), "u1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if v, ok := set.Video["unit-a"]; !ok || !v.Completed {
		t.Errorf("video record = %+v", v)
	}
}

func TestRemotePersister_FetchLegacyShape(t *testing.T) {
	p := remoteFixture(t, http.StatusOK, `{"completed_units":{"unit-a":true}}`)

	set, err := p.Fetch(t.Context(), "u1")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if v, ok := set.Video["unit-a"]; !ok || !v.Completed {
		t.Errorf("lifted video record = %+v", v)
	}
}

func TestRemotePersister_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, progress.ErrAuth},
		{"forbidden", http.StatusForbidden, progress.ErrAuth},
		{"bad request", http.StatusBadRequest, progress.ErrValidation},
		{"server error", http.StatusInternalServerError, progress.ErrPersistence},
		{"unavailable", http.StatusServiceUnavailable, progress.ErrPersistence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := remoteFixture(t, tt.status, `{}`)
			err := p.SaveVideo(t.Context(), progress.VideoProgress{
				UserID: "u1", UnitID: "unit-a", CurrentTime: 10, Duration: 300,
			})
			if !errors.Is(err, tt.want) {
				t.Errorf("SaveVideo error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRemotePersister_LocalValidation(t *testing.T) {
	p := remoteFixture(t, http.StatusOK, `{}`)

	if err := p.SaveVideo(t.Context(), progress.VideoProgress{}); !errors.Is(err, progress.ErrValidation) {
		t.Errorf("SaveVideo error = %v, want ErrValidation before any request", err)
	}
	if err := p.SaveQuestion(t.Context(), progress.QuestionProgress{}); !errors.Is(err, progress.ErrValidation) {
		t.Errorf("SaveQuestion error = %v, want ErrValidation", err)
	}
	if err := p.SaveUnit(t.Context(), progress.UnitUpdate{}); !errors.Is(err, progress.ErrValidation) {
		t.Errorf("SaveUnit error = %v, want ErrValidation", err)
	}
}

func TestRemotePersister_TransportError(t *testing.T) {
	p := progress.NewRemotePersister("http://127.0.0.1:1", "token", "u1")
	if err := p.Reset(t.Context(), "u1"); !errors.Is(err, progress.ErrPersistence) {
		t.Errorf("Reset error = %v, want ErrPersistence", err)
	}
}
