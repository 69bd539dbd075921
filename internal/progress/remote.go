package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemotePersister is the engine-side Persister: an HTTP client of the
// progress API. All failures come back as the typed taxonomy, never as a
// panic or a bare transport error.
type RemotePersister struct {
	baseURL string
	token   string
	userID  string
	client  *http.Client
}

// NewRemotePersister creates a persister talking to the progress API at
// baseURL, authenticating with the given bearer session token.
func NewRemotePersister(baseURL, token, userID string) *RemotePersister {
	return &RemotePersister{
		baseURL: baseURL,
		token:   token,
		userID:  userID,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *RemotePersister) Fetch(ctx context.Context, userID string) (RecordSet, error) {
	body, err := r.do(ctx, http.MethodGet, "/progress", nil)
	if err != nil {
		return RecordSet{}, err
	}
	// The server may answer in either historical payload shape.
	return DecodeSnapshot(userID, body)
}

func (r *RemotePersister) SaveVideo(ctx context.Context, rec VideoProgress) error {
	if rec.UnitID == "" {
		return fmt.Errorf("%w: unit_id is required", ErrValidation)
	}
	payload := map[string]any{
		"unit_id":      rec.UnitID,
		"current_time": rec.CurrentTime,
		"duration":     rec.Duration,
		"completed":    rec.Completed,
	}
	_, err := r.do(ctx, http.MethodPost, "/progress/video", payload)
	return err
}

func (r *RemotePersister) SaveQuestion(ctx context.Context, rec QuestionProgress) error {
	if rec.QuestionID == "" {
		return fmt.Errorf("%w: question_id is required", ErrValidation)
	}
	payload := map[string]any{
		"question_id": rec.QuestionID,
		"unit_id":     rec.UnitID,
		"chapter_id":  rec.ChapterID,
		"correct":     rec.Correct,
	}
	_, err := r.do(ctx, http.MethodPost, "/progress/question", payload)
	return err
}

func (r *RemotePersister) SaveUnit(ctx context.Context, upd UnitUpdate) error {
	if upd.UnitID == "" {
		return fmt.Errorf("%w: unit_id is required", ErrValidation)
	}
	payload := map[string]any{"unit_id": upd.UnitID}
	if upd.ChapterID != "" {
		payload["chapter_id"] = upd.ChapterID
	}
	if upd.VideoCompleted != nil {
		payload["video_completed"] = *upd.VideoCompleted
	}
	if upd.QuestionsCompleted != nil {
		payload["questions_completed"] = *upd.QuestionsCompleted
	}
	if upd.TotalQuestions != nil {
		payload["total_questions"] = *upd.TotalQuestions
	}
	_, err := r.do(ctx, http.MethodPost, "/progress/unit", payload)
	return err
}

func (r *RemotePersister) Reset(ctx context.Context, _ string) error {
	_, err := r.do(ctx, http.MethodDelete, "/progress", nil)
	return err
}

func (r *RemotePersister) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: encode request: %v", ErrValidation, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrPersistence, err)
	}
	req.Header.Set("Authorization", "Bearer "+r.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrPersistence, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrPersistence, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s %s", ErrAuth, method, path)
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s %s: %s", ErrValidation, method, path, data)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: %s %s: status %d", ErrPersistence, method, path, resp.StatusCode)
	}
	return data, nil
}
