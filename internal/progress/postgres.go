package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresPersister is the server-side Persister backed by pgx.
type PostgresPersister struct {
	pool *pgxpool.Pool
}

// NewPostgresPersister creates a PostgreSQL-backed persister.
func NewPostgresPersister(pool *pgxpool.Pool) (*PostgresPersister, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresPersister{pool: pool}, nil
}

// EnsureSchema creates the three progress tables if they do not exist.
func (p *PostgresPersister) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS video_progress (
			user_id          TEXT NOT NULL,
			unit_id          TEXT NOT NULL,
			current_seconds  DOUBLE PRECISION NOT NULL DEFAULT 0,
			duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
			completed        BOOLEAN NOT NULL DEFAULT FALSE,
			last_updated     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, unit_id)
		)`,
		`CREATE TABLE IF NOT EXISTS question_progress (
			user_id      TEXT NOT NULL,
			question_id  TEXT NOT NULL,
			unit_id      TEXT NOT NULL,
			chapter_id   TEXT NOT NULL DEFAULT '',
			attempts     INTEGER NOT NULL DEFAULT 0,
			correct      BOOLEAN NOT NULL DEFAULT FALSE,
			last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, question_id)
		)`,
		`CREATE TABLE IF NOT EXISTS unit_progress (
			user_id             TEXT NOT NULL,
			unit_id             TEXT NOT NULL,
			chapter_id          TEXT NOT NULL DEFAULT '',
			video_completed     BOOLEAN NOT NULL DEFAULT FALSE,
			questions_completed INTEGER NOT NULL DEFAULT 0,
			total_questions     INTEGER NOT NULL DEFAULT 0,
			last_updated        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, unit_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (p *PostgresPersister) Fetch(ctx context.Context, userID string) (RecordSet, error) {
	if userID == "" {
		return RecordSet{}, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	set := NewRecordSet()

	rows, err := p.pool.Query(ctx,
		`SELECT user_id, unit_id, current_seconds, duration_seconds, completed, last_updated
		 FROM video_progress WHERE user_id = $1`, userID)
	if err != nil {
		return RecordSet{}, fmt.Errorf("%w: query video progress: %v", ErrPersistence, err)
	}
	for rows.Next() {
		var v VideoProgress
		if err := rows.Scan(&v.UserID, &v.UnitID, &v.CurrentTime, &v.Duration, &v.Completed, &v.LastUpdated); err != nil {
			rows.Close()
			return RecordSet{}, fmt.Errorf("%w: scan video progress: %v", ErrPersistence, err)
		}
		set.Video[v.UnitID] = v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return RecordSet{}, fmt.Errorf("%w: iterate video progress: %v", ErrPersistence, err)
	}

	rows, err = p.pool.Query(ctx,
		`SELECT user_id, question_id, unit_id, chapter_id, attempts, correct, last_updated
		 FROM question_progress WHERE user_id = $1`, userID)
	if err != nil {
		return RecordSet{}, fmt.Errorf("%w: query question progress: %v", ErrPersistence, err)
	}
	for rows.Next() {
		var q QuestionProgress
		if err := rows.Scan(&q.UserID, &q.QuestionID, &q.UnitID, &q.ChapterID, &q.Attempts, &q.Correct, &q.LastUpdated); err != nil {
			rows.Close()
			return RecordSet{}, fmt.Errorf("%w: scan question progress: %v", ErrPersistence, err)
		}
		set.Questions[q.QuestionID] = q
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return RecordSet{}, fmt.Errorf("%w: iterate question progress: %v", ErrPersistence, err)
	}

	rows, err = p.pool.Query(ctx,
		`SELECT user_id, unit_id, chapter_id, video_completed, questions_completed, total_questions, last_updated
		 FROM unit_progress WHERE user_id = $1`, userID)
	if err != nil {
		return RecordSet{}, fmt.Errorf("%w: query unit progress: %v", ErrPersistence, err)
	}
	for rows.Next() {
		var u UnitProgress
		if err := rows.Scan(&u.UserID, &u.UnitID, &u.ChapterID, &u.VideoCompleted, &u.QuestionsCompleted, &u.TotalQuestions, &u.LastUpdated); err != nil {
			rows.Close()
			return RecordSet{}, fmt.Errorf("%w: scan unit progress: %v", ErrPersistence, err)
		}
		set.Units[u.UnitID] = u
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return RecordSet{}, fmt.Errorf("%w: iterate unit progress: %v", ErrPersistence, err)
	}

	return set, nil
}

func (p *PostgresPersister) SaveVideo(ctx context.Context, rec VideoProgress) error {
	if rec.UserID == "" || rec.UnitID == "" {
		return fmt.Errorf("%w: user_id and unit_id are required", ErrValidation)
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	ts := rec.LastUpdated
	if ts.IsZero() {
		ts = time.Now()
	}
	// Completed is sticky: once true in the row it stays true.
	_, err := p.pool.Exec(ctx,
		`INSERT INTO video_progress (user_id, unit_id, current_seconds, duration_seconds, completed, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, unit_id) DO UPDATE SET
			current_seconds  = EXCLUDED.current_seconds,
			duration_seconds = EXCLUDED.duration_seconds,
			completed        = video_progress.completed OR EXCLUDED.completed,
			last_updated     = EXCLUDED.last_updated`,
		rec.UserID, rec.UnitID, rec.CurrentTime, rec.Duration, rec.Completed, ts)
	if err != nil {
		return fmt.Errorf("%w: upsert video progress: %v", ErrPersistence, err)
	}
	return nil
}

func (p *PostgresPersister) SaveQuestion(ctx context.Context, rec QuestionProgress) error {
	if rec.UserID == "" || rec.QuestionID == "" {
		return fmt.Errorf("%w: user_id and question_id are required", ErrValidation)
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	ts := rec.LastUpdated
	if ts.IsZero() {
		ts = time.Now()
	}
	// The attempt counter is owned by the row, incremented atomically here;
	// the client's counter is advisory only.
	_, err := p.pool.Exec(ctx,
		`INSERT INTO question_progress (user_id, question_id, unit_id, chapter_id, attempts, correct, last_updated)
		 VALUES ($1, $2, $3, $4, 1, $5, $6)
		 ON CONFLICT (user_id, question_id) DO UPDATE SET
			attempts     = question_progress.attempts + 1,
			correct      = EXCLUDED.correct,
			last_updated = EXCLUDED.last_updated`,
		rec.UserID, rec.QuestionID, rec.UnitID, rec.ChapterID, rec.Correct, ts)
	if err != nil {
		return fmt.Errorf("%w: upsert question progress: %v", ErrPersistence, err)
	}
	return nil
}

func (p *PostgresPersister) SaveUnit(ctx context.Context, upd UnitUpdate) error {
	if upd.UserID == "" || upd.UnitID == "" {
		return fmt.Errorf("%w: user_id and unit_id are required", ErrValidation)
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	ts := upd.LastUpdated
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO unit_progress (user_id, unit_id, chapter_id, video_completed, questions_completed, total_questions, last_updated)
		 VALUES ($1, $2, COALESCE($3, ''), COALESCE($4, FALSE), LEAST(COALESCE($5, 0), COALESCE($6, 0)), COALESCE($6, 0), $7)
		 ON CONFLICT (user_id, unit_id) DO UPDATE SET
			chapter_id          = COALESCE($3, unit_progress.chapter_id),
			video_completed     = COALESCE($4, unit_progress.video_completed),
			total_questions     = COALESCE($6, unit_progress.total_questions),
			questions_completed = LEAST(
				COALESCE($5, unit_progress.questions_completed),
				COALESCE($6, unit_progress.total_questions)),
			last_updated        = $7`,
		upd.UserID, upd.UnitID, nullIfEmpty(upd.ChapterID), upd.VideoCompleted,
		upd.QuestionsCompleted, upd.TotalQuestions, ts)
	if err != nil {
		return fmt.Errorf("%w: upsert unit progress: %v", ErrPersistence, err)
	}
	return nil
}

func (p *PostgresPersister) Reset(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	for _, table := range []string{"video_progress", "question_progress", "unit_progress"} {
		if _, err := p.pool.Exec(ctx, `DELETE FROM `+table+` WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("%w: reset %s: %v", ErrPersistence, table, err)
		}
	}
	return nil
}

// Users returns every user ID present in any of the three tables.
func (p *PostgresPersister) Users(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := p.pool.Query(ctx,
		`SELECT user_id FROM video_progress
		 UNION SELECT user_id FROM question_progress
		 UNION SELECT user_id FROM unit_progress
		 ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query users: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scan user: %v", ErrPersistence, err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate users: %v", ErrPersistence, err)
	}
	return users, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
