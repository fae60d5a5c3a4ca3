package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Event kinds appended by the exam flow.
const (
	EventExamStarted   = "exam_started"
	EventLevelPassed   = "level_passed"
	EventLevelFailed   = "level_failed"
	EventExamCompleted = "exam_completed"
	EventExamAbandoned = "exam_abandoned"
)

// Event is one lifecycle entry in an exam's history.
type Event struct {
	Sequence  int64
	ExamID    string
	Kind      string
	Detail    string
	CreatedAt time.Time
}

// EventRepo is the append-only exam lifecycle log.
type EventRepo interface {
	Append(ctx context.Context, examID, kind, detail string) (int64, error)
	ListByExam(ctx context.Context, examID string) ([]Event, error)
}

type eventRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func (r *eventRepo) Append(ctx context.Context, examID, kind, detail string) (int64, error) {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO exam_events (sequence, exam_id, kind, detail) VALUES (?, ?, ?, ?)`,
		seqNum, examID, kind, detail,
	)
	if err != nil {
		return 0, fmt.Errorf("insert exam event: %w", err)
	}
	return seqNum, nil
}

func (r *eventRepo) ListByExam(ctx context.Context, examID string) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sequence, exam_id, kind, detail, created_at
		 FROM exam_events WHERE exam_id = ? ORDER BY sequence`, examID)
	if err != nil {
		return nil, fmt.Errorf("list exam events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Sequence, &e.ExamID, &e.Kind, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan exam event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
