package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Submission is one delivered response, audio metadata only. The raw
// artifact bytes go to the evaluator, not the database.
type Submission struct {
	Sequence     int64
	ExamID       string
	InstanceID   string
	QuestionID   string
	Level        string
	QuestionType string
	TriggeredBy  string
	MimeType     string
	SizeBytes    int
	DurationSecs float64
	OverallScore float64
	CreatedAt    time.Time
}

// SubmissionRepo is the append-only submission log.
type SubmissionRepo interface {
	Append(ctx context.Context, sub Submission) (int64, error)
	ListByExam(ctx context.Context, examID string) ([]Submission, error)
}

type submissionRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func (r *submissionRepo) Append(ctx context.Context, sub Submission) (int64, error) {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO submissions
		 (sequence, exam_id, instance_id, question_id, level, question_type, triggered_by, mime_type, size_bytes, duration_secs, overall_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seqNum, sub.ExamID, sub.InstanceID, sub.QuestionID, sub.Level, sub.QuestionType,
		sub.TriggeredBy, sub.MimeType, sub.SizeBytes, sub.DurationSecs, sub.OverallScore,
	)
	if err != nil {
		return 0, fmt.Errorf("insert submission: %w", err)
	}
	return seqNum, nil
}

func (r *submissionRepo) ListByExam(ctx context.Context, examID string) ([]Submission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT sequence, exam_id, instance_id, question_id, level, question_type, triggered_by, mime_type, size_bytes, duration_secs, overall_score, created_at
		 FROM submissions WHERE exam_id = ? ORDER BY sequence`, examID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var s Submission
		err := rows.Scan(&s.Sequence, &s.ExamID, &s.InstanceID, &s.QuestionID, &s.Level, &s.QuestionType,
			&s.TriggeredBy, &s.MimeType, &s.SizeBytes, &s.DurationSecs, &s.OverallScore, &s.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
