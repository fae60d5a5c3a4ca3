package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Exam is one exam run, open or completed. ReportJSON holds the serialized
// final report once the exam completes.
type Exam struct {
	ID                  string
	UserID              string
	StartedAt           time.Time
	CompletedAt         *time.Time
	HighestLevel        string
	OverallScore        float64
	CertificateEligible bool
	ReportJSON          string
}

// ExamRepo persists exam runs.
type ExamRepo interface {
	Create(ctx context.Context, id, userID string, startedAt time.Time) error
	Complete(ctx context.Context, id string, completedAt time.Time, highestLevel string, overallScore float64, certificate bool, reportJSON string) error
	Get(ctx context.Context, id string) (*Exam, error)
	List(ctx context.Context, limit int) ([]Exam, error)
}

type examRepo struct {
	db *sql.DB
}

func (r *examRepo) Create(ctx context.Context, id, userID string, startedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO exams (id, user_id, started_at) VALUES (?, ?, ?)`,
		id, userID, startedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}
	return nil
}

func (r *examRepo) Complete(ctx context.Context, id string, completedAt time.Time, highestLevel string, overallScore float64, certificate bool, reportJSON string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE exams
		 SET completed_at = ?, highest_level = ?, overall_score = ?, certificate_eligible = ?, report_json = ?
		 WHERE id = ?`,
		completedAt.UTC(), highestLevel, overallScore, boolToInt(certificate), reportJSON, id,
	)
	if err != nil {
		return fmt.Errorf("complete exam: %w", err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("complete exam: no exam with id %s", id)
	}
	return nil
}

func (r *examRepo) Get(ctx context.Context, id string) (*Exam, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, started_at, completed_at, highest_level, overall_score, certificate_eligible, report_json
		 FROM exams WHERE id = ?`, id)
	e, err := scanExam(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return e, nil
}

func (r *examRepo) List(ctx context.Context, limit int) ([]Exam, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, started_at, completed_at, highest_level, overall_score, certificate_eligible, report_json
		 FROM exams ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	defer rows.Close()

	var out []Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExam(row rowScanner) (*Exam, error) {
	var (
		e         Exam
		completed sql.NullTime
		cert      int
	)
	err := row.Scan(&e.ID, &e.UserID, &e.StartedAt, &completed, &e.HighestLevel, &e.OverallScore, &cert, &e.ReportJSON)
	if err != nil {
		return nil, err
	}
	if completed.Valid {
		t := completed.Time
		e.CompletedAt = &t
	}
	e.CertificateEligible = cert != 0
	return &e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
