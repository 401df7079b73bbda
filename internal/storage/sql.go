package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // Postgres driver
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ahrav/go-grader/internal/domain"
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// timeLayout is fixed width so text timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const (
	ownerFeedback = "student_feedback"
	ownerSummary  = "assignment_summary"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore implements Store on database/sql.
type SQLStore struct {
	db       *sql.DB
	numbered bool
	now      func() time.Time
	logger   *slog.Logger
}

// OpenSQL opens the database, verifies the connection and applies the schema.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer; one connection also keeps
		// in-memory databases alive for the store's lifetime.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := NewSQLStore(db, driver)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database. driver selects placeholder syntax.
func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{
		db:       db,
		numbered: driver == DriverPostgres,
		now:      time.Now,
		logger:   slog.Default().With("component", "sql_store", "driver", driver),
	}
}

// Migrate creates any missing tables and indexes.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLStore) Close() error { return s.db.Close() }

// rebind rewrites ? placeholders to $n for Postgres.
func (s *SQLStore) rebind(q string) string {
	if !s.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) exec(ctx context.Context, q querier, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) timestamp() string { return s.now().UTC().Format(timeLayout) }

// SaveAssignment upserts the assignment and replaces its student works.
func (s *SQLStore) SaveAssignment(ctx context.Context, a *domain.Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	ts := s.timestamp()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, `
			INSERT INTO assignments (id, user_id, title, subject, grade_level, instructions, feedback_tone, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				user_id = excluded.user_id,
				title = excluded.title,
				subject = excluded.subject,
				grade_level = excluded.grade_level,
				instructions = excluded.instructions,
				feedback_tone = excluded.feedback_tone,
				updated_at = excluded.updated_at`,
			a.ID, a.UserID, a.Title, a.Subject, a.GradeLevel, a.Instructions, string(a.FeedbackTone), ts, ts,
		); err != nil {
			return fmt.Errorf("failed to upsert assignment %s: %w", a.ID, err)
		}
		for i, w := range a.StudentWorks {
			if _, err := s.exec(ctx, tx, `
				INSERT INTO student_works (id, assignment_id, position, title, content)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (id) DO UPDATE SET
					assignment_id = excluded.assignment_id,
					position = excluded.position,
					title = excluded.title,
					content = excluded.content`,
				w.ID, a.ID, i, w.Title, w.Content,
			); err != nil {
				return fmt.Errorf("failed to upsert student work %s: %w", w.ID, err)
			}
		}
		return nil
	})
}

// LoadAssignment returns the assignment with its student works in order.
func (s *SQLStore) LoadAssignment(ctx context.Context, id string) (*domain.Assignment, error) {
	a := &domain.Assignment{ID: id}
	var tone string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT user_id, title, subject, grade_level, instructions, feedback_tone
		FROM assignments WHERE id = ?`), id,
	).Scan(&a.UserID, &a.Title, &a.Subject, &a.GradeLevel, &a.Instructions, &tone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment %s: %w", id, err)
	}
	a.FeedbackTone = domain.FeedbackTone(tone)

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, title, content FROM student_works
		WHERE assignment_id = ? ORDER BY position`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to load student works: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		w := domain.StudentWork{AssignmentID: id}
		if err := rows.Scan(&w.ID, &w.Title, &w.Content); err != nil {
			return nil, fmt.Errorf("failed to scan student work: %w", err)
		}
		a.StudentWorks = append(a.StudentWorks, w)
	}
	return a, rows.Err()
}

// AssignmentStatus returns the persisted processing status.
func (s *SQLStore) AssignmentStatus(ctx context.Context, id string) (domain.ProcessStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT status FROM assignments WHERE id = ?`), id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load status: %w", err)
	}
	return domain.ProcessStatus(status), nil
}

// SaveRubric replaces the assignment's rubric in one transaction.
func (s *SQLStore) SaveRubric(ctx context.Context, r *domain.Rubric) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.deleteRubric(ctx, tx, r.AssignmentID); err != nil {
			return err
		}
		if _, err := s.exec(ctx, tx,
			`INSERT INTO rubrics (id, assignment_id, created_at) VALUES (?, ?, ?)`,
			r.ID, r.AssignmentID, s.timestamp(),
		); err != nil {
			return fmt.Errorf("failed to insert rubric: %w", err)
		}
		for ci, c := range r.Criteria {
			if _, err := s.exec(ctx, tx,
				`INSERT INTO rubric_criteria (rubric_id, position, title, description) VALUES (?, ?, ?, ?)`,
				r.ID, ci, c.Title, c.Description,
			); err != nil {
				return fmt.Errorf("failed to insert criterion %q: %w", c.Title, err)
			}
			for li, l := range c.Levels {
				if _, err := s.exec(ctx, tx, `
					INSERT INTO rubric_levels (rubric_id, criterion_position, position, title, description, points)
					VALUES (?, ?, ?, ?, ?, ?)`,
					r.ID, ci, li, l.Title, l.Description, l.Points,
				); err != nil {
					return fmt.Errorf("failed to insert level %q: %w", l.Title, err)
				}
			}
		}
		return nil
	})
}

func (s *SQLStore) deleteRubric(ctx context.Context, tx *sql.Tx, assignmentID string) error {
	for _, q := range []string{
		`DELETE FROM rubric_levels WHERE rubric_id IN (SELECT id FROM rubrics WHERE assignment_id = ?)`,
		`DELETE FROM rubric_criteria WHERE rubric_id IN (SELECT id FROM rubrics WHERE assignment_id = ?)`,
		`DELETE FROM rubrics WHERE assignment_id = ?`,
	} {
		if _, err := s.exec(ctx, tx, q, assignmentID); err != nil {
			return fmt.Errorf("failed to replace rubric: %w", err)
		}
	}
	return nil
}

// LoadRubric returns the assignment's rubric.
func (s *SQLStore) LoadRubric(ctx context.Context, assignmentID string) (*domain.Rubric, error) {
	r := &domain.Rubric{AssignmentID: assignmentID}
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT id FROM rubrics WHERE assignment_id = ?`), assignmentID).Scan(&r.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rubric for %s: %w", assignmentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rubric: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT position, title, description FROM rubric_criteria
		WHERE rubric_id = ? ORDER BY position`), r.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load criteria: %w", err)
	}
	for rows.Next() {
		var c domain.Criterion
		if err := rows.Scan(&c.Position, &c.Title, &c.Description); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan criterion: %w", err)
		}
		r.Criteria = append(r.Criteria, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	levels, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT criterion_position, position, title, description, points FROM rubric_levels
		WHERE rubric_id = ? ORDER BY criterion_position, position`), r.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load levels: %w", err)
	}
	defer levels.Close()
	for levels.Next() {
		var ci int
		var l domain.Level
		if err := levels.Scan(&ci, &l.Position, &l.Title, &l.Description, &l.Points); err != nil {
			return nil, fmt.Errorf("failed to scan level: %w", err)
		}
		if ci >= 0 && ci < len(r.Criteria) {
			r.Criteria[ci].Levels = append(r.Criteria[ci].Levels, l)
		}
	}
	return r, levels.Err()
}

// SaveStudentFeedback replaces the submission's feedback in one transaction.
func (s *SQLStore) SaveStudentFeedback(ctx context.Context, f *domain.StudentFeedback) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM criterion_levels WHERE student_feedback_id IN (SELECT id FROM student_feedbacks WHERE student_work_id = ?)`,
			`DELETE FROM feedback_items WHERE owner_kind = '` + ownerFeedback + `' AND owner_id IN (SELECT id FROM student_feedbacks WHERE student_work_id = ?)`,
			`DELETE FROM student_feedbacks WHERE student_work_id = ?`,
		} {
			if _, err := s.exec(ctx, tx, q, f.StudentWorkID); err != nil {
				return fmt.Errorf("failed to replace feedback: %w", err)
			}
		}
		if _, err := s.exec(ctx, tx, `
			INSERT INTO student_feedbacks (id, student_work_id, qualitative_feedback, created_at)
			VALUES (?, ?, ?, ?)`,
			f.ID, f.StudentWorkID, f.QualitativeFeedback, s.timestamp(),
		); err != nil {
			return fmt.Errorf("failed to insert feedback: %w", err)
		}
		for i, cl := range f.CriterionLevels {
			if _, err := s.exec(ctx, tx, `
				INSERT INTO criterion_levels (student_feedback_id, position, criterion_title, level_title, explanation)
				VALUES (?, ?, ?, ?, ?)`,
				f.ID, i, cl.CriterionTitle, cl.LevelTitle, cl.Explanation,
			); err != nil {
				return fmt.Errorf("failed to insert criterion level: %w", err)
			}
		}
		return s.insertItems(ctx, tx, ownerFeedback, f.ID, f.Items)
	})
}

func (s *SQLStore) insertItems(ctx context.Context, tx *sql.Tx, ownerKind, ownerID string, items []domain.FeedbackItem) error {
	for i, it := range items {
		if _, err := s.exec(ctx, tx, `
			INSERT INTO feedback_items (owner_kind, owner_id, position, kind, title, description, evidence)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ownerKind, ownerID, i, string(it.Kind), it.Title, it.Description, it.Evidence,
		); err != nil {
			return fmt.Errorf("failed to insert feedback item %q: %w", it.Title, err)
		}
	}
	return nil
}

func (s *SQLStore) loadItems(ctx context.Context, ownerKind, ownerID string) ([]domain.FeedbackItem, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT kind, title, description, evidence FROM feedback_items
		WHERE owner_kind = ? AND owner_id = ? ORDER BY position`), ownerKind, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback items: %w", err)
	}
	defer rows.Close()
	var items []domain.FeedbackItem
	for rows.Next() {
		var it domain.FeedbackItem
		var kind string
		if err := rows.Scan(&kind, &it.Title, &it.Description, &it.Evidence); err != nil {
			return nil, fmt.Errorf("failed to scan feedback item: %w", err)
		}
		it.Kind = domain.FeedbackKind(kind)
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListStudentFeedback returns the stored feedback for every submission of
// the assignment, in submission order.
func (s *SQLStore) ListStudentFeedback(ctx context.Context, assignmentID string) ([]domain.StudentFeedback, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT f.id, f.student_work_id, f.qualitative_feedback
		FROM student_feedbacks f JOIN student_works w ON w.id = f.student_work_id
		WHERE w.assignment_id = ? ORDER BY w.position`), assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	var out []domain.StudentFeedback
	for rows.Next() {
		var f domain.StudentFeedback
		if err := rows.Scan(&f.ID, &f.StudentWorkID, &f.QualitativeFeedback); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		out = append(out, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		items, err := s.loadItems(ctx, ownerFeedback, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
		levels, err := s.loadCriterionLevels(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].CriterionLevels = levels
	}
	return out, nil
}

func (s *SQLStore) loadCriterionLevels(ctx context.Context, feedbackID string) ([]domain.CriterionLevel, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT criterion_title, level_title, explanation FROM criterion_levels
		WHERE student_feedback_id = ? ORDER BY position`), feedbackID)
	if err != nil {
		return nil, fmt.Errorf("failed to load criterion levels: %w", err)
	}
	defer rows.Close()
	var out []domain.CriterionLevel
	for rows.Next() {
		var cl domain.CriterionLevel
		if err := rows.Scan(&cl.CriterionTitle, &cl.LevelTitle, &cl.Explanation); err != nil {
			return nil, fmt.Errorf("failed to scan criterion level: %w", err)
		}
		out = append(out, cl)
	}
	return out, rows.Err()
}

// SaveAssignmentSummary replaces the assignment's summary in one transaction.
func (s *SQLStore) SaveAssignmentSummary(ctx context.Context, sum *domain.AssignmentSummary) error {
	if err := sum.Validate(); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM feedback_items WHERE owner_kind = '` + ownerSummary + `' AND owner_id IN (SELECT id FROM assignment_summaries WHERE assignment_id = ?)`,
			`DELETE FROM assignment_summaries WHERE assignment_id = ?`,
		} {
			if _, err := s.exec(ctx, tx, q, sum.AssignmentID); err != nil {
				return fmt.Errorf("failed to replace summary: %w", err)
			}
		}
		if _, err := s.exec(ctx, tx, `
			INSERT INTO assignment_summaries (id, assignment_id, student_work_count, qualitative_insights, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			sum.ID, sum.AssignmentID, sum.StudentWorkCount, sum.QualitativeInsights, s.timestamp(),
		); err != nil {
			return fmt.Errorf("failed to insert summary: %w", err)
		}
		return s.insertItems(ctx, tx, ownerSummary, sum.ID, sum.Items)
	})
}

// LoadSummary returns the assignment's summary.
func (s *SQLStore) LoadSummary(ctx context.Context, assignmentID string) (*domain.AssignmentSummary, error) {
	sum := &domain.AssignmentSummary{AssignmentID: assignmentID}
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, student_work_count, qualitative_insights FROM assignment_summaries
		WHERE assignment_id = ?`), assignmentID,
	).Scan(&sum.ID, &sum.StudentWorkCount, &sum.QualitativeInsights)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("summary for %s: %w", assignmentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load summary: %w", err)
	}
	items, err := s.loadItems(ctx, ownerSummary, sum.ID)
	if err != nil {
		return nil, err
	}
	sum.Items = items
	return sum, nil
}

// InsertUsage appends a usage record.
func (s *SQLStore) InsertUsage(ctx context.Context, rec *domain.UsageRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if _, err := s.exec(ctx, s.db, `
		INSERT INTO llm_usage_records (
			id, trackable_kind, trackable_id, user_id, provider, model, request_type,
			input_tokens, output_tokens, token_count, cost_micro_usd, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.TrackableKind), rec.TrackableID, rec.UserID, rec.Provider, rec.Model,
		string(rec.RequestType), rec.InputTokens, rec.OutputTokens, rec.TokenCount, int64(rec.Cost),
		rec.CreatedAt.UTC().Format(timeLayout),
	); err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	return nil
}

// ListUsage returns the usage records of the assignment and its student
// works, oldest first.
func (s *SQLStore) ListUsage(ctx context.Context, assignmentID string) ([]domain.UsageRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, trackable_kind, trackable_id, user_id, provider, model, request_type,
			input_tokens, output_tokens, token_count, cost_micro_usd, created_at
		FROM llm_usage_records
		WHERE trackable_id = ?
			OR trackable_id IN (SELECT id FROM student_works WHERE assignment_id = ?)
		ORDER BY created_at, id`), assignmentID, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}
	defer rows.Close()
	var out []domain.UsageRecord
	for rows.Next() {
		var (
			rec                    domain.UsageRecord
			kind, reqType, created string
			cost                   int64
		)
		if err := rows.Scan(&rec.ID, &kind, &rec.TrackableID, &rec.UserID, &rec.Provider, &rec.Model, &reqType,
			&rec.InputTokens, &rec.OutputTokens, &rec.TokenCount, &cost, &created); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}
		rec.TrackableKind = domain.ProcessableKind(kind)
		rec.RequestType = domain.ProcessType(reqType)
		rec.Cost = domain.MicroUSD(cost)
		if rec.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("failed to parse usage timestamp %q: %w", created, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// UpdateStep upserts a step status.
func (s *SQLStore) UpdateStep(ctx context.Context, assignmentID string, step domain.Step, status domain.StepStatus) error {
	if _, err := s.exec(ctx, s.db, `
		INSERT INTO processing_steps (assignment_id, step, status, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (assignment_id, step) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at`,
		assignmentID, string(step), string(status), s.timestamp(),
	); err != nil {
		return fmt.Errorf("failed to update step %s: %w", step, err)
	}
	return nil
}

// ListSteps returns the recorded steps in display order.
func (s *SQLStore) ListSteps(ctx context.Context, assignmentID string) ([]StepRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT step, status FROM processing_steps WHERE assignment_id = ?`), assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}
	defer rows.Close()
	byStep := make(map[domain.Step]domain.StepStatus)
	for rows.Next() {
		var step, status string
		if err := rows.Scan(&step, &status); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		byStep[domain.Step(step)] = domain.StepStatus(status)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orderSteps(byStep), nil
}

func orderSteps(byStep map[domain.Step]domain.StepStatus) []StepRecord {
	out := make([]StepRecord, 0, len(byStep))
	for _, step := range domain.Steps() {
		if status, ok := byStep[step]; ok {
			out = append(out, StepRecord{Step: step, Status: status})
		}
	}
	return out
}

// UpdateStatus sets the status of an assignment or student work. Summary
// subjects have no status of their own.
func (s *SQLStore) UpdateStatus(ctx context.Context, subject domain.Processable, status domain.ProcessStatus) error {
	var (
		query string
		args  []any
	)
	switch subject.(type) {
	case *domain.Assignment:
		query = `UPDATE assignments SET status = ?, updated_at = ? WHERE id = ?`
		args = []any{string(status), s.timestamp(), subject.ProcessableID()}
	case *domain.StudentWork:
		query = `UPDATE student_works SET status = ? WHERE id = ?`
		args = []any{string(status), subject.ProcessableID()}
	default:
		return nil
	}
	res, err := s.exec(ctx, s.db, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s %s: %w", subject.Kind(), subject.ProcessableID(), ErrNotFound)
	}
	return nil
}
