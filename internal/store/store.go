// Package store persists subjects, chapters, questions and answers in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"precision-engine/internal/common/logger"
	"precision-engine/internal/models"
)

var (
	ErrSubjectNotFound   = errors.New("SUBJECT_NOT_FOUND")
	ErrChapterNotFound   = errors.New("CHAPTER_NOT_FOUND")
	ErrPersistenceFailed = errors.New("PERSISTENCE_FAILED")
)

//go:embed schema.sql
var schema string

type Store struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.With(map[string]interface{}{"component": "store"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: migrate: %v", ErrPersistenceFailed, err)
	}
	return nil
}

// StudyContext is the resolved subject and optional chapter of a question.
type StudyContext struct {
	Subject models.Subject
	Chapter *models.Chapter
}

func (c *StudyContext) ChapterName() string {
	if c.Chapter == nil {
		return ""
	}
	return c.Chapter.Name
}

// ResolveContext loads the subject and, when chapterID is set, the chapter. A
// chapter that belongs to another subject is reported as not found.
func (s *Store) ResolveContext(ctx context.Context, subjectID, chapterID string) (*StudyContext, error) {
	var sc StudyContext
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, code, description, created_at
		FROM subjects
		WHERE id = $1`, subjectID).Scan(
		&sc.Subject.ID, &sc.Subject.Name, &sc.Subject.Code, &sc.Subject.Description, &sc.Subject.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSubjectNotFound, subjectID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load subject: %v", ErrPersistenceFailed, err)
	}

	if chapterID == "" {
		return &sc, nil
	}

	var ch models.Chapter
	err = s.db.QueryRowContext(ctx, `
		SELECT id, subject_id, name, display_order, created_at
		FROM chapters
		WHERE id = $1`, chapterID).Scan(
		&ch.ID, &ch.SubjectID, &ch.Name, &ch.DisplayOrder, &ch.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && ch.SubjectID != subjectID) {
		return nil, fmt.Errorf("%w: %s", ErrChapterNotFound, chapterID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load chapter: %v", ErrPersistenceFailed, err)
	}
	sc.Chapter = &ch
	return &sc, nil
}

// SaveQuestion inserts q, filling in its ID and CreatedAt.
func (s *Store) SaveQuestion(ctx context.Context, q *models.Question) error {
	q.ID = uuid.NewString()
	q.CreatedAt = s.now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO questions (id, user_id, subject_id, chapter_id, question_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		q.ID, q.UserID, q.SubjectID, nullString(q.ChapterID), q.QuestionText, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert question: %v", ErrPersistenceFailed, err)
	}
	return nil
}

// SaveAnswer inserts a, filling in its ID and CreatedAt.
func (s *Store) SaveAnswer(ctx context.Context, a *models.Answer) error {
	a.ID = uuid.NewString()
	a.CreatedAt = s.now()

	concepts := a.ReferencedConcepts
	if concepts == nil {
		concepts = []string{}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO answers (
			id, question_id, layer1_output, layer2_output, layer3_output, layer4_output,
			final_answer, confidence_score, referenced_concepts, retries,
			processing_time_ms, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.QuestionID,
		[]byte(a.Layer1Output), []byte(a.Layer2Output), []byte(a.Layer3Output), []byte(a.Layer4Output),
		a.FinalAnswer, a.ConfidenceScore, pq.Array(concepts), a.Retries,
		a.ProcessingTimeMs, a.Status, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert answer: %v", ErrPersistenceFailed, err)
	}
	return nil
}

// QuestionHistory returns a page of the user's questions, newest first, with a
// summary of each answer, plus the user's total question count.
func (s *Store) QuestionHistory(ctx context.Context, userID string, limit, offset int) ([]models.Question, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%w: count questions: %v", ErrPersistenceFailed, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.user_id, q.subject_id, q.chapter_id, q.question_text, q.created_at,
		       a.id, a.final_answer, a.confidence_score, a.referenced_concepts, a.status, a.created_at
		FROM questions q
		LEFT JOIN answers a ON a.question_id = q.id
		WHERE q.user_id = $1
		ORDER BY q.created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: list questions: %v", ErrPersistenceFailed, err)
	}
	defer rows.Close()

	questions := []models.Question{}
	for rows.Next() {
		var (
			q           models.Question
			chapterID   sql.NullString
			answerID    sql.NullString
			finalAnswer sql.NullString
			confidence  sql.NullFloat64
			concepts    pq.StringArray
			status      sql.NullString
			answeredAt  sql.NullTime
		)
		if err := rows.Scan(
			&q.ID, &q.UserID, &q.SubjectID, &chapterID, &q.QuestionText, &q.CreatedAt,
			&answerID, &finalAnswer, &confidence, &concepts, &status, &answeredAt,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scan question: %v", ErrPersistenceFailed, err)
		}
		if chapterID.Valid {
			q.ChapterID = &chapterID.String
		}
		if answerID.Valid {
			q.Answer = &models.Answer{
				ID:                 answerID.String,
				QuestionID:         q.ID,
				FinalAnswer:        finalAnswer.String,
				ConfidenceScore:    confidence.Float64,
				ReferencedConcepts: []string(concepts),
				Status:             status.String,
				CreatedAt:          answeredAt.Time,
			}
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterate questions: %v", ErrPersistenceFailed, err)
	}
	return questions, total, nil
}

// ListSubjects returns all subjects with their chapters in display order.
func (s *Store) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.code, s.description, s.created_at,
		       c.id, c.name, c.display_order, c.created_at
		FROM subjects s
		LEFT JOIN chapters c ON c.subject_id = s.id
		ORDER BY s.created_at, s.name, c.display_order`)
	if err != nil {
		return nil, fmt.Errorf("%w: list subjects: %v", ErrPersistenceFailed, err)
	}
	defer rows.Close()

	subjects := []models.Subject{}
	index := map[string]int{}
	for rows.Next() {
		var (
			sub       models.Subject
			chID      sql.NullString
			chName    sql.NullString
			chOrder   sql.NullInt64
			chCreated sql.NullTime
		)
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Code, &sub.Description, &sub.CreatedAt,
			&chID, &chName, &chOrder, &chCreated); err != nil {
			return nil, fmt.Errorf("%w: scan subject: %v", ErrPersistenceFailed, err)
		}

		i, ok := index[sub.ID]
		if !ok {
			sub.Chapters = []models.Chapter{}
			subjects = append(subjects, sub)
			i = len(subjects) - 1
			index[sub.ID] = i
		}
		if chID.Valid {
			subjects[i].Chapters = append(subjects[i].Chapters, models.Chapter{
				ID:           chID.String,
				SubjectID:    sub.ID,
				Name:         chName.String,
				DisplayOrder: int(chOrder.Int64),
				CreatedAt:    chCreated.Time,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate subjects: %v", ErrPersistenceFailed, err)
	}
	return subjects, nil
}

// Seed inserts catalogue subjects that do not exist yet, with their chapters, and
// returns how many subjects were created. Existing subjects are left untouched.
func (s *Store) Seed(ctx context.Context, catalogue []models.CatalogueEntry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin seed: %v", ErrPersistenceFailed, err)
	}
	defer tx.Rollback()

	created := 0
	for _, entry := range catalogue {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM subjects WHERE name = $1)`, entry.Name).Scan(&exists); err != nil {
			return 0, fmt.Errorf("%w: check subject %s: %v", ErrPersistenceFailed, entry.Name, err)
		}
		if exists {
			s.logger.Debug("subject already seeded", map[string]interface{}{"subject": entry.Name})
			continue
		}

		subjectID := uuid.NewString()
		now := s.now()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO subjects (id, name, code, description, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			subjectID, entry.Name, entry.Code, entry.Description, now,
		); err != nil {
			return 0, fmt.Errorf("%w: insert subject %s: %v", ErrPersistenceFailed, entry.Name, err)
		}

		for i, name := range entry.Chapters {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO chapters (id, subject_id, name, display_order, created_at)
				VALUES ($1, $2, $3, $4, $5)`,
				uuid.NewString(), subjectID, name, i+1, now,
			); err != nil {
				return 0, fmt.Errorf("%w: insert chapter %q: %v", ErrPersistenceFailed, name, err)
			}
		}
		created++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit seed: %v", ErrPersistenceFailed, err)
	}

	s.logger.Info("catalogue seeded", map[string]interface{}{"created": created})
	return created, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
