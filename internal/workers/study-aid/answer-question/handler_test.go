package answerquestion

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"precision-engine/internal/common/config"
	apperrors "precision-engine/internal/common/errors"
	"precision-engine/internal/common/logger"
	"precision-engine/internal/pipeline/verification"
	"precision-engine/internal/store"
)

// ==========================
// Helpers
// ==========================

type fakePipeline struct {
	mu     sync.Mutex
	calls  [][3]string
	result *verification.Result
}

func (f *fakePipeline) Process(_ context.Context, question, subject, chapter string) *verification.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, [3]string{question, subject, chapter})
	return f.result
}

func completedResult() *verification.Result {
	return &verification.Result{
		RunID: "run-1",
		Layer1: verification.GenerateOutput{
			Answer:             "Money is a medium of exchange.",
			KeyPoints:          []string{"medium of exchange"},
			ReferencedConcepts: []string{"Barter system"},
			Confidence:         90,
		},
		Layer2: verification.ValidateOutput{
			SyllabusAlignment: "Covers the functions listed in the NCERT chapter",
			MissingKeywords:   []string{},
			IrrelevantPoints:  []string{},
			AlignmentScore:    95,
		},
		Layer3: verification.AuditOutput{LogicalErrors: []string{}, Severity: verification.SeverityNone},
		Layer4: verification.ScoreOutput{
			PredictedScore:    3.5,
			MaxMarks:          4,
			ScorePercentage:   92,
			MissingComponents: []string{},
		},
		FinalAnswer:        "Money is a medium of exchange.",
		ConfidenceScore:    90,
		ReferencedConcepts: []string{"Barter system"},
		Status:             verification.StatusCompleted,
	}
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second, MinQuestionLen: 10, MaxQuestionLen: 5000}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func createTestInput() *Input {
	return &Input{
		UserID:       "user-1",
		SubjectID:    "sub-eco",
		ChapterID:    "ch-money",
		QuestionText: "What are the functions of money?",
	}
}

func setupStore(t *testing.T) (*store.Store, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.New(db, createTestLogger(t)), mock, db
}

func expectSubject(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("FROM subjects").
		WithArgs("sub-eco").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "code", "description", "created_at"}).
			AddRow("sub-eco", "Economics", "ECO", "Macro and micro economics", time.Now()))
}

func expectChapter(mock sqlmock.Sqlmock, subjectID string) {
	mock.ExpectQuery("FROM chapters").
		WithArgs("ch-money").
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject_id", "name", "display_order", "created_at"}).
			AddRow("ch-money", subjectID, "Money and Banking", 6, time.Now()))
}

// ==========================
// Without a database
// ==========================

func TestHandler_Execute_BySubjectName(t *testing.T) {
	pipe := &fakePipeline{result: completedResult()}
	h := NewHandler(createTestConfig(), pipe, nil, createTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{
		Subject:      "Economics",
		Chapter:      "Money and Banking",
		QuestionText: "  What are the functions of money?  ",
	})
	require.NoError(t, err)

	require.Len(t, pipe.calls, 1)
	assert.Equal(t, [3]string{"What are the functions of money?", "Economics", "Money and Banking"}, pipe.calls[0])

	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, verification.StatusCompleted, out.Status)
	assert.Equal(t, 90.0, out.ConfidenceScore)
	assert.Empty(t, out.QuestionID)
	assert.Empty(t, out.AnswerID)
	assert.Same(t, pipe.result, out.Result)
}

func TestHandler_Execute_Validation(t *testing.T) {
	st, _, _ := setupStore(t)

	tests := []struct {
		name  string
		store Store
		input *Input
	}{
		{"nil input", nil, nil},
		{"question too short", nil, &Input{Subject: "Economics", QuestionText: "Why?"}},
		{"question too long", nil, &Input{Subject: "Economics", QuestionText: strings.Repeat("a", 5001)}},
		{"blank question", nil, &Input{Subject: "Economics", QuestionText: "            "}},
		{"missing subject", nil, &Input{QuestionText: "What are the functions of money?"}},
		{"unknown subject", nil, &Input{Subject: "Physics", QuestionText: "What is Newton's first law?"}},
		{"subject id without database", nil, &Input{SubjectID: "sub-eco", QuestionText: "What are the functions of money?"}},
		{"missing user with database", st, &Input{SubjectID: "sub-eco", QuestionText: "What are the functions of money?"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipe := &fakePipeline{result: completedResult()}
			h := NewHandler(createTestConfig(), pipe, tt.store, createTestLogger(t))

			_, err := h.Execute(context.Background(), tt.input)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Empty(t, pipe.calls)
		})
	}
}

// ==========================
// With a database
// ==========================

func TestHandler_Execute_PersistsQuestionAndAnswer(t *testing.T) {
	st, mock, _ := setupStore(t)
	pipe := &fakePipeline{result: completedResult()}
	h := NewHandler(createTestConfig(), pipe, st, createTestLogger(t))

	expectSubject(mock)
	expectChapter(mock, "sub-eco")
	mock.ExpectExec("INSERT INTO questions").
		WithArgs(sqlmock.AnyArg(), "user-1", "sub-eco", sqlmock.AnyArg(), "What are the functions of money?", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO answers").
		WithArgs(
			sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"Money is a medium of exchange.", 90.0, sqlmock.AnyArg(), 0,
			sqlmock.AnyArg(), "completed", sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := h.Execute(context.Background(), createTestInput())
	require.NoError(t, err)

	require.Len(t, pipe.calls, 1)
	assert.Equal(t, "Economics", pipe.calls[0][1])
	assert.Equal(t, "Money and Banking", pipe.calls[0][2])

	assert.NotEmpty(t, out.QuestionID)
	assert.NotEmpty(t, out.AnswerID)
	assert.NotEqual(t, out.QuestionID, out.AnswerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_PersistsFailedRun(t *testing.T) {
	st, mock, _ := setupStore(t)
	failed := &verification.Result{
		RunID:       "run-2",
		FinalAnswer: "Unable to generate a verified answer.",
		Retries:     2,
		Status:      verification.StatusFailed,
	}
	h := NewHandler(createTestConfig(), &fakePipeline{result: failed}, st, createTestLogger(t))

	expectSubject(mock)
	mock.ExpectExec("INSERT INTO questions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO answers").
		WithArgs(
			sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			failed.FinalAnswer, 0.0, sqlmock.AnyArg(), 2,
			sqlmock.AnyArg(), "failed", sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	input := createTestInput()
	input.ChapterID = ""
	out, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, verification.StatusFailed, out.Status)
	assert.Equal(t, 2, out.Retries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_SubjectNotFound(t *testing.T) {
	st, mock, _ := setupStore(t)
	pipe := &fakePipeline{result: completedResult()}
	h := NewHandler(createTestConfig(), pipe, st, createTestLogger(t))

	mock.ExpectQuery("FROM subjects").WithArgs("sub-eco").WillReturnError(sql.ErrNoRows)

	input := createTestInput()
	_, err := h.Execute(context.Background(), input)
	require.ErrorIs(t, err, store.ErrSubjectNotFound)
	assert.Empty(t, pipe.calls)

	stdErr := h.toStandardError(err, input)
	assert.Equal(t, apperrors.ErrCodeSubjectNotFound, stdErr.Code)
	assert.False(t, stdErr.Retryable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_ChapterOfAnotherSubject(t *testing.T) {
	st, mock, _ := setupStore(t)
	pipe := &fakePipeline{result: completedResult()}
	h := NewHandler(createTestConfig(), pipe, st, createTestLogger(t))

	expectSubject(mock)
	expectChapter(mock, "sub-acc")

	input := createTestInput()
	_, err := h.Execute(context.Background(), input)
	require.ErrorIs(t, err, store.ErrChapterNotFound)
	assert.Empty(t, pipe.calls)
	assert.Equal(t, apperrors.ErrCodeChapterNotFound, h.toStandardError(err, input).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_SaveAnswerFails(t *testing.T) {
	st, mock, _ := setupStore(t)
	h := NewHandler(createTestConfig(), &fakePipeline{result: completedResult()}, st, createTestLogger(t))

	expectSubject(mock)
	expectChapter(mock, "sub-eco")
	mock.ExpectExec("INSERT INTO questions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO answers").WillReturnError(errors.New("connection reset"))

	input := createTestInput()
	_, err := h.Execute(context.Background(), input)
	require.ErrorIs(t, err, store.ErrPersistenceFailed)

	stdErr := h.toStandardError(err, input)
	assert.Equal(t, apperrors.ErrCodePersistenceFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Error mapping and records
// ==========================

func TestHandler_ErrorMapping(t *testing.T) {
	h := NewHandler(createTestConfig(), &fakePipeline{}, nil, createTestLogger(t))
	input := createTestInput()

	tests := []struct {
		err  error
		code apperrors.ErrorCode
	}{
		{ErrInvalidInput, apperrors.ErrCodeInvalidInput},
		{store.ErrSubjectNotFound, apperrors.ErrCodeSubjectNotFound},
		{store.ErrChapterNotFound, apperrors.ErrCodeChapterNotFound},
		{store.ErrPersistenceFailed, apperrors.ErrCodePersistenceFailed},
		{context.DeadlineExceeded, apperrors.ErrCodeTimeout},
		{errors.New("boom"), apperrors.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.code, h.toStandardError(tt.err, input).Code)
		})
	}
}

func TestAnswerRecord_EncodesEveryLayer(t *testing.T) {
	a, err := answerRecord("q-1", completedResult())
	require.NoError(t, err)

	assert.Equal(t, "q-1", a.QuestionID)
	assert.Equal(t, "completed", a.Status)

	var l2 verification.ValidateOutput
	require.NoError(t, json.Unmarshal(a.Layer2Output, &l2))
	assert.Equal(t, 95.0, l2.AlignmentScore)

	var l4 map[string]interface{}
	require.NoError(t, json.Unmarshal(a.Layer4Output, &l4))
	assert.Equal(t, 4.0, l4["max_marks"])
	assert.JSONEq(t, `{"logical_errors":[],"severity":"none"}`, string(a.Layer3Output))
}

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(config.WorkerConfig{})
	assert.Equal(t, 10*time.Minute, cfg.Timeout)
	assert.Equal(t, 10, cfg.MinQuestionLen)
	assert.Equal(t, 5000, cfg.MaxQuestionLen)
}
