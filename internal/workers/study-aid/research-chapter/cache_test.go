package researchchapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"precision-engine/internal/pipeline/research"
)

func setupMiniredis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

func TestCache_Key(t *testing.T) {
	c := NewCache(nil, "research:v1:", time.Hour)

	assert.Equal(t, "research:v1:economics:money and banking", c.Key("Economics", "Money and Banking"))
	assert.Equal(t, c.Key("Economics", "Money and Banking"), c.Key("economics", "  money   AND banking "))
	assert.NotEqual(t, c.Key("Economics", "Money and Banking"), c.Key("Accountancy", "Money and Banking"))
}

func TestCache_PutThenGet(t *testing.T) {
	rdb, mr := setupMiniredis(t)
	c := NewCache(rdb, "research:v1:", 6*time.Hour)
	ctx := context.Background()

	res := sampleResult()
	require.NoError(t, c.Put(ctx, res))
	assert.Equal(t, 6*time.Hour, mr.TTL("research:v1:economics:money and banking"))

	got, err := c.Get(ctx, "Economics", "money and banking")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, res.RunID, got.RunID)
	assert.Equal(t, res.Subtopics, got.Subtopics)
	assert.Equal(t, res.Verification, got.Verification)
}

func TestCache_Miss(t *testing.T) {
	rdb, _ := setupMiniredis(t)
	c := NewCache(rdb, "research:v1:", time.Hour)

	got, err := c.Get(context.Background(), "Economics", "National Income")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_Expired(t *testing.T) {
	rdb, mr := setupMiniredis(t)
	c := NewCache(rdb, "research:v1:", time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, sampleResult()))
	mr.FastForward(2 * time.Minute)

	got, err := c.Get(ctx, "Economics", "Money and Banking")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_GetError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewCache(rdb, "research:v1:", time.Hour)

	mock.ExpectGet("research:v1:economics:money and banking").SetErr(errors.New("connection refused"))

	got, err := c.Get(context.Background(), "Economics", "Money and Banking")
	assert.Error(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_PutWritesExactPayload(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewCache(rdb, "research:v1:", time.Hour)

	res := sampleResult()
	payload, err := json.Marshal(res)
	require.NoError(t, err)
	mock.ExpectSet("research:v1:economics:money and banking", payload, time.Hour).SetVal("OK")

	require.NoError(t, c.Put(context.Background(), res))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func sampleResult() *research.Result {
	return &research.Result{
		RunID:       "run-1",
		ChapterName: "Money and Banking",
		Subject:     "Economics",
		Subtopics: []research.Subtopic{
			{Title: "Functions of money", KeyPoints: []string{"Medium of exchange", "Store of value"}},
		},
		ImportantQuestions: []research.GeneratedQuestion{
			{Question: "Explain the functions of money.", Answer: "Money serves as...", Marks: 4, Type: research.QuestionLong},
		},
		QuickNotes: []string{"RBI is the central bank"},
		Verification: research.Verification{
			Status:          research.StatusVerified,
			ConfidenceScore: 82.5,
		},
		GeneratedAt: "2026-10-17T10:00:00Z",
	}
}
