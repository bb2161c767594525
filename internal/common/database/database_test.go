package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"precision-engine/internal/common/config"
)

func setupRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := NewRedis(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedis_JSONRoundTripWithTTL(t *testing.T) {
	client, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))
	require.NoError(t, SetJSON(ctx, client.Client, "research:v1:economics:money", map[string]int{"n": 3}, time.Hour))

	var got map[string]int
	require.NoError(t, GetJSON(ctx, client.Client, "research:v1:economics:money", &got))
	assert.Equal(t, 3, got["n"])
	assert.Equal(t, time.Hour, mr.TTL("research:v1:economics:money"))
}

func TestRedis_GetJSONMiss(t *testing.T) {
	client, _ := setupRedis(t)

	var got map[string]int
	err := GetJSON(context.Background(), client.Client, "absent", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedis_GetJSONCorrupt(t *testing.T) {
	client, mr := setupRedis(t)
	require.NoError(t, mr.Set("bad", "{not json"))

	var got map[string]int
	err := GetJSON(context.Background(), client.Client, "bad", &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func newFakeElasticsearch(t *testing.T, handler http.HandlerFunc) *ElasticsearchClient {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
	require.NoError(t, err)
	return es
}

func TestElasticsearch_EnsureIndexCreatesMissing(t *testing.T) {
	var created bool
	es := newFakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created = true
			_, _ = w.Write([]byte(`{"acknowledged":true,"index":"chapter-research"}`))
		default:
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{}`))
		}
	})

	require.NoError(t, es.EnsureIndex(context.Background(), "chapter-research", `{"mappings":{}}`))
	assert.True(t, created)
}

func TestElasticsearch_EnsureIndexSkipsExisting(t *testing.T) {
	es := newFakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			t.Errorf("index should not be recreated")
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, es.EnsureIndex(context.Background(), "chapter-research", `{}`))
}

func TestElasticsearch_Ping(t *testing.T) {
	es := newFakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	assert.NoError(t, es.Ping(context.Background()))
}
