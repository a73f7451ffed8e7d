package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/mockinterview/internal/logger"
	"github.com/yoockh/mockinterview/internal/services"
)

type fakeResults struct {
	mu        sync.Mutex
	generated []string
	err       error
}

func (f *fakeResults) Get(context.Context, string, string) (*services.Results, error) {
	return nil, errors.New("not used")
}

func (f *fakeResults) Generate(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generated = append(f.generated, sessionID)
	return f.err
}

func (f *fakeResults) sessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.generated...)
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestAnalysisQueue_Enqueue(t *testing.T) {
	rdb := newRedis(t)
	q := NewAnalysisQueue(rdb)

	require.NoError(t, q.Enqueue(context.Background(), "s1"))
	assert.Error(t, q.Enqueue(context.Background(), ""))

	msgs, err := rdb.XRange(context.Background(), DefaultAnalysisStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "s1", msgs[0].Values["session_id"])
}

func TestAnalysisWorkerPool_ConsumesQueuedSessions(t *testing.T) {
	rdb := newRedis(t)
	q := NewAnalysisQueue(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Enqueue(ctx, "s1"))
	require.NoError(t, q.Enqueue(ctx, "s2"))

	results := &fakeResults{}
	pool := &AnalysisWorkerPool{Redis: rdb, Results: results, NumWorkers: 1, Logger: logger.Discard()}
	require.NoError(t, pool.Start(ctx))

	require.Eventually(t, func() bool { return len(results.sessions()) == 2 }, 3*time.Second, 20*time.Millisecond)
	assert.ElementsMatch(t, []string{"s1", "s2"}, results.sessions())

	// starting again against the existing group is fine
	require.NoError(t, (&AnalysisWorkerPool{Redis: rdb, Results: results, Logger: logger.Discard()}).Start(ctx))
}

func TestAnalysisWorkerPool_MissingDeps(t *testing.T) {
	assert.Error(t, (&AnalysisWorkerPool{}).Start(context.Background()))
}

func TestHandleMsg_IgnoresEmptySession(t *testing.T) {
	results := &fakeResults{}
	pool := &AnalysisWorkerPool{Results: results, Logger: logger.Discard()}
	pool.handleMsg(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]any{}})
	assert.Empty(t, results.sessions())
}
