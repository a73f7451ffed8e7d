package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoockh/mockinterview/internal/logger"
)

func TestVoiceSessionStore_ExplicitMapping(t *testing.T) {
	c, mr := newTestCache(t)
	store := NewVoiceSessionStore(c, nil, time.Hour, false, logger.Discard())
	ctx := context.Background()

	require.NoError(t, store.Register(ctx, "voice-1", "interview-1"))

	id, src, err := store.Resolve(ctx, "voice-1")
	require.NoError(t, err)
	assert.Equal(t, "interview-1", id)
	assert.Equal(t, ResolvedExplicit, src)

	mr.FastForward(2 * time.Hour)
	id, _, err = store.Resolve(ctx, "voice-1")
	require.NoError(t, err)
	assert.Empty(t, id, "mapping expires with its TTL")
}

func TestVoiceSessionStore_RegisterRequiresIDs(t *testing.T) {
	c, _ := newTestCache(t)
	store := NewVoiceSessionStore(c, nil, time.Hour, false, logger.Discard())

	assert.Error(t, store.Register(context.Background(), "", "interview-1"))
	assert.Error(t, store.Register(context.Background(), "voice-1", ""))
}

func TestVoiceSessionStore_NoFallback(t *testing.T) {
	c, _ := newTestCache(t)
	store := NewVoiceSessionStore(c, newMemBuffers(), time.Hour, false, logger.Discard())
	ctx := context.Background()

	require.NoError(t, store.Register(ctx, "voice-1", "interview-1"))

	id, src, err := store.Resolve(ctx, "voice-2")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, src)
}

func TestVoiceSessionStore_FallbackToLastRegistered(t *testing.T) {
	c, _ := newTestCache(t)
	store := NewVoiceSessionStore(c, newMemBuffers(), time.Hour, true, logger.Discard())
	ctx := context.Background()

	require.NoError(t, store.Register(ctx, "voice-1", "interview-1"))

	id, src, err := store.Resolve(ctx, "voice-2")
	require.NoError(t, err)
	assert.Equal(t, "interview-1", id)
	assert.Equal(t, ResolvedLastRegistered, src)
}

func TestVoiceSessionStore_FallbackToRecentBuffer(t *testing.T) {
	c, _ := newTestCache(t)
	buffers := newMemBuffers()
	store := NewVoiceSessionStore(c, buffers, time.Hour, true, logger.Discard())
	ctx := context.Background()

	id, _, err := store.Resolve(ctx, "voice-1")
	require.NoError(t, err)
	assert.Empty(t, id, "nothing active yet")

	require.NoError(t, buffers.SetCandidateText(ctx, "interview-9", "hello", "t1"))

	id, src, err := store.Resolve(ctx, "voice-1")
	require.NoError(t, err)
	assert.Equal(t, "interview-9", id)
	assert.Equal(t, ResolvedRecentBuffer, src)
}

func TestVoiceSessionStore_Forget(t *testing.T) {
	c, _ := newTestCache(t)
	store := NewVoiceSessionStore(c, nil, time.Hour, false, logger.Discard())
	ctx := context.Background()

	require.NoError(t, store.Register(ctx, "voice-1", "interview-1"))
	require.NoError(t, store.Forget(ctx, "voice-1"))
	require.NoError(t, store.Forget(ctx, ""))

	id, _, err := store.Resolve(ctx, "voice-1")
	require.NoError(t, err)
	assert.Empty(t, id)
}
