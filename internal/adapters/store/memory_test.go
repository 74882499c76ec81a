package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vardhanngg/vibron-socket/internal/domain"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	in := domain.NewRoomState("conn-1", true)
	in.SetSong("https://cdn/a.mp3", "trk-1", "Title", "Artist", "img")
	require.NoError(t, m.Put(ctx, "abc123", in, time.Minute))

	out, err := m.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestMemoryCopiesOnPutAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	in := domain.NewRoomState("conn-1", false)
	require.NoError(t, m.Put(ctx, "abc123", in, time.Minute))

	// Mutating the caller's copy after Put must not leak into the store.
	in.AddMember("conn-2")
	out, err := m.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, []string{"conn-1"}, out.Users)

	// Nor may mutating a Get result.
	out.AddMember("conn-3")
	again, err := m.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, []string{"conn-1"}, again.Users)
}

func TestMemoryGetMissing(t *testing.T) {
	m := NewMemory()
	_, err := m.Get(context.Background(), "zzzzzz")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Put(ctx, "abc123", domain.NewRoomState("c", false), time.Hour))

	now = now.Add(30 * time.Minute)
	_, err := m.Get(ctx, "abc123")
	require.NoError(t, err)

	// A write refreshes the window.
	require.NoError(t, m.Put(ctx, "abc123", domain.NewRoomState("c", false), time.Hour))
	now = now.Add(59 * time.Minute)
	_, err = m.Get(ctx, "abc123")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = m.Get(ctx, "abc123")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	keys, err := m.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMemoryDeleteAndKeys(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Put(ctx, "aaaaaa", domain.NewRoomState("a", false), time.Minute))
	require.NoError(t, m.Put(ctx, "bbbbbb", domain.NewRoomState("b", false), time.Minute))

	keys, err := m.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.RoomID{"aaaaaa", "bbbbbb"}, keys)

	require.NoError(t, m.Delete(ctx, "aaaaaa"))
	_, err = m.Get(ctx, "aaaaaa")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	keys, err = m.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.RoomID{"bbbbbb"}, keys)
}
