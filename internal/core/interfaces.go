package core

import (
	"context"
	"time"

	"github.com/vardhanngg/vibron-socket/internal/domain"
)

// Frame is a marshaled outbound event, ready for the wire.
type Frame []byte

// SessionID identifies one connection for its whole lifetime. It is what
// RoomState.Users and RoomState.LeaderID hold.
type SessionID string

// SignalConnection abstracts the messaging transport of one session.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// RoomStore is the expiring key-value capability the registry runs on.
// Implementations must:
//   - return domain.ErrRoomNotFound from Get on a missing key,
//   - wrap backend faults in domain.ErrStoreUnavailable,
//   - bound every operation with a timeout rather than hang.
//
// Put overwrites and resets the expiry on every call; that refresh is how a
// live room outlasts its TTL.
type RoomStore interface {
	Get(ctx context.Context, id domain.RoomID) (*domain.RoomState, error)
	Put(ctx context.Context, id domain.RoomID, state *domain.RoomState, ttl time.Duration) error
	Delete(ctx context.Context, id domain.RoomID) error
	Keys(ctx context.Context) ([]domain.RoomID, error)
}

// Broadcaster fans frames out to live connections. Delivery is fire and
// forget: a slow consumer's frame is dropped, never awaited.
type Broadcaster interface {
	Emit(sid SessionID, f Frame)
	EmitRoom(id domain.RoomID, f Frame)
}
