package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/vardhanngg/vibron-socket/internal/core"
	"github.com/vardhanngg/vibron-socket/internal/domain"
)

// Registry tracks live connections and their room groups. It also keeps the
// reverse index (connection -> rooms) so a disconnect only touches the rooms
// that connection is actually in, instead of sweeping the whole store.
type Registry struct {
	mu      sync.RWMutex
	conns   map[core.SessionID]core.SignalConnection
	members map[domain.RoomID]map[core.SessionID]struct{}
	rooms   map[core.SessionID]map[domain.RoomID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[core.SessionID]core.SignalConnection),
		members: make(map[domain.RoomID]map[core.SessionID]struct{}),
		rooms:   make(map[core.SessionID]map[domain.RoomID]struct{}),
	}
}

func (r *Registry) Bind(sid core.SessionID, conn core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[sid] = conn
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("bound connection")
}

// Unbind drops the connection and all of its group memberships. The caller
// is expected to have already cleaned up the persisted records.
func (r *Registry) Unbind(sid core.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.rooms[sid] {
		r.dropMember(id, sid)
	}
	delete(r.rooms, sid)
	delete(r.conns, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbound connection")
}

func (r *Registry) JoinRoom(sid core.SessionID, id domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[id] == nil {
		r.members[id] = make(map[core.SessionID]struct{})
	}
	r.members[id][sid] = struct{}{}
	if r.rooms[sid] == nil {
		r.rooms[sid] = make(map[domain.RoomID]struct{})
	}
	r.rooms[sid][id] = struct{}{}
}

func (r *Registry) LeaveRoom(sid core.SessionID, id domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropMember(id, sid)
	if set, ok := r.rooms[sid]; ok {
		delete(set, id)
		if len(set) == 0 {
			delete(r.rooms, sid)
		}
	}
}

// dropMember must run under the write lock.
func (r *Registry) dropMember(id domain.RoomID, sid core.SessionID) {
	if set, ok := r.members[id]; ok {
		delete(set, sid)
		if len(set) == 0 {
			delete(r.members, id)
		}
	}
}

// RoomsOf returns every room group the connection has joined.
func (r *Registry) RoomsOf(sid core.SessionID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.RoomID, 0, len(r.rooms[sid]))
	for id := range r.rooms[sid] {
		out = append(out, id)
	}
	return out
}

// Emit sends to one connection, dropping the frame on backpressure.
func (r *Registry) Emit(sid core.SessionID, f core.Frame) {
	r.mu.RLock()
	conn, ok := r.conns[sid]
	r.mu.RUnlock()
	if !ok {
		return
	}
	if err := conn.TrySend(f); err != nil {
		log.Warn().Str("module", "app.registry").Str("sid", string(sid)).Err(err).Msg("emit dropped")
	}
}

// EmitRoom fans a frame out to every member of the room's group. No
// acknowledgment is awaited; slow consumers lose the frame and catch up on
// the next reconcile pass.
func (r *Registry) EmitRoom(id domain.RoomID, f core.Frame) {
	r.mu.RLock()
	targets := make([]core.SignalConnection, 0, len(r.members[id]))
	sids := make([]core.SessionID, 0, len(r.members[id]))
	for sid := range r.members[id] {
		if conn, ok := r.conns[sid]; ok {
			targets = append(targets, conn)
			sids = append(sids, sid)
		}
	}
	r.mu.RUnlock()

	dropped := 0
	for i, conn := range targets {
		if err := conn.TrySend(f); err != nil {
			dropped++
			log.Warn().Str("module", "app.registry").Str("room", string(id)).Str("sid", string(sids[i])).Msg("broadcast dropped")
		}
	}
	log.Debug().Str("module", "app.registry").Str("room", string(id)).Int("sent_to", len(targets)-dropped).Int("dropped", dropped).Msg("broadcast result")
}
