// Package app coordinates room sessions: command handling, leadership,
// live-connection fan-out and the periodic reconcile sweep.
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vardhanngg/vibron-socket/internal/core"
	"github.com/vardhanngg/vibron-socket/internal/domain"
)

// Orchestrator owns the command handlers. Every mutating handler follows
// the same template: load, authorize, mutate, persist with a refreshed TTL,
// broadcast the full record to the room's group. A per-room lock serializes
// the read-modify-write; the store itself stays transaction-free.
type Orchestrator struct {
	Store    core.RoomStore
	Registry *Registry
	TTL      time.Duration

	locks *roomLocks
}

func NewOrchestrator(store core.RoomStore, reg *Registry, ttl time.Duration) *Orchestrator {
	if ttl <= 0 {
		ttl = domain.DefaultRoomTTL
	}
	return &Orchestrator{
		Store:    store,
		Registry: reg,
		TTL:      ttl,
		locks:    newRoomLocks(),
	}
}

type ChangeSongParams struct {
	SongURL string
	SongID  string
	Title   string
	Artist  string
	Image   string
}

type ChangeMoodSongParams struct {
	SongURL  string
	SongID   string
	Mood     string
	Language string
	Title    string
	Artist   string
}

// CreateRoom builds a new room with the caller as sole member and leader,
// persists it and joins the caller to the broadcast group.
func (o *Orchestrator) CreateRoom(ctx context.Context, sid core.SessionID, moodMode bool) (domain.RoomID, *domain.RoomState, error) {
	id, err := domain.NewRoomID()
	if err != nil {
		return "", nil, err
	}
	state := domain.NewRoomState(string(sid), moodMode)
	if err := o.Store.Put(ctx, id, state, o.TTL); err != nil {
		log.Error().Str("module", "app.orchestrator").Str("sid", string(sid)).Err(err).Msg("createRoom: persist failed")
		return "", nil, err
	}
	o.Registry.JoinRoom(sid, id)
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(id)).Bool("mood_mode", moodMode).Msg("createRoom")
	return id, state, nil
}

// JoinRoom validates the id format before touching the store, appends the
// caller to the member list and broadcasts the updated record. Re-joining
// appends a duplicate entry; removal strips all occurrences.
func (o *Orchestrator) JoinRoom(ctx context.Context, sid core.SessionID, raw string) (domain.RoomID, *domain.RoomState, error) {
	id, err := domain.ParseRoomID(raw)
	if err != nil {
		log.Warn().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", raw).Msg("joinRoom: invalid id")
		return "", nil, err
	}

	unlock := o.locks.lock(id)
	defer unlock()

	state, err := o.Store.Get(ctx, id)
	if err != nil {
		log.Warn().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(id)).Err(err).Msg("joinRoom: load failed")
		return "", nil, err
	}
	state.AddMember(string(sid))
	if err := o.Store.Put(ctx, id, state, o.TTL); err != nil {
		log.Error().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(id)).Err(err).Msg("joinRoom: persist failed")
		return "", nil, err
	}
	o.Registry.JoinRoom(sid, id)
	o.Registry.EmitRoom(id, UpdateStateFrame(id, state))
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(id)).Int("users", len(state.Users)).Msg("joinRoom")
	return id, state, nil
}

// PlayPause applies the leader's transport toggle together with the cursor
// position it was issued at.
func (o *Orchestrator) PlayPause(ctx context.Context, sid core.SessionID, id domain.RoomID, playing bool, at float64) (*domain.RoomState, error) {
	return o.mutateAsLeader(ctx, sid, id, "playPause", func(s *domain.RoomState) {
		s.SetPlayback(playing, at)
	})
}

// ChangeSong swaps the track: cursor back to zero, playback on, display
// metadata replaced wholesale.
func (o *Orchestrator) ChangeSong(ctx context.Context, sid core.SessionID, id domain.RoomID, p ChangeSongParams) (*domain.RoomState, error) {
	return o.mutateAsLeader(ctx, sid, id, "changeSong", func(s *domain.RoomState) {
		s.SetSong(p.SongURL, p.SongID, p.Title, p.Artist, p.Image)
	})
}

// ChangeMoodSong is ChangeSong for mood-mode rooms, carrying the mood and
// language tags alongside the track.
func (o *Orchestrator) ChangeMoodSong(ctx context.Context, sid core.SessionID, id domain.RoomID, p ChangeMoodSongParams) (*domain.RoomState, error) {
	return o.mutateAsLeader(ctx, sid, id, "changeMoodSong", func(s *domain.RoomState) {
		s.SetMoodSong(p.SongURL, p.SongID, p.Mood, p.Language, p.Title, p.Artist)
	})
}

func (o *Orchestrator) Seek(ctx context.Context, sid core.SessionID, id domain.RoomID, at float64) (*domain.RoomState, error) {
	return o.mutateAsLeader(ctx, sid, id, "seek", func(s *domain.RoomState) {
		s.SeekTo(at)
	})
}

// mutateAsLeader is the shared template of every leader-gated command. On
// any failure the stored record is left untouched and nothing is broadcast;
// the caller surfaces the error to the requesting connection only.
func (o *Orchestrator) mutateAsLeader(ctx context.Context, sid core.SessionID, id domain.RoomID, action string, mutate func(*domain.RoomState)) (*domain.RoomState, error) {
	unlock := o.locks.lock(id)
	defer unlock()

	state, err := o.Store.Get(ctx, id)
	if err != nil {
		log.Warn().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(id)).Str("action", action).Err(err).Msg("load failed")
		return nil, err
	}
	if !state.IsLeader(string(sid)) {
		log.Warn().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(id)).Str("action", action).Msg("rejected: not leader")
		return nil, domain.ErrNotLeader
	}
	mutate(state)
	if err := o.Store.Put(ctx, id, state, o.TTL); err != nil {
		log.Error().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(id)).Str("action", action).Err(err).Msg("persist failed")
		return nil, err
	}
	o.Registry.EmitRoom(id, UpdateStateFrame(id, state))
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(id)).Str("action", action).Msg("applied")
	return state, nil
}

// OnDisconnect removes the connection from every room it joined, handing
// leadership to the first remaining member or deleting the room when it was
// the last one out. Rooms are resolved via the registry's reverse index, so
// the cost is proportional to the connection's rooms, not the whole store.
func (o *Orchestrator) OnDisconnect(ctx context.Context, sid core.SessionID) {
	for _, id := range o.Registry.RoomsOf(sid) {
		o.removeMember(ctx, sid, id)
	}
	o.Registry.Unbind(sid)
}

func (o *Orchestrator) removeMember(ctx context.Context, sid core.SessionID, id domain.RoomID) {
	unlock := o.locks.lock(id)
	defer unlock()

	state, err := o.Store.Get(ctx, id)
	if err != nil {
		// Already expired or backend down; either way nothing to repair here.
		log.Warn().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(id)).Err(err).Msg("disconnect: load failed")
		return
	}
	if !state.RemoveMember(string(sid)) {
		return
	}
	if state.Empty() {
		if err := o.Store.Delete(ctx, id); err != nil {
			log.Error().Str("module", "app.orchestrator").Str("room", string(id)).Err(err).Msg("disconnect: delete failed")
			return
		}
		log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(id)).Msg("disconnect: room emptied, deleted")
		return
	}
	if err := o.Store.Put(ctx, id, state, o.TTL); err != nil {
		log.Error().Str("module", "app.orchestrator").Str("room", string(id)).Err(err).Msg("disconnect: persist failed")
		return
	}
	o.Registry.EmitRoom(id, UpdateStateFrame(id, state))
	log.Info().Str("module", "app.orchestrator").Str("sid", string(sid)).Str("room", string(id)).Str("leader", state.LeaderID).Msg("disconnect: member removed")
}
