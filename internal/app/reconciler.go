package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vardhanngg/vibron-socket/internal/core"
)

const DefaultReconcileInterval = 5 * time.Second

// Reconciler re-broadcasts every room's current record on a fixed interval.
// Clients that missed a broadcast or drifted converge on the next pass. It
// reads and emits only: no mutation, and no TTL refresh, so an idle room
// still expires on schedule.
type Reconciler struct {
	Store    core.RoomStore
	Registry *Registry
	Interval time.Duration
}

func NewReconciler(store core.RoomStore, reg *Registry, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	return &Reconciler{Store: store, Registry: reg, Interval: interval}
}

// Run blocks until ctx is done. Store faults are logged and retried on the
// next tick; a broken sweep never takes the process down.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	log.Info().Str("module", "app.reconciler").Dur("interval", r.Interval).Msg("reconciler started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.reconciler").Msg("reconciler stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep performs one pass over every room key currently in the store.
func (r *Reconciler) Sweep(ctx context.Context) {
	keys, err := r.Store.Keys(ctx)
	if err != nil {
		log.Warn().Str("module", "app.reconciler").Err(err).Msg("sweep: list keys failed")
		return
	}
	for _, id := range keys {
		state, err := r.Store.Get(ctx, id)
		if err != nil {
			// Expired between Keys and Get, or backend hiccup; skip.
			log.Debug().Str("module", "app.reconciler").Str("room", string(id)).Err(err).Msg("sweep: load failed")
			continue
		}
		r.Registry.EmitRoom(id, UpdateStateFrame(id, state))
	}
	log.Debug().Str("module", "app.reconciler").Int("rooms", len(keys)).Msg("sweep done")
}
