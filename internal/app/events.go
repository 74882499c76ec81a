package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/vardhanngg/vibron-socket/internal/core"
	"github.com/vardhanngg/vibron-socket/internal/domain"
)

// Outbound event names. Inbound command names live in the ws adapter; these
// are shared because orchestrator, reconciler and adapter all emit them.
const (
	EventRoomCreated = "roomCreated"
	EventRoomJoined  = "roomJoined"
	EventUpdateState = "updateState"
	EventError       = "error"
	EventPong        = "pong"
)

type stateEvent struct {
	Type   string            `json:"type"`
	RoomID domain.RoomID     `json:"roomId"`
	State  *domain.RoomState `json:"state"`
}

// UpdateStateFrame marshals the full-record broadcast sent after every
// successful mutation and on every reconcile pass.
func UpdateStateFrame(id domain.RoomID, state *domain.RoomState) core.Frame {
	return marshalFrame(stateEvent{Type: EventUpdateState, RoomID: id, State: state})
}

func RoomJoinedFrame(id domain.RoomID, state *domain.RoomState) core.Frame {
	return marshalFrame(stateEvent{Type: EventRoomJoined, RoomID: id, State: state})
}

func RoomCreatedFrame(id domain.RoomID) core.Frame {
	return marshalFrame(struct {
		Type   string        `json:"type"`
		RoomID domain.RoomID `json:"roomId"`
	}{EventRoomCreated, id})
}

func ErrorFrame(msg string) core.Frame {
	return marshalFrame(struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}{EventError, msg})
}

func PongFrame() core.Frame {
	return marshalFrame(struct {
		Type string `json:"type"`
	}{EventPong})
}

func marshalFrame(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		// Only reachable with an unmarshalable payload type, i.e. a bug.
		log.Error().Str("module", "app.events").Err(err).Msg("marshal frame")
		return nil
	}
	return b
}
