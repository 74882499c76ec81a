// Package adapters binds the transport edge (WebSocket, HTTP) to the app
// layer. Connections are adapter-owned: the app only ever sees the
// SignalConnection capability.
package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/vardhanngg/vibron-socket/internal/app"
	"github.com/vardhanngg/vibron-socket/internal/core"
	"github.com/vardhanngg/vibron-socket/internal/domain"
)

var (
	ErrBackpressure = errors.New("send buffer full")
	ErrConnClosed   = errors.New("connection closed")
)

const (
	sendBufferSize = 32
	writeDeadline  = 5 * time.Second
)

// Wire error strings. Clients display these verbatim, so they are part of
// the protocol surface.
const (
	msgInvalidRoomID    = "Invalid room ID"
	msgRoomNotFound     = "Room not found"
	msgNotLeader        = "Only the room leader can control playback"
	msgStoreUnavailable = "Playback service temporarily unavailable"
)

type SyncWSController struct {
	Orch      *app.Orchestrator
	ReadLimit int64
}

type wsSyncConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.Mutex
	closed bool
}

// TrySend must stay safe against a concurrent Close: the reconciler may
// hold this connection while the read loop is tearing it down.
func (c *wsSyncConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *wsSyncConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSync upgrades the request and runs the connection's pumps. The
// session id is the client token set by the cookie middleware; it is what
// room records store in users/leaderId.
func (ctl *SyncWSController) HandleSync(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Str("module", "adapters.ws").Err(err).Msg("upgrade failed")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}
	log.Info().Str("module", "adapters.ws").Str("sid", string(sid)).Msg("connection opened")

	conn := &wsSyncConn{
		conn: ws,
		send: make(chan core.Frame, sendBufferSize),
	}
	ctl.Orch.Registry.Bind(sid, conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, sid, conn)
}

func (ctl *SyncWSController) writePump(ctx context.Context, c *wsSyncConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
				log.Error().Str("module", "adapters.ws").Err(err).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Str("module", "adapters.ws").Err(err).Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SyncWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid core.SessionID, c *wsSyncConn) {
	defer func() {
		log.Info().Str("module", "adapters.ws").Str("sid", string(sid)).Msg("connection closed")
		// The connection may die mid-handler; cleanup still runs to
		// completion on a fresh context.
		ctl.Orch.OnDisconnect(context.Background(), sid)
		cancel()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			ctl.handleCommand(ctx, sid, c, data)
		}
	}
}

func (ctl *SyncWSController) handleCommand(ctx context.Context, sid core.SessionID, c *wsSyncConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Str("module", "adapters.ws").Str("sid", string(sid)).Err(err).Msg("bad json")
		return
	}

	switch env.Type {
	case "createRoom":
		ctl.handleCreateRoom(ctx, sid, c, data)
	case "joinRoom":
		ctl.handleJoinRoom(ctx, sid, c, data)
	case "playPause":
		ctl.handlePlayPause(ctx, sid, c, data)
	case "changeSong":
		ctl.handleChangeSong(ctx, sid, c, data)
	case "changeMoodSong":
		ctl.handleChangeMoodSong(ctx, sid, c, data)
	case "seek":
		ctl.handleSeek(ctx, sid, c, data)
	case "ping":
		_ = c.TrySend(app.PongFrame())
	default:
		log.Warn().Str("module", "adapters.ws").Str("type", env.Type).Msg("unknown command")
	}
}

func (ctl *SyncWSController) sendError(c *wsSyncConn, err error) {
	_ = c.TrySend(app.ErrorFrame(wireMessage(err)))
}

func wireMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidRoomID):
		return msgInvalidRoomID
	case errors.Is(err, domain.ErrRoomNotFound):
		return msgRoomNotFound
	case errors.Is(err, domain.ErrNotLeader):
		return msgNotLeader
	default:
		return msgStoreUnavailable
	}
}

func (ctl *SyncWSController) handleCreateRoom(ctx context.Context, sid core.SessionID, c *wsSyncConn, data []byte) {
	var p struct {
		Type       string `json:"type"`
		IsMoodMode bool   `json:"isMoodMode"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Str("module", "adapters.ws").Err(err).Msg("bad createRoom payload")
		return
	}
	id, _, err := ctl.Orch.CreateRoom(ctx, sid, p.IsMoodMode)
	if err != nil {
		ctl.sendError(c, err)
		return
	}
	_ = c.TrySend(app.RoomCreatedFrame(id))
}

func (ctl *SyncWSController) handleJoinRoom(ctx context.Context, sid core.SessionID, c *wsSyncConn, data []byte) {
	var p struct {
		Type   string `json:"type"`
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Str("module", "adapters.ws").Err(err).Msg("bad joinRoom payload")
		return
	}
	id, state, err := ctl.Orch.JoinRoom(ctx, sid, p.RoomID)
	if err != nil {
		ctl.sendError(c, err)
		return
	}
	_ = c.TrySend(app.RoomJoinedFrame(id, state))
}

func (ctl *SyncWSController) handlePlayPause(ctx context.Context, sid core.SessionID, c *wsSyncConn, data []byte) {
	var p struct {
		Type        string  `json:"type"`
		RoomID      string  `json:"roomId"`
		IsPlaying   bool    `json:"isPlaying"`
		CurrentTime float64 `json:"currentTime"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Str("module", "adapters.ws").Err(err).Msg("bad playPause payload")
		return
	}
	id, err := domain.ParseRoomID(p.RoomID)
	if err != nil {
		ctl.sendError(c, err)
		return
	}
	if _, err := ctl.Orch.PlayPause(ctx, sid, id, p.IsPlaying, p.CurrentTime); err != nil {
		ctl.sendError(c, err)
	}
}

func (ctl *SyncWSController) handleChangeSong(ctx context.Context, sid core.SessionID, c *wsSyncConn, data []byte) {
	var p struct {
		Type    string `json:"type"`
		RoomID  string `json:"roomId"`
		SongURL string `json:"songUrl"`
		SongID  string `json:"songId"`
		Title   string `json:"title"`
		Artist  string `json:"artist"`
		Image   string `json:"image"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Str("module", "adapters.ws").Err(err).Msg("bad changeSong payload")
		return
	}
	id, err := domain.ParseRoomID(p.RoomID)
	if err != nil {
		ctl.sendError(c, err)
		return
	}
	params := app.ChangeSongParams{
		SongURL: p.SongURL,
		SongID:  p.SongID,
		Title:   p.Title,
		Artist:  p.Artist,
		Image:   p.Image,
	}
	if _, err := ctl.Orch.ChangeSong(ctx, sid, id, params); err != nil {
		ctl.sendError(c, err)
	}
}

func (ctl *SyncWSController) handleChangeMoodSong(ctx context.Context, sid core.SessionID, c *wsSyncConn, data []byte) {
	var p struct {
		Type     string `json:"type"`
		RoomID   string `json:"roomId"`
		SongURL  string `json:"songUrl"`
		SongID   string `json:"songId"`
		Mood     string `json:"mood"`
		Language string `json:"language"`
		Title    string `json:"title"`
		Artist   string `json:"artist"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Str("module", "adapters.ws").Err(err).Msg("bad changeMoodSong payload")
		return
	}
	id, err := domain.ParseRoomID(p.RoomID)
	if err != nil {
		ctl.sendError(c, err)
		return
	}
	params := app.ChangeMoodSongParams{
		SongURL:  p.SongURL,
		SongID:   p.SongID,
		Mood:     p.Mood,
		Language: p.Language,
		Title:    p.Title,
		Artist:   p.Artist,
	}
	if _, err := ctl.Orch.ChangeMoodSong(ctx, sid, id, params); err != nil {
		ctl.sendError(c, err)
	}
}

func (ctl *SyncWSController) handleSeek(ctx context.Context, sid core.SessionID, c *wsSyncConn, data []byte) {
	var p struct {
		Type        string  `json:"type"`
		RoomID      string  `json:"roomId"`
		CurrentTime float64 `json:"currentTime"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn().Str("module", "adapters.ws").Err(err).Msg("bad seek payload")
		return
	}
	id, err := domain.ParseRoomID(p.RoomID)
	if err != nil {
		ctl.sendError(c, err)
		return
	}
	if _, err := ctl.Orch.Seek(ctx, sid, id, p.CurrentTime); err != nil {
		ctl.sendError(c, err)
	}
}
