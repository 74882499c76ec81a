package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vardhanngg/vibron-socket/internal/adapters"
	"github.com/vardhanngg/vibron-socket/internal/app"
	"github.com/vardhanngg/vibron-socket/internal/config"
	"github.com/vardhanngg/vibron-socket/internal/domain"
)

// ClientTokenMiddleware gives every browser a stable opaque token. The token
// doubles as the session id inside room records, so it must survive page
// reloads, hence a cookie rather than a per-upgrade random id.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, orch *app.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(ClientTokenMiddleware())

	// Uptime probe. Plain body by contract, not JSON.
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	// Read-only room snapshot, handy when debugging client drift.
	r.GET("/api/rooms/:id", func(c *gin.Context) {
		id, err := domain.ParseRoomID(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
			return
		}
		state, err := orch.Store.Get(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrRoomNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
				return
			}
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"roomId": id, "state": state})
	})

	ctl := &adapters.SyncWSController{Orch: orch, ReadLimit: cfg.ReadLimit}
	r.GET("/ws/sync", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws sync endpoint hit")
		ctl.HandleSync(ctx, c)
	})

	return r
}
