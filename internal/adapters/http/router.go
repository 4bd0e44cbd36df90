package http

import (
	"context"

	"github.com/dkeye/propagation/internal/adapters/signal"
	"github.com/dkeye/propagation/internal/app/orch"
	"github.com/dkeye/propagation/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const clientTokenKey = "client_token"

// ClientTokenMiddleware gives every client a stable token kept in its
// session. Sources are owned by the token that bound them.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(clientTokenKey).(string)
		if token == "" {
			token = uuid.NewString()
			session.Set(clientTokenKey, token)
			if err := session.Save(); err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Msg("session save")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("PropagationSessions", store))
	r.Use(ClientTokenMiddleware())

	h := &handlers{orch: o}
	api := r.Group("/api")

	api.GET("/rooms", h.rooms)
	api.GET("/stats", h.stats)
	api.PUT("/anchors/:name", h.moveAnchor)

	api.POST("/sources", h.bind)
	src := api.Group("/sources/:id")
	src.GET("", h.speakers)
	src.DELETE("", h.remove)
	src.POST("/bind", h.bind)
	src.PUT("/room", h.move)
	src.POST("/play", h.play)
	src.POST("/play_one_shot", h.playOneShot)
	src.POST("/play_delayed", h.playDelayed)
	src.POST("/stop", h.stop)
	src.POST("/fade_out", h.fadeOut)
	src.POST("/fade_in", h.fadeIn)
	src.PUT("/volume", h.volume)
	src.PUT("/clip", h.clip)

	ctrl := signal.NewControlWSController(o, cfg)
	api.GET("/ws/control", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("owner", c.GetString(clientTokenKey)).Msg("ws control endpoint hit")
		ctrl.HandleControl(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
