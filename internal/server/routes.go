package server

import (
	"log/slog"
	"net/http"

	"github.com/USA-RedDragon/walletkit-bridge/internal/config"
	"github.com/USA-RedDragon/walletkit-bridge/internal/server/controllers"
	"github.com/USA-RedDragon/walletkit-bridge/internal/sessions"
	"github.com/USA-RedDragon/walletkit-bridge/internal/utils"
	"github.com/USA-RedDragon/walletkit-bridge/internal/websocket"
	"github.com/gin-gonic/gin"
)

func applyRoutes(r *gin.Engine, config *config.Config, services *Services) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	apiV1 := r.Group("/v1")
	v1(apiV1, config)

	ws := r.Group("/ws")
	if services.Engine != nil {
		ws.GET("/engine", requireAuth(config, utils.ScopeEngine), websocket.CreateHandler(services.Engine, config))
	}
	if services.Events != nil {
		ws.GET("/events", requireAuth(config, utils.ScopeClient), websocket.CreateHandler(services.Events, config))
	}
	var onRequest sessions.RequestHandler
	if services.Wallet != nil {
		onRequest = services.Wallet.HandleBrowserRequest
	}
	sessionsWebsocket := sessions.CreateSessionsWebsocket(services.Sessions, onRequest)
	ws.GET("/sessions/:session_id", requireAuth(config, utils.ScopeClient), websocket.CreateHandler(sessionsWebsocket, config))

	r.NoRoute(func(c *gin.Context) {
		slog.Warn("Not Found", "path", c.Request.URL.Path)
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})
}

func v1(group *gin.RouterGroup, config *config.Config) {
	group.GET("/state", requireAuth(config, utils.ScopeClient), controllers.GETState)
	group.GET("/sessions", requireAuth(config, utils.ScopeClient), controllers.GETBrowserSessions)
	group.POST("/call/:method", requireAuth(config, utils.ScopeClient), controllers.POSTCall)
}
