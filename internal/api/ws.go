package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rgayle/waterwatch/internal/middleware"
	"github.com/rgayle/waterwatch/internal/notify"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards are served from other origins; the token on the upgrade
	// request is the actual access control.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	hub    *notify.Hub
	logger *zap.Logger
}

func NewWSHandler(hub *notify.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, logger: logger}
}

// Serve handles GET /api/v1/ws?token=. AuthMiddleware has already
// validated the token; the resolved scope decides which rooms this
// connection may join.
func (h *WSHandler) Serve(c *gin.Context) {
	sc := middleware.GetScope(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.logger.Debug("websocket connected",
		zap.String("user_id", sc.UserID.String()),
		zap.String("parish", sc.Parish),
	)
	client := notify.NewClient(h.hub, conn, sc.CanJoinRoom, h.logger)
	client.Serve()
}
