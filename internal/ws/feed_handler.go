package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/zaqqye/exit_slip_backend/internal/middleware"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins; rely on JWT auth.
		return true
	},
}

// FeedHandler upgrades an authenticated staff request to a feed subscription.
func FeedHandler(hub *FeedHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := middleware.CurrentActor(c)
		if actor.ID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := newFeedClient(hub, conn, actor)
		if !hub.attach(client) {
			conn.Close()
			return
		}
		hub.log.Info("feed client connected", "staff_id", actor.ID, "role", actor.Role)

		go client.writePump()
		client.readPump()
	}
}
