package server

import (
	"conduit/internal/middleware"
	"conduit/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketUpgrade answers 426 to requests that are not websocket upgrades.
func (s *Server) WebsocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return models.RespondWithError(c, fiber.StatusUpgradeRequired,
		models.NewBadRequestError("WebSocket upgrade required"))
}

// WebsocketHandler attaches an authenticated connection to the hub and
// serves it until either side hangs up. A connection over the hub's limits
// is closed with 1013 (try again later).
// @Summary Realtime notifications
// @Description Server-to-client stream of {"type","payload"} events for the caller
// @Tags realtime
// @Security TokenAuth
// @Param token query string false "JWT, for clients that cannot set headers"
// @Success 101
// @Failure 403 {object} models.ErrorResponse
// @Failure 426 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(localUserID).(uint)
		if userID == 0 {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket refused", "user_id", userID, "error", err)
			closeMsg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error())
			_ = conn.WriteMessage(websocket.CloseMessage, closeMsg)
			_ = conn.Close()
			return
		}
		client.Serve()
	})
}
