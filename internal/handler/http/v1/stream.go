package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// @Summary Live event stream
// @Description WebSocket stream of the caller's incident events and new in-app notifications. Browsers may pass api_key and identity_token as query parameters.
// @Tags Events
// @Security ApiKeyAuth
// @Security IdentityToken
// @Success 101 "Switching Protocols"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 503 {object} map[string]string "Live stream unavailable"
// @Router /events/ws [get]
func (h *Handler) streamEvents(c *gin.Context) {
	ownerID, _ := currentOwner(c)
	log := h.logger.WithField("method", "streamEvents").WithField("owner_id", ownerID)

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Подписываемся до апгрейда, чтобы ошибку можно было вернуть обычным JSON
	stream, err := h.stream.Subscribe(ctx, ownerID)
	if err != nil {
		log.WithError(err).Error("Failed to subscribe to live events")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live stream unavailable"})
		return
	}
	defer stream.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrader уже записал ответ с ошибкой
		log.WithError(err).Warn("Failed to upgrade connection")
		return
	}
	defer conn.Close()
	log.Info("Live stream opened")

	// Входящие кадры читаем только ради pong и обнаружения закрытия
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.WithError(err).Warn("Live stream read failed")
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			log.Info("Live stream closed by client")
			return
		case msg, ok := <-stream.Messages():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.WithError(err).Warn("Failed to write live message")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
