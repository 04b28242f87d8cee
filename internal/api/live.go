package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 5 * time.Second
	pingInterval = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// liveComments отдает новые комментарии работы по websocket, по одному JSON на сообщение.
func (h *Handler) liveComments(w http.ResponseWriter, r *http.Request) {
	workID, ok := workIDParam(w, r)
	if !ok {
		return
	}

	// Подписываемся до апгрейда, чтобы не пропустить комментарии сразу после рукопожатия
	feed, cancel := h.comments.Subscribe(workID)
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := h.log.WithField("work_id", workID)
	log.Debug("live subscriber connected")
	defer log.Debug("live subscriber disconnected")

	// Читаем только для обработки close/pong от клиента
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case c, ok := <-feed:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(c); err != nil {
				log.WithError(err).Debug("live write failed")
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
