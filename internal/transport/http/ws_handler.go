package http

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"ebrr-results-service/internal/app"
	"ebrr-results-service/internal/domain"
)

// WSHandler streams publication progress over a websocket, one connection per
// watched exam session. The board UI keeps this open while an exam controller
// runs publishResults and renders the live counter.
type WSHandler struct {
	feed     *app.ProgressFeed
	upgrader websocket.Upgrader
}

func NewWSHandler(feed *app.ProgressFeed) *WSHandler {
	return &WSHandler{
		feed: feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type progressMessage struct {
	Type    string                 `json:"type"`
	Payload domain.PublishProgress `json:"payload"`
}

// ServeWS upgrades the request and forwards progress snapshots until the run
// finishes or the client goes away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.feed.Subscribe(sessionID)
	defer cancel()

	// Reader goroutine only watches for the peer closing; inbound frames are
	// not part of the protocol.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(progressMessage{Type: "progress", Payload: update}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
			if update.Done {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "publication finished"))
				return
			}
		case <-closed:
			return
		}
	}
}
