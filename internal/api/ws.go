package api

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/fastprodman/ripbid/internal/domain/validate"
	"github.com/fastprodman/ripbid/internal/infra/logging"
	"github.com/fastprodman/ripbid/internal/realtime"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsMaxTopics  = 32
)

func newUpgrader(allowed []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}

			origin := r.Header.Get("Origin")
			if origin == "" {
				// non-browser clients
				return true
			}

			return slices.ContainsFunc(allowed, func(a string) bool {
				return strings.EqualFold(a, origin)
			})
		},
	}
}

// parseTopics accepts a comma-separated list of round:<id> and stream:<id>
// topics. The caller's own user topic is always added.
func parseTopics(raw string, userID uuid.UUID) ([]string, error) {
	own := realtime.UserTopic(userID)
	topics := []string{own}

	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" || t == own {
			continue
		}

		kind, id, ok := strings.Cut(t, ":")
		if !ok || (kind != "round" && kind != "stream") {
			return nil, validate.Errorf("topics", "unsupported topic %q", t)
		}

		_, err := uuid.Parse(id)
		if err != nil {
			return nil, validate.Errorf("topics", "topic %q has an invalid id", t)
		}

		topics = append(topics, t)
	}

	if len(topics) > wsMaxTopics {
		return nil, validate.Errorf("topics", "at most %d topics", wsMaxTopics-1)
	}

	return topics, nil
}

// SubscribeHandler handles GET /ws?topics=round:<id>,stream:<id>
//
// Events are pushed as JSON text frames. A client that falls behind loses
// events and should re-read the affected resources.
func (h *HandlerProvider) SubscribeHandler(w http.ResponseWriter, r *http.Request) {
	userID := viewer(r)

	topics, err := parseTopics(r.URL.Query().Get("topics"), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied with an HTTP error.
		logging.From(r.Context()).Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := h.svc.Events.Subscribe(topics...)
	defer sub.Close()

	log := logging.From(r.Context()).With("topics", topics)
	log.Info("websocket subscribed")

	done := make(chan struct{})

	go func() {
		defer close(done)

		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug("websocket read failed", "error", err)
				}

				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			log.Info("websocket closed", "dropped", sub.Dropped())
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}

			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))

			err := conn.WriteJSON(ev)
			if err != nil {
				log.Debug("websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))

			err := conn.WriteMessage(websocket.PingMessage, nil)
			if err != nil {
				return
			}
		}
	}
}
