package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/party-queue/internal/hub"
	"github.com/DoyleJ11/party-queue/internal/session"
	"github.com/DoyleJ11/party-queue/internal/types"
)

const writeTimeout = 3 * time.Second

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		s, err := h.Get(r.Context(), code)
		if errors.Is(err, hub.ErrNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("get session", zap.String("session", code), zap.Error(err))
			http.Error(w, "failed to load session", http.StatusInternalServerError)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan session.Update, 16)
		clientID := uuid.NewString()
		clog := log.With(zap.String("session", code), zap.String("client", clientID))

		select {
		case s.Inbox() <- session.Join{ClientID: clientID, Outbox: out}:
		case <-s.Done():
			conn.Close(websocket.StatusGoingAway, "session closed")
			return
		}
		defer func() {
			select {
			case s.Inbox() <- session.Leave{ClientID: clientID}:
			case <-s.Done():
			}
		}()
		clog.Debug("client joined")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case up, ok := <-out:
					if !ok {
						// Dropped as slow or the session ended.
						conn.Close(websocket.StatusGoingAway, "session closed")
						return
					}
					write(writeCtx, conn, ServerMessage(up))
				case <-writeCtx.Done():
					return
				}
			}
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("read", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				write(r.Context(), conn, errorMessage("bad json"))
				continue
			}

			if err := dispatch(r.Context(), s, cm); err != nil {
				if errors.Is(err, session.ErrClosed) {
					return
				}
				write(r.Context(), conn, errorMessage(err.Error()))
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(ctx, websocket.MessageText, payload)
}
