package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yoockh/mockinterview/internal/services"
	"github.com/yoockh/mockinterview/internal/utils"
)

// WSHandler is the WebSocket variant of the transcription feed. Clients may also end the
// interview over the socket.
type WSHandler struct {
	interviews  services.InterviewService
	transcripts services.TranscriptionService
	upgrader    websocket.Upgrader
}

func NewWSHandler(interviews services.InterviewService, transcripts services.TranscriptionService, allowedOrigins []string) *WSHandler {
	allow := map[string]struct{}{}
	for _, o := range allowedOrigins {
		allow[o] = struct{}{}
	}
	return &WSHandler{
		interviews:  interviews,
		transcripts: transcripts,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(allow) == 0 {
					return true
				}
				_, ok := allow[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

type wsClientMsg struct {
	Type string `json:"type"` // ping|end_session
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.writeText(b)
}

func (h *WSHandler) Transcription(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sessionID := c.Param("id")
	if sessionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.Transcription", "missing session id", nil))
		return
	}
	if _, err := h.interviews.Get(c.Request.Context(), userID, sessionID); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	pubsub := h.transcripts.Subscribe(ctx, sessionID)
	defer func() { _ = pubsub.Close() }()

	if snap, err := h.transcripts.Snapshot(ctx, sessionID); err == nil && snap != nil {
		_ = wc.writeJSON(snapshotOf(snap))
	}

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		for {
			_, data, rerr := conn.ReadMessage()
			if rerr != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			var msg wsClientMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				_ = wc.writeJSON(APIError{Error: "invalid json", Code: utils.CodeInvalidArgument})
				continue
			}

			switch msg.Type {
			case "ping":
				_ = wc.writeJSON(gin.H{"type": "pong"})
			case "end_session":
				if _, err := h.interviews.Complete(ctx, userID, sessionID); err != nil {
					_ = wc.writeJSON(APIError{Error: "failed to end interview", Code: utils.CodeInternal})
					continue
				}
				// the forward loop stops once the reader returns
				_ = wc.writeJSON(services.TranscriptionEvent{Type: "status", SessionID: sessionID, Status: "ended", At: time.Now().UTC()})
				_ = h.transcripts.PublishStatus(ctx, sessionID, "ended")
				return
			default:
				_ = wc.writeJSON(APIError{Error: "unknown message type", Code: utils.CodeInvalidArgument})
			}
		}
	}()

	msgs := pubsub.Channel()
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			if werr := wc.writeText([]byte(m.Payload)); werr != nil {
				return
			}
		}
	}
}
