package server

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	liveSendBuffer = 16
)

// liveError is sent in place of a plan when a frame cannot be computed.
type liveError struct {
	Error string `json:"error"`
}

// liveSession recomputes the plan for every form snapshot a client sends and
// replies in the order the snapshots arrived.
type liveSession struct {
	h    *handler
	ws   *websocket.Conn
	send chan any
}

func (h *handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || h.originAllowed(origin)
		},
	}
}

func (h *handler) handleLive(w http.ResponseWriter, r *http.Request) {
	upgrader := h.upgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("op", "server.handleLive"),
			zap.Error(err),
		)
		return
	}

	s := &liveSession{h: h, ws: ws, send: make(chan any, liveSendBuffer)}
	h.logger.Debug("live session opened",
		zap.String("op", "server.handleLive"),
		zap.String("remote", r.RemoteAddr),
	)

	go s.writePump()
	s.readPump()
}

func (s *liveSession) readPump() {
	defer close(s.send)

	s.ws.SetReadLimit(s.h.maxRequestSize)
	_ = s.ws.SetReadDeadline(time.Now().Add(pongWait))
	s.ws.SetPongHandler(func(string) error {
		return s.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.h.logger.Warn("live session read failed",
					zap.String("op", "server.liveSession.readPump"),
					zap.Error(err),
				)
			}
			return
		}
		if msgType != websocket.TextMessage {
			s.send <- liveError{Error: "expected a text frame"}
			continue
		}

		result, _, err := s.h.compute(context.Background(), bytes.NewReader(data))
		if err != nil {
			s.send <- liveError{Error: err.Error()}
			continue
		}
		s.send <- newPlanResponse(result)
	}
}

func (s *liveSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.ws.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.ws.WriteJSON(message); err != nil {
				s.h.logger.Warn("live session write failed",
					zap.String("op", "server.liveSession.writePump"),
					zap.Error(err),
				)
				s.abandon()
				return
			}

		case <-ticker.C:
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.abandon()
				return
			}
		}
	}
}

// abandon closes the socket, which ends readPump, and discards replies until
// readPump closes send.
func (s *liveSession) abandon() {
	_ = s.ws.Close()
	for range s.send {
	}
}
