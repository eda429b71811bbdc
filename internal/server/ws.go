package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

// handleTransformStream upgrades to a websocket and answers every text frame
// with a transform. A frame is either a JSON array of values (d_space) or a
// TransformRequest object. Bad frames get an error envelope; the connection
// stays open until the client closes it.
func (s *Server) handleTransformStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		kind, frame, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read ended", "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		var reply any
		req, err := parseFrame(frame)
		if err == nil {
			reply, err = s.transform(req)
		}
		if err != nil {
			reply = envelope(err)
		}
		if err := conn.WriteJSON(reply); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
			return
		}
	}
}

func parseFrame(frame []byte) (TransformRequest, error) {
	var req TransformRequest
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &req.Values); err != nil {
			return req, errors.InvalidInput("values", "want a JSON array of numbers: %v", err)
		}
		return req, nil
	}
	if err := decode(trimmed, &req); err != nil {
		return req, err
	}
	return req, nil
}
