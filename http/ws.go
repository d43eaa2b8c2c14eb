package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsReadLimit    = 64 << 10
	wsIdleTimeout  = 5 * time.Minute
	wsWriteTimeout = 10 * time.Second
)

// wsRequest 一条手动录入消息，缺省特征取0.0
type wsRequest struct {
	Values map[string]float64 `json:"values"`
}

type wsResponse struct {
	Prediction *float64 `json:"prediction,omitempty"`
	Display    string   `json:"display,omitempty"`
	Defaulted  []string `json:"defaulted,omitempty"`
	Error      string   `json:"error,omitempty"`
	Missing    []string `json:"missing,omitempty"`
}

// handleWebSocket 保持手动录入会话，每条消息在同一连接上打分并回复
func (a *API) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	requestID := GetRequestID(r.Context())
	a.logger.Debug("websocket session opened", zap.String("request_id", requestID))
	conn.SetReadLimit(wsReadLimit)

	for {
		conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				a.logger.Warn("websocket read failed", zap.String("request_id", requestID), zap.Error(err))
			}
			return
		}

		resp := a.scoreMessage(r, message)
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(resp); err != nil {
			a.logger.Warn("websocket write failed", zap.String("request_id", requestID), zap.Error(err))
			return
		}
	}
}

func (a *API) scoreMessage(r *http.Request, message []byte) wsResponse {
	var req wsRequest
	if err := json.Unmarshal(message, &req); err != nil {
		return wsResponse{Error: "message must be a JSON object with a \"values\" field"}
	}

	resp, err := a.predictSingle(r.Context(), req.Values)
	if err != nil {
		_, body := errorStatus(err)
		out := wsResponse{}
		out.Error, _ = body["error"].(string)
		out.Missing, _ = body["missing"].([]string)
		return out
	}
	return wsResponse{
		Prediction: &resp.Prediction,
		Display:    resp.Display,
		Defaulted:  resp.Defaulted,
	}
}
