package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// 1フレームの書き込みに許す時間
	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleVideoWebSocket は同じ映像をWebSocketのバイナリメッセージで配信する
// 1メッセージが1枚のJPEG
func (s *Server) handleVideoWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgradeがエラーレスポンスを書いている
		s.log.Warn("WebSocketへの切り替えに失敗しました", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := s.streamContext(c.Request.Context())
	defer cancel()

	// 乗っ取った接続では切断がコンテキストに伝わらないので、読み取りで検知する
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	stream := s.coord.Stream(ctx)
	s.log.Info("WebSocket配信を開始します", "stream_id", stream.ID(), "client_ip", c.ClientIP())

	for frame := range stream.Frames() {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.BinaryMessage, frame.JPEG); err != nil {
			s.log.Debug("WebSocketへの書き込みに失敗しました", "stream_id", stream.ID(), "error", err)
			return
		}
	}

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream ended")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
