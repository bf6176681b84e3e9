package server

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"edgecam/internal/camera"
)

// handleIndex はトップページを返す
// デバイスには触れず、直近に分かっている状態を表示する
func (s *Server) handleIndex(c *gin.Context) {
	now := time.Now()
	status := "Offline"
	if s.coord.Online() {
		status = "Online"
	}

	data := indexData{
		Online:    s.coord.Online(),
		Status:    status,
		Timestamp: now.Format("2006-01-02 15:04:05"),
		CacheBust: now.Unix(),
		Host:      displayHost(s.config.Server.Host, c.Request.Host),
		Port:      s.config.Server.Port,
	}

	var buf bytes.Buffer
	if err := s.index.Execute(&buf, data); err != nil {
		s.log.Error("トップページの描画に失敗しました", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// handleHealth はヘルスチェックエンドポイント
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// handleStatus はサーバーとカメラの状態を返す
func (s *Server) handleStatus(c *gin.Context) {
	resp := StatusResponse{
		Status:        "online",
		Timestamp:     time.Now(),
		CameraIndex:   s.config.Camera.Index,
		Device:        s.config.DevicePath(),
		ImagesDir:     s.config.Storage.ImagesDir,
		CameraOnline:  s.coord.Online(),
		CameraStatus:  string(s.coord.Status()),
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
	}
	if checked := s.coord.LastChecked(); !checked.IsZero() {
		resp.LastChecked = &checked
	}

	if s.discovery != nil {
		// 名前の取得はsysfsを読むだけでデバイスは開かない
		if info, err := s.discovery.GetDeviceInfo(c.Request.Context(), s.config.DevicePath()); err == nil {
			resp.DeviceName = info.Name
		}
	}

	if s.timelapse != nil {
		st := s.timelapse.Status()
		info := &TimelapseInfo{
			Enabled:         st.Enabled,
			Running:         st.Running,
			IntervalSeconds: st.Interval.Seconds(),
			MaxStored:       st.MaxStored,
			Captures:        st.Captures,
			Failures:        st.Failures,
			LastError:       st.LastError,
			LastArtifact:    st.LastArtifact,
		}
		if !st.LastCapture.IsZero() {
			info.LastCapture = &st.LastCapture
		}
		resp.Timelapse = info
	}

	c.JSON(http.StatusOK, resp)
}

// handleSnapshot は最新画像を返す。まだ無ければその場で撮影する
func (s *Server) handleSnapshot(c *gin.Context) {
	store := s.coord.Store()
	if !store.Exists() {
		s.log.Warn("スナップショットが無いため撮影します")
		if _, err := s.coord.Capture(c.Request.Context(), true); err != nil {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "スナップショットが無く、撮影にも失敗しました",
			})
			return
		}
	}

	c.Header("Cache-Control", "no-cache")
	c.File(store.LatestPath())
}

// handleCapture は新しい画像を撮影する
func (s *Server) handleCapture(c *gin.Context) {
	s.log.Info("撮影要求を受け付けました")

	artifact, err := s.coord.Capture(c.Request.Context(), true)
	if err != nil {
		c.JSON(http.StatusInternalServerError, CaptureResponse{
			Success: false,
			Error:   captureErrorMessage(err),
		})
		return
	}

	ts := artifact.CapturedAt
	c.JSON(http.StatusOK, CaptureResponse{
		Success:   true,
		Message:   "撮影に成功しました",
		Timestamp: &ts,
		Filepath:  artifact.TimestampedPath,
	})
}

// handleTestCamera はカメラの接続を確認する
func (s *Server) handleTestCamera(c *gin.Context) {
	s.log.Info("接続確認の要求を受け付けました")

	ok := s.coord.Test(c.Request.Context())
	message := "カメラの接続確認に成功しました"
	if !ok {
		message = "カメラの接続確認に失敗しました"
	}
	c.JSON(http.StatusOK, TestResponse{
		Success:   ok,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// handleVideoFeed はMJPEGストリームを配信する
// 配信の失敗はレスポンスを終えるだけで、エラーは返さない
func (s *Server) handleVideoFeed(c *gin.Context) {
	ctx, cancel := s.streamContext(c.Request.Context())
	defer cancel()

	stream := s.coord.Stream(ctx)
	s.log.Info("ストリーム配信の要求を受け付けました", "stream_id", stream.ID(), "client_ip", c.ClientIP())

	c.Header("Content-Type", camera.MultipartContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	for frame := range stream.Frames() {
		if _, err := c.Writer.Write(frame.Chunk()); err != nil {
			s.log.Debug("クライアントへの書き込みに失敗しました", "stream_id", stream.ID(), "error", err)
			break
		}
		c.Writer.Flush()
	}

	if err := stream.Err(); err != nil && !isContextError(err) {
		s.log.Warn("ストリームが異常終了しました", "stream_id", stream.ID(), "error", err)
	}
}

// handleAPIDocument はAPIドキュメントをJSONで返す
func (s *Server) handleAPIDocument(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", s.apiDoc)
}

// captureErrorMessage は撮影失敗の種類に応じたメッセージを返す
func captureErrorMessage(err error) string {
	switch {
	case errors.Is(err, camera.ErrDeviceUnavailable):
		return "カメラを開けませんでした"
	case errors.Is(err, camera.ErrCaptureFailed):
		return "フレームを取得できませんでした"
	case errors.Is(err, camera.ErrEncodeFailed):
		return "画像のエンコードに失敗しました"
	case errors.Is(err, camera.ErrIOFailed):
		return "画像の保存に失敗しました"
	case isContextError(err):
		return "撮影が中断されました"
	default:
		return "撮影に失敗しました"
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// displayHost は画面に表示するホスト名を決める
// 全アドレスで待ち受けている場合はリクエストのHostを使う
func displayHost(configured, requestHost string) string {
	if configured != "" && configured != "0.0.0.0" && configured != "::" {
		return configured
	}
	host, _, err := net.SplitHostPort(requestHost)
	if err != nil {
		if requestHost != "" {
			return requestHost
		}
		return "localhost"
	}
	return host
}
