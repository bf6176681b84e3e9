package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"edgecam/internal/camera"
	"edgecam/internal/config"
	"edgecam/internal/logger"
	"edgecam/internal/timelapse"
)

// TimelapseStatus は定期撮影の状態を返す
type TimelapseStatus interface {
	Status() timelapse.StatusInfo
}

// Option はServerの任意の依存を設定する
type Option func(*Server)

// WithDiscovery はデバイス名の表示に使うDiscoveryを設定する
func WithDiscovery(d camera.Discovery) Option {
	return func(s *Server) {
		s.discovery = d
	}
}

// WithTimelapse は/statusに載せる定期撮影を設定する
func WithTimelapse(t TimelapseStatus) Option {
	return func(s *Server) {
		s.timelapse = t
	}
}

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config    *config.Config
	log       *logger.Logger
	coord     *camera.Coordinator
	discovery camera.Discovery
	timelapse TimelapseStatus

	router     *gin.Engine
	httpServer *http.Server
	index      *template.Template
	apiDoc     []byte
	startedAt  time.Time

	// ストリームはこのコンテキストが終わると止まる
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// New は新しいServerインスタンスを作成する
// 埋め込みのテンプレートやAPIドキュメントが壊れている場合はエラーを返す
func New(cfg *config.Config, coord *camera.Coordinator, log *logger.Logger, opts ...Option) (*Server, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	index, err := loadIndexTemplate()
	if err != nil {
		return nil, err
	}
	apiDoc, err := loadAPIDocument(context.Background())
	if err != nil {
		return nil, err
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:     cfg,
		log:        log.Named("server"),
		coord:      coord,
		index:      index,
		apiDoc:     apiDoc,
		startedAt:  time.Now(),
		baseCtx:    baseCtx,
		cancelBase: cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s, nil
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter はGinのルーティングを設定する
func (s *Server) setupRouter() *gin.Engine {
	// テストから指定されたモードは上書きしない
	if gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(requestID())
	router.Use(ginLogger(s.log))
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	router.GET("/", s.handleIndex)
	router.GET("/health", s.handleHealth)
	router.GET("/status", s.handleStatus)
	router.GET("/snapshot.jpg", s.handleSnapshot)
	router.GET("/capture", s.handleCapture)
	router.GET("/test_camera", s.handleTestCamera)
	router.GET("/video_feed", s.handleVideoFeed)
	router.GET("/ws/video_feed", s.handleVideoWebSocket)
	router.GET("/openapi.json", s.handleAPIDocument)

	return router
}

// Start はサーバーを起動し、コンテキストの終了かシグナルを受けるまでブロックする
func (s *Server) Start(ctx context.Context) error {
	shutdownCh := make(chan error, 1)

	go func() {
		s.log.Info("HTTPサーバーを起動しています", "address", s.config.ServerAddress())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
		s.log.Info("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.log.Info("シグナルを受信しました", "signal", sig.String())
	case err := <-shutdownCh:
		s.cancelBase()
		return err
	}

	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
// 配信中のストリームは先に止める
func (s *Server) Shutdown() error {
	s.log.Info("サーバーをシャットダウンしています")
	s.cancelBase()

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	s.log.Info("サーバーが正常にシャットダウンされました")
	return nil
}

// streamContext はリクエストとサーバーのどちらかが終わると終了するコンテキストを返す
func (s *Server) streamContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(s.baseCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

const requestIDHeader = "X-Request-ID"

// requestID はリクエストごとにIDを振る
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// ginLogger はリクエストをログに出力する
func ginLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		log.Debug("HTTP request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString("request_id"),
		)
	}
}

// corsMiddleware はCORSヘッダーを付ける
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
