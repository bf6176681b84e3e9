// Package app はカメラ・保存先・定期撮影・HTTPサーバーを組み立てて起動する
package app

import (
	"context"
	"fmt"
	"time"

	"edgecam/internal/camera"
	"edgecam/internal/config"
	"edgecam/internal/logger"
	"edgecam/internal/server"
	"edgecam/internal/snapshot"
	"edgecam/internal/timelapse"
)

// Option はAppの組み立てを変更する
type Option func(*options)

type options struct {
	device    camera.Device
	discovery camera.Discovery
}

// WithDevice は設定から作る代わりに指定のデバイスを使う
func WithDevice(dev camera.Device) Option {
	return func(o *options) {
		o.device = dev
	}
}

// WithDiscovery はデバイス検出を差し替える
func WithDiscovery(d camera.Discovery) Option {
	return func(o *options) {
		o.discovery = d
	}
}

// App はサーバープロセス全体
type App struct {
	config    *config.Config
	log       *logger.Logger
	store     *snapshot.Store
	coord     *camera.Coordinator
	scheduler *timelapse.Scheduler
	server    *server.Server
}

// New は設定からAppを組み立てる。デバイスはまだ開かない
func New(cfg *config.Config, log *logger.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	o := options{discovery: camera.NewLinuxDiscovery()}
	for _, opt := range opts {
		opt(&o)
	}

	dev := o.device
	if dev == nil {
		var err error
		dev, err = camera.NewDevice(camera.DeviceConfig{
			Backend:     cfg.Camera.Backend,
			Path:        cfg.DevicePath(),
			Index:       cfg.Camera.Index,
			ReadTimeout: cfg.Camera.ReadTimeout,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("カメラデバイスの作成に失敗: %w", err)
		}
	}

	store := snapshot.NewStore(cfg.Storage.ImagesDir, cfg.Storage.LatestName)
	coord := camera.NewCoordinator(dev, store, CoordinatorOptions(cfg), log)
	scheduler := timelapse.NewScheduler(coord, store, cfg.Timelapse, log)

	srv, err := server.New(cfg, coord, log,
		server.WithDiscovery(o.discovery),
		server.WithTimelapse(scheduler),
	)
	if err != nil {
		return nil, fmt.Errorf("HTTPサーバーの作成に失敗: %w", err)
	}

	return &App{
		config:    cfg,
		log:       log,
		store:     store,
		coord:     coord,
		scheduler: scheduler,
		server:    srv,
	}, nil
}

// CoordinatorOptions は設定からCoordinatorの動作設定を作る
func CoordinatorOptions(cfg *config.Config) camera.Options {
	return camera.Options{
		Mode: camera.Mode{
			Width:  cfg.Camera.Width,
			Height: cfg.Camera.Height,
			FPS:    cfg.Camera.FPS,
		},
		CaptureQuality:     cfg.Camera.CaptureQuality,
		StreamQuality:      cfg.Camera.StreamQuality,
		WarmupFrames:       cfg.Camera.WarmupFrames,
		StreamWarmupFrames: cfg.Camera.StreamWarmupFrames,
		SettleDelay:        cfg.Camera.SettleDelay,
		ReopenDelay:        cfg.Camera.ReopenDelay,
	}
}

// Coordinator はカメラの調停役を返す
func (a *App) Coordinator() *camera.Coordinator {
	return a.coord
}

// Startup はサーバー起動前の準備を行う
//
// 保存先を作り、カメラの接続を確認する。確認に成功した場合は最初の1枚を撮影する。
// カメラが使えなくてもサーバーは起動するため、カメラの失敗はエラーにしない。
func (a *App) Startup(ctx context.Context) error {
	a.log.Info("edgecam を起動しています",
		"images_dir", a.config.Storage.ImagesDir,
		"device", a.config.DevicePath(),
		"address", a.config.ServerAddress(),
	)

	if err := a.store.EnsureDir(); err != nil {
		return fmt.Errorf("画像ディレクトリの作成に失敗: %w", err)
	}

	if !a.coord.Test(ctx) {
		a.log.Warn("カメラの接続確認に失敗しました。サーバーは起動しますがカメラは使えない可能性があります")
		return nil
	}

	artifact, err := a.coord.Capture(ctx, true)
	if err != nil {
		a.log.Warn("最初のスナップショットの撮影に失敗しました", "error", err)
		return nil
	}
	a.log.Info("最初のスナップショットを保存しました", "path", artifact.TimestampedPath)
	return nil
}

// Run は起動準備の後にサーバーを動かし、終了時にすべてを片付ける
// ctx の終了かSIGINT/SIGTERMで戻る
func (a *App) Run(ctx context.Context) error {
	if err := a.Startup(ctx); err != nil {
		return err
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("定期撮影の開始に失敗: %w", err)
	}

	serveErr := a.server.Start(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.scheduler.Stop(stopCtx); err != nil {
		a.log.Error("定期撮影の停止に失敗しました", "error", err)
	}
	if err := a.coord.Close(stopCtx); err != nil {
		a.log.Error("カメラの解放に失敗しました", "error", err)
	}

	a.log.Info("edgecam を終了しました")
	return serveErr
}
