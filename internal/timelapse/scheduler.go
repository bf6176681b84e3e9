// Package timelapse は一定間隔での撮影と古い画像の整理を行う
package timelapse

import (
	"context"
	"errors"
	"sync"
	"time"

	"edgecam/internal/logger"
)

// Scheduler は一定間隔でCapturerを呼び、撮影後に古い画像を削除する
type Scheduler struct {
	capturer Capturer
	pruner   Pruner
	config   Config
	log      *logger.Logger

	// 制御用
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	status StatusInfo
}

// NewScheduler は新しいSchedulerを作成する
func NewScheduler(capturer Capturer, pruner Pruner, config Config, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Scheduler{
		capturer: capturer,
		pruner:   pruner,
		config:   config,
		log:      log.Named("timelapse"),
		status: StatusInfo{
			Enabled:   config.Enabled,
			Interval:  config.Interval,
			MaxStored: config.MaxStored,
		},
	}
}

// Start は定期撮影を開始する。無効な設定の場合は何もしない
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Enabled {
		s.log.Info("定期撮影は無効です")
		return nil
	}
	if s.config.Interval <= 0 {
		return errors.New("撮影間隔は正の値である必要があります")
	}
	if s.cancel != nil {
		return errors.New("定期撮影は既に開始されています")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.status.Running = true

	s.wg.Add(1)
	go s.loop(ctx)

	s.log.Info("定期撮影を開始しました", "interval", s.config.Interval.String(), "max_stored", s.config.MaxStored)
	return nil
}

// Stop は定期撮影を停止し、実行中の撮影が終わるのを待つ
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	if cancel != nil {
		// 停止を指示した時点で新しい撮影は始まらない
		s.status.Running = false
	}
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	// ワーカーゴルーチンの終了を待機
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("定期撮影の停止待ちを中断しました", "error", ctx.Err())
		return ctx.Err()
	}

	s.log.Info("定期撮影を停止しました")
	return nil
}

// Status は現在の状態を返す
func (s *Scheduler) Status() StatusInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// loop は一定間隔で撮影する
func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick は1回分の撮影と整理を行う
func (s *Scheduler) tick(ctx context.Context) {
	artifact, err := s.capturer.Capture(ctx, true)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error("定期撮影に失敗しました", "error", err)
		s.mu.Lock()
		s.status.Failures++
		s.status.LastError = err.Error()
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	s.status.Captures++
	s.status.LastCapture = artifact.CapturedAt
	s.status.LastArtifact = artifact.TimestampedPath
	s.status.LastError = ""
	s.mu.Unlock()

	if s.config.MaxStored <= 0 {
		return
	}
	removed, err := s.pruner.Prune(s.config.MaxStored)
	if err != nil {
		s.log.Error("古い画像の削除に失敗しました", "error", err)
		return
	}
	if removed > 0 {
		s.log.Info("古い画像を削除しました", "removed", removed)
	}
}
