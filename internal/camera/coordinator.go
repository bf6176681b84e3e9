package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"edgecam/internal/logger"
	"edgecam/internal/snapshot"
)

// Coordinator は1台のカメラへのアクセスを直列化する
//
// デバイスに触れる操作（開く・読む・閉じる）はすべてWithDeviceのロック内で行う。
// ロック待ちは到着順に処理される。
type Coordinator struct {
	sem     *semaphore.Weighted
	handle  *deviceHandle
	store   *snapshot.Store
	encoder Encoder
	opts    Options
	log     *logger.Logger

	mu          sync.RWMutex
	status      Status
	lastChecked time.Time

	now func() time.Time
}

// NewCoordinator は新しいCoordinatorを作成する
func NewCoordinator(dev Device, store *snapshot.Store, opts Options, log *logger.Logger) *Coordinator {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.Named("camera")
	encoder := opts.Encoder
	if encoder == nil {
		encoder = JPEGEncoder{}
	}

	return &Coordinator{
		sem: semaphore.NewWeighted(1),
		handle: &deviceHandle{
			dev:  dev,
			mode: opts.Mode,
			log:  log,
		},
		store:   store,
		encoder: encoder,
		opts:    opts,
		log:     log,
		status:  StatusUnknown,
		now:     time.Now,
	}
}

// WithDevice は排他ロックを取得してfnを実行する
//
// ロックはfnの戻り方（正常終了・エラー・panic）に関係なく必ず解放される。
// panicの場合はデバイスを閉じてから再度panicする。
// fnに渡したSessionはfnが戻った時点で無効になる。
func (c *Coordinator) WithDevice(ctx context.Context, fn func(*Session) error) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("カメラのロック取得を中断: %w", err)
	}
	defer c.sem.Release(1)

	session := &Session{h: c.handle}
	defer func() {
		session.closed = true
		if r := recover(); r != nil {
			c.handle.close()
			panic(r)
		}
	}()

	return fn(session)
}

// Close はデバイスが開いていれば解放する
func (c *Coordinator) Close(ctx context.Context) error {
	return c.WithDevice(ctx, func(s *Session) error {
		return s.Close()
	})
}

// Status はカメラの最後に確認された状態を返す
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Online は最後の操作でカメラが応答していたか返す
func (c *Coordinator) Online() bool {
	return c.Status() == StatusOnline
}

// LastChecked は状態を最後に更新した時刻を返す
func (c *Coordinator) LastChecked() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastChecked
}

// Options は動作設定を返す
func (c *Coordinator) Options() Options {
	return c.opts
}

// Store は画像の保存先を返す
func (c *Coordinator) Store() *snapshot.Store {
	return c.store
}

func (c *Coordinator) setStatus(status Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != status {
		c.log.Info("カメラの状態が変化しました", "from", string(c.status), "to", string(status))
	}
	c.status = status
	c.lastChecked = c.now()
}

// observe は操作結果からカメラの状態を更新する
// キャンセルやエンコード失敗はデバイスの状態と無関係なので無視する
func (c *Coordinator) observe(err error) {
	switch {
	case err == nil:
		c.setStatus(StatusOnline)
	case errors.Is(err, ErrDeviceUnavailable), errors.Is(err, ErrCaptureFailed):
		c.setStatus(StatusOffline)
	}
}

// sleepContext はdだけ待つ。途中でctxが終了したらそのエラーを返す
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
