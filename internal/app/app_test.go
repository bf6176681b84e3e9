package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgecam/internal/camera"
	"edgecam/internal/config"
	"edgecam/internal/snapshot"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Storage.ImagesDir = filepath.Join(t.TempDir(), "images")
	cfg.Camera.Width = 16
	cfg.Camera.Height = 16
	cfg.Camera.WarmupFrames = 1
	cfg.Camera.SettleDelay = 0
	return cfg
}

func TestCoordinatorOptions(t *testing.T) {
	cfg := config.Default()
	opts := CoordinatorOptions(cfg)

	assert.Equal(t, camera.Mode{Width: 1920, Height: 1080, FPS: 30}, opts.Mode)
	assert.Equal(t, 95, opts.CaptureQuality)
	assert.Equal(t, 85, opts.StreamQuality)
	assert.Equal(t, 10, opts.WarmupFrames)
	assert.Equal(t, 5, opts.StreamWarmupFrames)
	assert.Equal(t, 500*time.Millisecond, opts.SettleDelay)
	assert.Equal(t, time.Second, opts.ReopenDelay)
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Camera.Backend = "ffmpeg"

	_, err := New(cfg, nil)
	assert.Error(t, err)
}

// 接続確認に成功した場合は最初の1枚を保存する
func TestStartup_InitialSnapshot(t *testing.T) {
	cfg := testConfig(t)
	dev := camera.NewMockDevice(16, 16)
	a, err := New(cfg, nil, WithDevice(dev), WithDiscovery(camera.NewMockDiscovery(nil)))
	require.NoError(t, err)

	require.NoError(t, a.Startup(context.Background()))

	store := snapshot.NewStore(cfg.Storage.ImagesDir, cfg.Storage.LatestName)
	assert.True(t, store.Exists())
	paths, err := store.ListTimestamped()
	require.NoError(t, err)
	assert.Len(t, paths, 1)

	assert.True(t, a.Coordinator().Online())
	assert.Equal(t, 2, dev.OpenCount(), "接続確認と撮影で1回ずつ開く")
	assert.False(t, dev.IsOpen())
}

// カメラが使えなくても起動は続ける
func TestStartup_CameraUnavailable(t *testing.T) {
	cfg := testConfig(t)
	dev := camera.NewMockDevice(16, 16)
	dev.FailOpen(errors.New("no device"))
	a, err := New(cfg, nil, WithDevice(dev), WithDiscovery(camera.NewMockDiscovery(nil)))
	require.NoError(t, err)

	require.NoError(t, a.Startup(context.Background()))

	assert.DirExists(t, cfg.Storage.ImagesDir)
	assert.False(t, snapshot.NewStore(cfg.Storage.ImagesDir, cfg.Storage.LatestName).Exists())
	assert.False(t, a.Coordinator().Online())
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timelapse.Enabled = true
	cfg.Timelapse.Interval = 10 * time.Millisecond
	cfg.Timelapse.MaxStored = 3

	dev := camera.NewMockDevice(16, 16)
	a, err := New(cfg, nil, WithDevice(dev), WithDiscovery(camera.NewMockDiscovery(nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
	}()

	// 定期撮影が動いていることを確認してから止める
	require.Eventually(t, func() bool { return a.scheduler.Status().Captures >= 1 }, 3*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("終了がタイムアウトしました")
	}

	assert.False(t, a.scheduler.Status().Running)
	assert.False(t, dev.IsOpen())
	assert.Zero(t, dev.Violations())
}
