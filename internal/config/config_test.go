package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfigLoad はデフォルト設定の読み込みをテストする
func TestConfigLoad(t *testing.T) {
	t.Setenv("EDGECAM_CONFIG", "")

	cfg, err := Load("")
	require.NoError(t, err, "設定の読み込みに失敗しました")
	require.NotNil(t, cfg)

	// サーバー設定の検証
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Positive(t, cfg.Server.ReadTimeout)
	// WriteTimeout は 0（無効）でも正常
	assert.Zero(t, cfg.Server.WriteTimeout)

	// カメラ設定の検証
	assert.Equal(t, "v4l2", cfg.Camera.Backend)
	assert.Equal(t, 1920, cfg.Camera.Width)
	assert.Equal(t, 1080, cfg.Camera.Height)
	assert.Equal(t, 30, cfg.Camera.FPS)
	assert.Equal(t, 95, cfg.Camera.CaptureQuality)
	assert.Equal(t, 85, cfg.Camera.StreamQuality)
	assert.Equal(t, 10, cfg.Camera.WarmupFrames)
	assert.Equal(t, 5, cfg.Camera.StreamWarmupFrames)
	assert.Equal(t, 500*time.Millisecond, cfg.Camera.SettleDelay)

	// 保存先
	assert.Equal(t, "images", cfg.Storage.ImagesDir)
	assert.Equal(t, "snapshot.jpg", cfg.Storage.LatestName)
	assert.Equal(t, "/dev/video0", cfg.DevicePath())

	// 定期撮影はデフォルト無効
	assert.False(t, cfg.Timelapse.Enabled)
}

// TestConfigLoadFile はYAMLファイルからの読み込みをテストする
func TestConfigLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edgecam.yaml")
	content := `server:
  host: 127.0.0.1
  port: 8081
camera:
  index: 2
  width: 640
  height: 480
  fps: 15
  stream_quality: 60
  settle_delay: 250ms
storage:
  images_dir: /tmp/edgecam-images
timelapse:
  enabled: true
  interval: 1m
  max_stored: 10
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8081", cfg.ServerAddress())
	assert.Equal(t, 2, cfg.Camera.Index)
	assert.Equal(t, "/dev/video2", cfg.DevicePath())
	assert.Equal(t, 640, cfg.Camera.Width)
	assert.Equal(t, 60, cfg.Camera.StreamQuality)
	// ファイルで指定していない値はデフォルトのまま
	assert.Equal(t, 95, cfg.Camera.CaptureQuality)
	assert.Equal(t, 250*time.Millisecond, cfg.Camera.SettleDelay)
	assert.Equal(t, "/tmp/edgecam-images", cfg.Storage.ImagesDir)
	assert.True(t, cfg.Timelapse.Enabled)
	assert.Equal(t, time.Minute, cfg.Timelapse.Interval)
	assert.Equal(t, 10, cfg.Timelapse.MaxStored)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

// TestConfigLoadFile_Errors は読み込みエラーをテストする
func TestConfigLoadFile_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	broken := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("server: [unterminated"), 0o644))
	_, err = Load(broken)
	assert.Error(t, err)

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("camera:\n  capture_quality: 0\n"), 0o644))
	_, err = Load(invalid)
	assert.Error(t, err)
}

// TestConfigValidation は設定の検証をテストする
func TestConfigValidation(t *testing.T) {
	testCases := []struct {
		name      string
		mutate    func(c *Config)
		expectErr bool
	}{
		{"正常な設定", func(c *Config) {}, false},
		{"ランダムポート", func(c *Config) { c.Server.Port = 0 }, false},
		{"無効なポート番号", func(c *Config) { c.Server.Port = 99999 }, true},
		{"未知のバックエンド", func(c *Config) { c.Camera.Backend = "ffmpeg" }, true},
		{"gocvバックエンド", func(c *Config) { c.Camera.Backend = "gocv" }, false},
		{"負のカメラ番号", func(c *Config) { c.Camera.Index = -1 }, true},
		{"幅なし", func(c *Config) { c.Camera.Width = 0 }, true},
		{"高さが大きすぎる", func(c *Config) { c.Camera.Height = 10000 }, true},
		{"FPSなし", func(c *Config) { c.Camera.FPS = 0 }, true},
		{"ストリーム品質が範囲外", func(c *Config) { c.Camera.StreamQuality = 101 }, true},
		{"負のウォームアップ", func(c *Config) { c.Camera.WarmupFrames = -1 }, true},
		{"ウォームアップなし", func(c *Config) { c.Camera.WarmupFrames = 0 }, false},
		{"負の待機時間", func(c *Config) { c.Camera.SettleDelay = -time.Second }, true},
		{"読み取りタイムアウトが秒の倍数", func(c *Config) { c.Camera.ReadTimeout = 2 * time.Second }, false},
		{"読み取りタイムアウトなし", func(c *Config) { c.Camera.ReadTimeout = 0 }, false},
		{"読み取りタイムアウトが秒未満", func(c *Config) { c.Camera.ReadTimeout = 500 * time.Millisecond }, true},
		{"読み取りタイムアウトに端数", func(c *Config) { c.Camera.ReadTimeout = 1900 * time.Millisecond }, true},
		{"画像ディレクトリなし", func(c *Config) { c.Storage.ImagesDir = "" }, true},
		{"最新画像名にパス区切り", func(c *Config) { c.Storage.LatestName = "a/b.jpg" }, true},
		{"タイムラプス間隔なし", func(c *Config) {
			c.Timelapse.Enabled = true
			c.Timelapse.Interval = 0
		}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.expectErr {
				assert.Error(t, err, "エラーが期待されましたが、エラーが発生しませんでした")
			} else {
				assert.NoError(t, err, "予期しないエラーが発生しました")
			}
		})
	}
}

// TestServerAddress はサーバーアドレスの生成をテストする
func TestServerAddress(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "192.168.1.100",
			Port: 9090,
		},
	}

	assert.Equal(t, "192.168.1.100:9090", cfg.ServerAddress())
}

// TestDevicePathOverride はデバイスパスの明示指定をテストする
func TestDevicePathOverride(t *testing.T) {
	cfg := Default()
	cfg.Camera.Device = "/dev/v4l/by-id/usb-cam"

	assert.Equal(t, "/dev/v4l/by-id/usb-cam", cfg.DevicePath())
}

// TestEnvironmentVariables は環境変数の処理をテストする
func TestEnvironmentVariables(t *testing.T) {
	t.Setenv("EDGECAM_CONFIG", "")
	t.Setenv("SERVER_HOST", "test.example.com")
	t.Setenv("PORT", "9999")
	t.Setenv("CAMERA_INDEX", "3")
	t.Setenv("IMAGES_DIR", "/var/lib/edgecam")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err, "設定の読み込みに失敗しました")

	assert.Equal(t, "test.example.com", cfg.Server.Host)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Camera.Index)
	assert.Equal(t, "/var/lib/edgecam", cfg.Storage.ImagesDir)
	assert.Equal(t, "warn", cfg.Log.Level)
}

// TestEnvironmentVariables_InvalidInt は数値でない環境変数を無視することをテストする
func TestEnvironmentVariables_InvalidInt(t *testing.T) {
	t.Setenv("EDGECAM_CONFIG", "")
	t.Setenv("PORT", "abc")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Server.Port)
}
