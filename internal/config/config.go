package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"edgecam/internal/logger"
	"edgecam/internal/timelapse"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Camera    CameraConfig     `yaml:"camera"`
	Storage   StorageConfig    `yaml:"storage"`
	Timelapse timelapse.Config `yaml:"timelapse"`
	Log       logger.LogConfig `yaml:"log"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // 読み込みタイムアウト
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // 書き込みタイムアウト
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // グレースフルシャットダウンの猶予
}

// CameraConfig はカメラ関連の設定
type CameraConfig struct {
	Backend string `yaml:"backend"` // v4l2 または gocv
	Index   int    `yaml:"index"`   // デバイス番号 (0 は /dev/video0)
	Device  string `yaml:"device"`  // デバイスパス。空ならIndexから決まる

	Width  int `yaml:"width"`  // 画像幅
	Height int `yaml:"height"` // 画像高さ
	FPS    int `yaml:"fps"`    // フレームレート (fps)

	// JPEG品質 (1-100)。静止画とストリームは別々に調整する
	CaptureQuality int `yaml:"capture_quality"`
	StreamQuality  int `yaml:"stream_quality"`

	// 露出・フォーカスが落ち着くまでのウォームアップ
	WarmupFrames       int           `yaml:"warmup_frames"`
	StreamWarmupFrames int           `yaml:"stream_warmup_frames"`
	SettleDelay        time.Duration `yaml:"settle_delay"`

	// 1フレーム読み取りの上限。V4L2は秒単位でしか待てないため1秒の倍数で指定する。0なら無制限
	ReadTimeout time.Duration `yaml:"read_timeout"`
	ReopenDelay time.Duration `yaml:"reopen_delay"` // ストリーム中にデバイスを開けなかった時の待機
}

// StorageConfig はスナップショット保存先の設定
type StorageConfig struct {
	ImagesDir  string `yaml:"images_dir"`  // 画像ディレクトリ
	LatestName string `yaml:"latest_name"` // 常に上書きされる最新画像のファイル名
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    0, // ストリーミング用にタイムアウト無効化
			ShutdownTimeout: 5 * time.Second,
		},
		Camera: CameraConfig{
			Backend:            "v4l2",
			Index:              0,
			Width:              1920,
			Height:             1080,
			FPS:                30,
			CaptureQuality:     95,
			StreamQuality:      85,
			WarmupFrames:       10,
			StreamWarmupFrames: 5,
			SettleDelay:        500 * time.Millisecond,
			ReadTimeout:        5 * time.Second,
			ReopenDelay:        time.Second,
		},
		Storage: StorageConfig{
			ImagesDir:  "images",
			LatestName: "snapshot.jpg",
		},
		Timelapse: timelapse.DefaultConfig(),
		Log: logger.LogConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
	}
}

// Load は設定を読み込む
// デフォルト値 → YAMLファイル（指定時のみ）→ 環境変数 の順に上書きする
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("EDGECAM_CONFIG")
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルの解析に失敗: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// applyEnv は環境変数で設定を上書きする
func (c *Config) applyEnv() {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("PORT", c.Server.Port)
	c.Camera.Index = getEnvAsIntOrDefault("CAMERA_INDEX", c.Camera.Index)
	c.Camera.Device = getEnvOrDefault("CAMERA_DEVICE", c.Camera.Device)
	c.Camera.Backend = getEnvOrDefault("CAMERA_BACKEND", c.Camera.Backend)
	c.Storage.ImagesDir = getEnvOrDefault("IMAGES_DIR", c.Storage.ImagesDir)
	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	switch strings.ToLower(c.Camera.Backend) {
	case "v4l2", "gocv":
	default:
		return fmt.Errorf("サポートされていないバックエンド: %s", c.Camera.Backend)
	}

	if c.Camera.Index < 0 {
		return fmt.Errorf("無効なカメラ番号: %d", c.Camera.Index)
	}
	if c.Camera.Width <= 0 || c.Camera.Width > 4096 {
		return fmt.Errorf("無効な幅: %d", c.Camera.Width)
	}
	if c.Camera.Height <= 0 || c.Camera.Height > 4096 {
		return fmt.Errorf("無効な高さ: %d", c.Camera.Height)
	}
	if c.Camera.FPS <= 0 || c.Camera.FPS > 120 {
		return fmt.Errorf("無効なFPS値: %d", c.Camera.FPS)
	}
	if err := validateQuality("capture_quality", c.Camera.CaptureQuality); err != nil {
		return err
	}
	if err := validateQuality("stream_quality", c.Camera.StreamQuality); err != nil {
		return err
	}
	if c.Camera.WarmupFrames < 0 || c.Camera.StreamWarmupFrames < 0 {
		return fmt.Errorf("ウォームアップフレーム数は0以上である必要があります")
	}
	if c.Camera.SettleDelay < 0 || c.Camera.ReadTimeout < 0 || c.Camera.ReopenDelay < 0 {
		return fmt.Errorf("待機時間に負の値は指定できません")
	}
	if c.Camera.ReadTimeout%time.Second != 0 {
		return fmt.Errorf("read_timeout は1秒単位で指定してください: %s", c.Camera.ReadTimeout)
	}

	if c.Storage.ImagesDir == "" {
		return fmt.Errorf("画像ディレクトリが設定されていません")
	}
	if c.Storage.LatestName == "" || strings.ContainsRune(c.Storage.LatestName, os.PathSeparator) {
		return fmt.Errorf("無効な最新画像ファイル名: %q", c.Storage.LatestName)
	}

	if c.Timelapse.Enabled && c.Timelapse.Interval <= 0 {
		return fmt.Errorf("タイムラプスの撮影間隔が不正です: %s", c.Timelapse.Interval)
	}

	return nil
}

// validateQuality はJPEG品質が1-100の範囲にあるか確認する
func validateQuality(name string, q int) error {
	if q < 1 || q > 100 {
		return fmt.Errorf("無効なJPEG品質 %s: %d", name, q)
	}
	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DevicePath はカメラのデバイスパスを返す
func (c *Config) DevicePath() string {
	if c.Camera.Device != "" {
		return c.Camera.Device
	}
	return fmt.Sprintf("/dev/video%d", c.Camera.Index)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
