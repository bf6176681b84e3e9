package timelapse

import (
	"context"
	"time"

	"edgecam/internal/snapshot"
)

// Config は定期撮影の設定
type Config struct {
	Enabled   bool          `yaml:"enabled"`    // 有効/無効
	Interval  time.Duration `yaml:"interval"`   // 撮影間隔
	MaxStored int           `yaml:"max_stored"` // 残す時刻付き画像の最大枚数。0以下なら削除しない
}

// DefaultConfig はデフォルトの定期撮影設定を返す
func DefaultConfig() Config {
	return Config{
		Enabled:   false,
		Interval:  5 * time.Minute,
		MaxStored: 100,
	}
}

// Capturer は静止画を撮影して保存する
type Capturer interface {
	Capture(ctx context.Context, persistTimestamped bool) (snapshot.Artifact, error)
}

// Pruner は古い時刻付き画像を削除する
type Pruner interface {
	Prune(max int) (int, error)
}

// StatusInfo は定期撮影の状態
type StatusInfo struct {
	Enabled      bool          `json:"enabled"`
	Running      bool          `json:"running"`
	Interval     time.Duration `json:"interval"`
	MaxStored    int           `json:"max_stored"`
	Captures     int           `json:"captures"`
	Failures     int           `json:"failures"`
	LastCapture  time.Time     `json:"last_capture"`
	LastError    string        `json:"last_error,omitempty"`
	LastArtifact string        `json:"last_artifact,omitempty"`
}
