package camera

import (
	"fmt"
	"strings"
	"time"

	"edgecam/internal/logger"
)

// Backend はデバイスの実装を選ぶ名前
const (
	BackendV4L2 = "v4l2"
	BackendGoCV = "gocv"
)

// DeviceConfig はNewDeviceに渡すデバイスの指定
type DeviceConfig struct {
	Backend     string
	Path        string        // v4l2 で開くデバイスノード
	Index       int           // gocv で開くカメラ番号
	ReadTimeout time.Duration // v4l2 の1フレーム待ちの上限
}

// NewDevice は設定に応じたDeviceを作成する
func NewDevice(cfg DeviceConfig, log *logger.Logger) (Device, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendV4L2:
		return NewV4L2Device(cfg.Path, cfg.ReadTimeout, log), nil
	case BackendGoCV:
		return NewGoCVDevice(cfg.Index, log)
	default:
		return nil, fmt.Errorf("サポートされていないバックエンド: %s", cfg.Backend)
	}
}
