package camera

import (
	"context"
	"time"
)

// Status はカメラの最後に確認された状態を表す
type Status string

const (
	StatusUnknown Status = "unknown" // まだ一度も確認していない
	StatusOnline  Status = "online"  // 直近の操作でフレームを取得できた
	StatusOffline Status = "offline" // 直近の操作でデバイスを開けない、または読めなかった
)

// Mode はデバイスに要求する撮影モード
type Mode struct {
	Width  int // 画像幅
	Height int // 画像高さ
	FPS    int // フレームレート
}

// Options はCoordinatorの動作設定
type Options struct {
	Mode Mode

	CaptureQuality int // 静止画のJPEG品質
	StreamQuality  int // ストリームのJPEG品質

	WarmupFrames       int           // 静止画撮影前に読み捨てるフレーム数
	StreamWarmupFrames int           // ストリーム開始時に読み捨てるフレーム数
	SettleDelay        time.Duration // ウォームアップ後の待機
	ReopenDelay        time.Duration // ストリーム中にデバイスを開けなかった時の待機

	// Encoder が nil の場合は JPEGEncoder を使う
	Encoder Encoder
}

// DefaultOptions はデフォルトの動作設定を返す
func DefaultOptions() Options {
	return Options{
		Mode:               Mode{Width: 1920, Height: 1080, FPS: 30},
		CaptureQuality:     95,
		StreamQuality:      85,
		WarmupFrames:       10,
		StreamWarmupFrames: 5,
		SettleDelay:        500 * time.Millisecond,
		ReopenDelay:        time.Second,
	}
}

// Discovery はカメラデバイスの検出機能を提供する
type Discovery interface {
	// ScanDevices はシステム内の利用可能なカメラデバイスをスキャンする
	ScanDevices(ctx context.Context) ([]string, error)

	// IsDeviceAvailable は指定されたデバイスが利用可能かチェックする
	IsDeviceAvailable(ctx context.Context, device string) bool

	// GetDeviceInfo はデバイスの詳細情報を取得する
	GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error)
}

// DeviceInfo はカメラデバイスの詳細情報を表す
type DeviceInfo struct {
	Device string // デバイスパス
	Index  int    // /dev/videoN の N
	Name   string // デバイス名
	Driver string // ドライバー名
}
