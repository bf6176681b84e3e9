//go:build linux

package camera

import (
	"errors"
	"fmt"
	"time"

	"github.com/blackjack/webcam"

	"edgecam/internal/logger"
)

const (
	v4l2PixFmtMJPEG webcam.PixelFormat = 0x47504A4D // 'MJPG'
	v4l2PixFmtYUYV  webcam.PixelFormat = 0x56595559 // 'YUYV'

	v4l2CidExposureAuto webcam.ControlID = 0x009a0901
	v4l2CidFocusAuto    webcam.ControlID = 0x009a090c

	v4l2ExposureAperturePriority = 3
)

// V4L2Device はV4L2経由でUSBカメラを扱うDevice実装
type V4L2Device struct {
	path        string
	readTimeout time.Duration
	log         *logger.Logger

	cam    *webcam.Webcam
	format webcam.PixelFormat
	width  uint32
	height uint32
}

// NewV4L2Device は新しいV4L2Deviceを作成する
// readTimeout はフレーム1枚を待つ上限。0の場合は実質無制限に待つ
func NewV4L2Device(path string, readTimeout time.Duration, log *logger.Logger) *V4L2Device {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &V4L2Device{
		path:        path,
		readTimeout: readTimeout,
		log:         log.With("device", path),
	}
}

// Open はデバイスを開き、フォーマットを設定してストリーミングを開始する
func (d *V4L2Device) Open(mode Mode) error {
	if d.cam != nil {
		return nil
	}

	cam, err := webcam.Open(d.path)
	if err != nil {
		return fmt.Errorf("デバイス %s を開けません: %w", d.path, err)
	}

	format, err := selectPixelFormat(cam.GetSupportedFormats())
	if err != nil {
		_ = cam.Close()
		return err
	}

	f, w, h, err := cam.SetImageFormat(format, uint32(mode.Width), uint32(mode.Height))
	if err != nil {
		_ = cam.Close()
		return fmt.Errorf("画像フォーマットの設定に失敗: %w", err)
	}
	if int(w) != mode.Width || int(h) != mode.Height {
		d.log.Warn("要求と異なる解像度になりました",
			"requested", fmt.Sprintf("%dx%d", mode.Width, mode.Height),
			"actual", fmt.Sprintf("%dx%d", w, h),
		)
	}

	if mode.FPS > 0 {
		if err := cam.SetFramerate(float32(mode.FPS)); err != nil {
			d.log.Warn("フレームレートを設定できません", "fps", mode.FPS, "error", err)
		}
	}

	// 自動露出・オートフォーカスは対応していないカメラも多い
	if err := cam.SetControl(v4l2CidExposureAuto, v4l2ExposureAperturePriority); err != nil {
		d.log.Warn("自動露出を有効にできません", "error", err)
	}
	if err := cam.SetControl(v4l2CidFocusAuto, 1); err != nil {
		d.log.Debug("オートフォーカスを有効にできません", "error", err)
	}

	if err := cam.SetBufferCount(2); err != nil {
		d.log.Warn("バッファ数を設定できません", "error", err)
	}

	if err := cam.StartStreaming(); err != nil {
		_ = cam.Close()
		return fmt.Errorf("ストリーミングの開始に失敗: %w", err)
	}

	d.cam = cam
	d.format = f
	d.width = w
	d.height = h

	d.log.Info("カメラを開きました",
		"format", toPixelFormat(f).String(),
		"width", w,
		"height", h,
		"fps", mode.FPS,
	)
	return nil
}

// ReadFrame はフレームを1枚読む
// readTimeout を過ぎても届かない場合はエラーを返す
func (d *V4L2Device) ReadFrame() (Frame, error) {
	if d.cam == nil {
		return Frame{}, errors.New("デバイスが開かれていません")
	}

	err := d.cam.WaitForFrame(d.timeoutSeconds())
	switch err.(type) {
	case nil:
	case *webcam.Timeout:
		return Frame{}, fmt.Errorf("フレーム待機がタイムアウトしました (%s): %w", d.readTimeout, err)
	default:
		return Frame{}, fmt.Errorf("フレーム待機に失敗: %w", err)
	}

	data, err := d.cam.ReadFrame()
	if err != nil {
		return Frame{}, fmt.Errorf("フレームの読み取りに失敗: %w", err)
	}
	if len(data) == 0 {
		return Frame{}, errors.New("空のフレームを受信しました")
	}

	// ドライバーのバッファは次の読み取りで再利用される
	buf := make([]byte, len(data))
	copy(buf, data)

	return Frame{
		Width:  int(d.width),
		Height: int(d.height),
		Format: toPixelFormat(d.format),
		Data:   buf,
	}, nil
}

// Close はストリーミングを止めてデバイスを解放する
func (d *V4L2Device) Close() error {
	if d.cam == nil {
		return nil
	}

	cam := d.cam
	d.cam = nil

	return errors.Join(cam.StopStreaming(), cam.Close())
}

// timeoutSeconds は読み取りの上限を秒に切り捨てる。1秒未満は1秒、0以下は実質無制限
// 設定側で1秒の倍数しか受け付けないため、通常は切り捨てが起きない
func (d *V4L2Device) timeoutSeconds() uint32 {
	if d.readTimeout <= 0 {
		return uint32((24 * time.Hour).Seconds())
	}
	secs := uint32(d.readTimeout / time.Second)
	if secs == 0 {
		secs = 1
	}
	return secs
}

// selectPixelFormat はMJPEGを優先し、なければYUYVを選ぶ
func selectPixelFormat(supported map[webcam.PixelFormat]string) (webcam.PixelFormat, error) {
	for _, want := range []webcam.PixelFormat{v4l2PixFmtMJPEG, v4l2PixFmtYUYV} {
		if _, ok := supported[want]; ok {
			return want, nil
		}
	}

	names := make([]string, 0, len(supported))
	for _, name := range supported {
		names = append(names, name)
	}
	return 0, fmt.Errorf("対応する画素形式がありません: %v", names)
}

func toPixelFormat(f webcam.PixelFormat) PixelFormat {
	switch f {
	case v4l2PixFmtMJPEG:
		return FormatMJPEG
	case v4l2PixFmtYUYV:
		return FormatYUYV
	default:
		return 0
	}
}
