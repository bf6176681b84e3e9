//go:build gocv

package camera

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"gocv.io/x/gocv"

	"edgecam/internal/logger"
)

// GoCVAvailable はOpenCVバックエンドが組み込まれているか
const GoCVAvailable = true

// GoCVDevice はOpenCVのVideoCapture経由でカメラを扱うDevice実装
// `-tags gocv` でビルドした場合のみ使える
type GoCVDevice struct {
	index int
	log   *logger.Logger

	capture *gocv.VideoCapture
	mat     gocv.Mat
}

// NewGoCVDevice は新しいGoCVDeviceを作成する
func NewGoCVDevice(index int, log *logger.Logger) (Device, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &GoCVDevice{
		index: index,
		log:   log.With("backend", "gocv", "index", index),
	}, nil
}

// Open はV4L2バックエンドでVideoCaptureを開く
func (d *GoCVDevice) Open(mode Mode) error {
	if d.capture != nil {
		return nil
	}

	capture, err := gocv.OpenVideoCaptureWithAPI(d.index, gocv.VideoCaptureV4L2)
	if err != nil {
		return fmt.Errorf("カメラ %d を開けません: %w", d.index, err)
	}
	if !capture.IsOpened() {
		_ = capture.Close()
		return fmt.Errorf("カメラ %d を開けません", d.index)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(mode.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(mode.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(mode.FPS))

	// V4L2バックエンドでは0.75が自動露出を表す
	capture.Set(gocv.VideoCaptureAutoExposure, 0.75)
	capture.Set(gocv.VideoCaptureAutoFocus, 1)

	d.capture = capture
	d.mat = gocv.NewMat()

	d.log.Info("カメラを開きました",
		"width", capture.Get(gocv.VideoCaptureFrameWidth),
		"height", capture.Get(gocv.VideoCaptureFrameHeight),
		"fps", capture.Get(gocv.VideoCaptureFPS),
	)
	return nil
}

// ReadFrame はフレームを1枚読んでRGBAに変換する
func (d *GoCVDevice) ReadFrame() (Frame, error) {
	if d.capture == nil {
		return Frame{}, errors.New("デバイスが開かれていません")
	}

	if ok := d.capture.Read(&d.mat); !ok {
		return Frame{}, errors.New("フレームの読み取りに失敗")
	}
	if d.mat.Empty() {
		return Frame{}, errors.New("空のフレームを受信しました")
	}

	img, err := d.mat.ToImage()
	if err != nil {
		return Frame{}, fmt.Errorf("フレームの変換に失敗: %w", err)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = image.NewRGBA(img.Bounds())
		draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	}

	return Frame{
		Width:  rgba.Bounds().Dx(),
		Height: rgba.Bounds().Dy(),
		Format: FormatRGBA,
		Data:   rgba.Pix,
	}, nil
}

// Close はVideoCaptureを解放する
func (d *GoCVDevice) Close() error {
	if d.capture == nil {
		return nil
	}

	err := errors.Join(d.mat.Close(), d.capture.Close())
	d.capture = nil
	return err
}
