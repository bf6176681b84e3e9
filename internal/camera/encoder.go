package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// Encoder は生フレームを圧縮済みのバイト列に変換する
type Encoder interface {
	Encode(frame Frame, quality int) ([]byte, error)
}

// JPEGEncoder は image/jpeg でフレームをJPEGに変換する
type JPEGEncoder struct{}

// Encode はフレームを指定品質のJPEGにする
// MJPEGフレームは一度デコードして品質を揃える。
// デコードできないがJPEGとして始まっているものはそのまま返す
func (JPEGEncoder) Encode(frame Frame, quality int) ([]byte, error) {
	if !frame.Valid() {
		return nil, fmt.Errorf("空のフレームです")
	}

	var img image.Image
	switch frame.Format {
	case FormatMJPEG:
		decoded, err := jpeg.Decode(bytes.NewReader(frame.Data))
		if err != nil {
			// UVCカメラのMJPEGはハフマンテーブルを省略していることがある
			if isJPEG(frame.Data) {
				out := make([]byte, len(frame.Data))
				copy(out, frame.Data)
				return out, nil
			}
			return nil, fmt.Errorf("MJPEGフレームのデコードに失敗: %w", err)
		}
		img = decoded
	case FormatYUYV:
		decoded, err := yuyvToImage(frame)
		if err != nil {
			return nil, err
		}
		img = decoded
	case FormatRGBA:
		decoded, err := rgbaToImage(frame)
		if err != nil {
			return nil, err
		}
		img = decoded
	default:
		return nil, fmt.Errorf("未対応の画素形式: %s", frame.Format)
	}

	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: clampQuality(quality)}); err != nil {
		return nil, fmt.Errorf("JPEGエンコードに失敗: %w", err)
	}
	return buf.Bytes(), nil
}

// yuyvToImage はYUYV 4:2:2 のバイト列をYCbCr画像に並べ替える
func yuyvToImage(frame Frame) (image.Image, error) {
	if frame.Width%2 != 0 {
		return nil, fmt.Errorf("YUYVの幅は偶数である必要があります: %d", frame.Width)
	}
	if len(frame.Data) < frame.Width*frame.Height*2 {
		return nil, fmt.Errorf("YUYVフレームのサイズが不足しています: %d バイト", len(frame.Data))
	}

	yuyv := image.NewYCbCr(image.Rect(0, 0, frame.Width, frame.Height), image.YCbCrSubsampleRatio422)
	for i := range yuyv.Cb {
		ii := i * 4
		yuyv.Y[i*2] = frame.Data[ii]
		yuyv.Y[i*2+1] = frame.Data[ii+2]
		yuyv.Cb[i] = frame.Data[ii+1]
		yuyv.Cr[i] = frame.Data[ii+3]
	}
	return yuyv, nil
}

func rgbaToImage(frame Frame) (image.Image, error) {
	if len(frame.Data) != frame.Width*frame.Height*4 {
		return nil, fmt.Errorf("RGBAフレームのサイズが一致しません: %d バイト (%dx%d)", len(frame.Data), frame.Width, frame.Height)
	}
	return &image.RGBA{
		Pix:    frame.Data,
		Stride: frame.Width * 4,
		Rect:   image.Rect(0, 0, frame.Width, frame.Height),
	}, nil
}

func isJPEG(data []byte) bool {
	return len(data) >= 2 && data[0] == 0xFF && data[1] == 0xD8
}

func clampQuality(q int) int {
	switch {
	case q < 1:
		return jpeg.DefaultQuality
	case q > 100:
		return 100
	default:
		return q
	}
}
