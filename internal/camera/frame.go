package camera

import (
	"strconv"
	"time"
)

// PixelFormat はFrameの画素形式
type PixelFormat int

const (
	FormatMJPEG PixelFormat = iota + 1 // デバイスが圧縮済みのJPEGを返す
	FormatYUYV                         // YUV 4:2:2 パック形式
	FormatRGBA                         // 1画素4バイト
)

func (f PixelFormat) String() string {
	switch f {
	case FormatMJPEG:
		return "MJPEG"
	case FormatYUYV:
		return "YUYV"
	case FormatRGBA:
		return "RGBA"
	default:
		return "unknown(" + strconv.Itoa(int(f)) + ")"
	}
}

// Frame はデバイスから読んだ1枚分の生データ
// ロック内で読み、エンコードや保存はロックの外で行う
type Frame struct {
	Width  int
	Height int
	Format PixelFormat
	Data   []byte
}

// Valid はフレームにデータと正の寸法があるか返す
func (f Frame) Valid() bool {
	return len(f.Data) > 0 && f.Width > 0 && f.Height > 0
}

// EncodedFrame はストリームで配信するJPEGフレーム
type EncodedFrame struct {
	Seq       uint64    // ストリーム内の通し番号（1始まり）
	Timestamp time.Time // 取得時刻
	JPEG      []byte
}

const (
	multipartBoundary = "frame"

	// MultipartContentType はChunkを連結したレスポンスのContent-Type
	MultipartContentType = "multipart/x-mixed-replace; boundary=" + multipartBoundary
)

// Chunk は multipart/x-mixed-replace の1パートを返す
func (f EncodedFrame) Chunk() []byte {
	const header = "--" + multipartBoundary + "\r\nContent-Type: image/jpeg\r\n\r\n"

	buf := make([]byte, 0, len(header)+len(f.JPEG)+2)
	buf = append(buf, header...)
	buf = append(buf, f.JPEG...)
	buf = append(buf, "\r\n"...)
	return buf
}
