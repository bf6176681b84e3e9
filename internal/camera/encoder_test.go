package camera

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJPEGEncoder_Formats(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			src.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 32), B: 0x40, A: 0xFF})
		}
	}
	var mjpeg bytes.Buffer
	require.NoError(t, jpeg.Encode(&mjpeg, src, nil))

	testCases := []struct {
		name  string
		frame Frame
	}{
		{"RGBA", Frame{Width: 16, Height: 8, Format: FormatRGBA, Data: src.Pix}},
		{"YUYV", Frame{Width: 16, Height: 8, Format: FormatYUYV, Data: bytes.Repeat([]byte{0x80, 0x60, 0x80, 0xA0}, 16*8/2)}},
		{"MJPEG", Frame{Width: 16, Height: 8, Format: FormatMJPEG, Data: mjpeg.Bytes()}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := JPEGEncoder{}.Encode(tc.frame, 85)
			require.NoError(t, err)

			img, err := jpeg.Decode(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, 16, img.Bounds().Dx())
			assert.Equal(t, 8, img.Bounds().Dy())
		})
	}
}

func TestJPEGEncoder_QualityAffectsSize(t *testing.T) {
	frame := Frame{Width: 64, Height: 64, Format: FormatRGBA, Data: make([]byte, 64*64*4)}
	// 画素にばらつきを与える
	for i := range frame.Data {
		frame.Data[i] = byte(i * 31)
		if i%4 == 3 {
			frame.Data[i] = 0xFF
		}
	}

	low, err := JPEGEncoder{}.Encode(frame, 10)
	require.NoError(t, err)
	high, err := JPEGEncoder{}.Encode(frame, 95)
	require.NoError(t, err)

	assert.Less(t, len(low), len(high))
}

func TestJPEGEncoder_Errors(t *testing.T) {
	testCases := []struct {
		name  string
		frame Frame
	}{
		{"空のフレーム", Frame{Width: 4, Height: 4, Format: FormatRGBA}},
		{"RGBAのサイズ不一致", Frame{Width: 4, Height: 4, Format: FormatRGBA, Data: make([]byte, 10)}},
		{"YUYVのサイズ不足", Frame{Width: 4, Height: 4, Format: FormatYUYV, Data: make([]byte, 10)}},
		{"YUYVの奇数幅", Frame{Width: 3, Height: 2, Format: FormatYUYV, Data: make([]byte, 12)}},
		{"JPEGでないMJPEG", Frame{Width: 4, Height: 4, Format: FormatMJPEG, Data: []byte("not a jpeg")}},
		{"未知の形式", Frame{Width: 1, Height: 1, Format: PixelFormat(42), Data: []byte{1}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := JPEGEncoder{}.Encode(tc.frame, 85)
			assert.Error(t, err)
		})
	}
}

// ハフマンテーブルを持たないMJPEGはそのまま通す
func TestJPEGEncoder_MJPEGPassthrough(t *testing.T) {
	data := []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x00}
	out, err := JPEGEncoder{}.Encode(Frame{Width: 4, Height: 4, Format: FormatMJPEG, Data: data}, 85)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestPixelFormat_String(t *testing.T) {
	assert.Equal(t, "MJPEG", FormatMJPEG.String())
	assert.Equal(t, "YUYV", FormatYUYV.String())
	assert.Equal(t, "RGBA", FormatRGBA.String())
	assert.Equal(t, "unknown(9)", PixelFormat(9).String())
}
