//go:build !gocv

package camera

import (
	"errors"

	"edgecam/internal/logger"
)

// GoCVAvailable はOpenCVバックエンドが組み込まれているか
const GoCVAvailable = false

// NewGoCVDevice は `-tags gocv` なしでビルドした場合は常にエラーを返す
func NewGoCVDevice(_ int, _ *logger.Logger) (Device, error) {
	return nil, errors.New("gocvバックエンドは組み込まれていません（-tags gocv でビルドしてください）")
}
