//go:build !linux

package camera

import (
	"errors"
	"time"

	"edgecam/internal/logger"
)

var errV4L2Unsupported = errors.New("V4L2はLinuxでのみ利用できます")

// V4L2Device はLinux以外では常に開けない
type V4L2Device struct{}

// NewV4L2Device は新しいV4L2Deviceを作成する
func NewV4L2Device(_ string, _ time.Duration, _ *logger.Logger) *V4L2Device {
	return &V4L2Device{}
}

// Open は常に失敗する
func (d *V4L2Device) Open(Mode) error { return errV4L2Unsupported }

// ReadFrame は常に失敗する
func (d *V4L2Device) ReadFrame() (Frame, error) { return Frame{}, errV4L2Unsupported }

// Close は何もしない
func (d *V4L2Device) Close() error { return nil }
