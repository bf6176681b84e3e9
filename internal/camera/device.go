package camera

import (
	"fmt"

	"edgecam/internal/logger"
)

// Device は物理カメラの抽象化
// 並行制御は持たず、Coordinator のロック内からのみ呼ばれる
type Device interface {
	// Open はデバイスを指定モードで開く。解像度等の設定失敗は致命的ではない
	Open(mode Mode) error

	// ReadFrame はフレームを1枚読む
	ReadFrame() (Frame, error)

	// Close はデバイスを解放する
	Close() error
}

// deviceHandle はデバイスの開閉状態を保持する
type deviceHandle struct {
	dev    Device
	mode   Mode
	isOpen bool
	log    *logger.Logger
}

func (h *deviceHandle) open() error {
	if h.isOpen {
		return nil
	}
	if err := h.dev.Open(h.mode); err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	h.isOpen = true
	h.log.Debug("カメラを開きました", "width", h.mode.Width, "height", h.mode.Height, "fps", h.mode.FPS)
	return nil
}

func (h *deviceHandle) read() (Frame, error) {
	if !h.isOpen {
		return Frame{}, fmt.Errorf("%w: デバイスが開かれていません", ErrCaptureFailed)
	}
	frame, err := h.dev.ReadFrame()
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrCaptureFailed, err)
	}
	if !frame.Valid() {
		return Frame{}, fmt.Errorf("%w: 空のフレーム", ErrCaptureFailed)
	}
	return frame, nil
}

// close はデバイスを解放する。解放時のエラーはログに残すだけで返さない
func (h *deviceHandle) close() {
	if !h.isOpen {
		return
	}
	h.isOpen = false
	if err := h.dev.Close(); err != nil {
		h.log.Warn("カメラの解放でエラーが発生しました", "error", err)
		return
	}
	h.log.Debug("カメラを解放しました")
}

// Session はWithDeviceの中でだけ有効なデバイス操作の窓口
type Session struct {
	h      *deviceHandle
	closed bool
}

// Open はデバイスを開く。既に開いていれば何もしない
func (s *Session) Open() error {
	if s.closed {
		return ErrSessionClosed
	}
	return s.h.open()
}

// ReadFrame はフレームを1枚読む
func (s *Session) ReadFrame() (Frame, error) {
	if s.closed {
		return Frame{}, ErrSessionClosed
	}
	return s.h.read()
}

// Close はデバイスを解放する。開いていなければ何もしない
func (s *Session) Close() error {
	if s.closed {
		return ErrSessionClosed
	}
	s.h.close()
	return nil
}

// IsOpen はデバイスが開いているか返す
func (s *Session) IsOpen() bool {
	return !s.closed && s.h.isOpen
}
