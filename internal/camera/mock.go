package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MockDevice はテスト用のDevice実装
//
// 開閉・読み取りの回数を記録し、呼び出しが重なった場合は違反として数える。
// 読み取り番号（1始まり、生涯通算）を指定して失敗させられる。
type MockDevice struct {
	mu sync.Mutex

	width  int
	height int

	isOpen     bool
	openCount  int
	readCount  int
	closeCount int
	lastMode   Mode

	openErr   error
	failReads map[int]bool
	failAll   bool
	readDelay time.Duration

	inFlight   atomic.Int32
	violations atomic.Int32
}

// NewMockDevice は指定サイズのRGBAフレームを返すMockDeviceを作成する
func NewMockDevice(width, height int) *MockDevice {
	return &MockDevice{
		width:     width,
		height:    height,
		failReads: make(map[int]bool),
	}
}

// Open はモックデバイスを開く
func (m *MockDevice) Open(mode Mode) error {
	defer m.enter()()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isOpen {
		// Coordinatorは開いたデバイスを開き直さない
		m.violations.Add(1)
	}
	if m.openErr != nil {
		return m.openErr
	}
	m.isOpen = true
	m.openCount++
	m.lastMode = mode
	return nil
}

// ReadFrame はフレームを1枚返す
// 先頭画素のR値に読み取り番号の下位8ビットが入る
func (m *MockDevice) ReadFrame() (Frame, error) {
	defer m.enter()()

	m.mu.Lock()
	delay := m.readDelay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isOpen {
		m.violations.Add(1)
		return Frame{}, errors.New("モックデバイスが開かれていません")
	}

	m.readCount++
	n := m.readCount
	if m.failAll || m.failReads[n] {
		return Frame{}, fmt.Errorf("モックの読み取り失敗 (%d回目)", n)
	}

	data := make([]byte, m.width*m.height*4)
	for i := 0; i < len(data); i += 4 {
		data[i+1] = 0x80
		data[i+3] = 0xFF
	}
	if len(data) > 0 {
		data[0] = byte(n)
	}

	return Frame{
		Width:  m.width,
		Height: m.height,
		Format: FormatRGBA,
		Data:   data,
	}, nil
}

// Close はモックデバイスを閉じる
func (m *MockDevice) Close() error {
	defer m.enter()()

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isOpen {
		m.violations.Add(1)
		return nil
	}
	m.isOpen = false
	m.closeCount++
	return nil
}

// enter は呼び出しの重なりを検出する
func (m *MockDevice) enter() func() {
	if m.inFlight.Add(1) > 1 {
		m.violations.Add(1)
	}
	return func() {
		m.inFlight.Add(-1)
	}
}

// FailOpen は以後のOpenをerrで失敗させる。nilで解除する
func (m *MockDevice) FailOpen(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErr = err
}

// FailReadAt は指定した読み取り番号の読み取りを失敗させる
func (m *MockDevice) FailReadAt(n ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range n {
		m.failReads[i] = true
	}
}

// FailAllReads は以後すべての読み取りを失敗させる
func (m *MockDevice) FailAllReads(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = fail
}

// SetReadDelay は1回の読み取りにかかる時間を設定する
func (m *MockDevice) SetReadDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readDelay = d
}

// IsOpen はデバイスが開いているか返す
func (m *MockDevice) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isOpen
}

// OpenCount は成功したOpenの回数を返す
func (m *MockDevice) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openCount
}

// ReadCount はReadFrameの回数を返す
func (m *MockDevice) ReadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readCount
}

// CloseCount はCloseの回数を返す
func (m *MockDevice) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCount
}

// LastMode は最後に要求されたモードを返す
func (m *MockDevice) LastMode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastMode
}

// Violations は排他制御違反の回数を返す
func (m *MockDevice) Violations() int {
	return int(m.violations.Load())
}

// MockDiscovery はテスト用のモックDiscovery実装
type MockDiscovery struct {
	mu          sync.RWMutex
	devices     []string
	deviceInfos map[string]*DeviceInfo
}

// NewMockDiscovery は新しいMockDiscoveryを作成する
func NewMockDiscovery(devices []string) *MockDiscovery {
	m := &MockDiscovery{
		deviceInfos: make(map[string]*DeviceInfo),
	}
	for _, device := range devices {
		m.AddDevice(device)
	}
	return m
}

// ScanDevices はモックデバイス一覧を返す
func (m *MockDiscovery) ScanDevices(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	devices := make([]string, len(m.devices))
	copy(devices, m.devices)
	return devices, nil
}

// IsDeviceAvailable はモックデバイスが利用可能かチェックする
func (m *MockDiscovery) IsDeviceAvailable(_ context.Context, device string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.deviceInfos[device]
	return exists
}

// GetDeviceInfo はモックデバイス情報を取得する
func (m *MockDiscovery) GetDeviceInfo(_ context.Context, device string) (*DeviceInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, exists := m.deviceInfos[device]
	if !exists {
		return nil, fmt.Errorf("デバイスが見つかりません: %s", device)
	}

	// コピーを返す
	result := *info
	return &result, nil
}

// AddDevice はテスト用にデバイスを追加する
func (m *MockDiscovery) AddDevice(device string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.deviceInfos[device]; exists {
		return
	}

	m.devices = append(m.devices, device)
	m.deviceInfos[device] = &DeviceInfo{
		Device: device,
		Index:  extractDeviceNumber(device),
		Name:   fmt.Sprintf("テストカメラ %d", len(m.devices)),
		Driver: "mock",
	}
}

// RemoveDevice はテスト用にデバイスを削除する
func (m *MockDiscovery) RemoveDevice(device string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, d := range m.devices {
		if d == device {
			m.devices = append(m.devices[:i], m.devices[i+1:]...)
			break
		}
	}
	delete(m.deviceInfos, device)
}
