package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// LinuxDiscovery はLinux環境でのカメラデバイス検出を実装する
// デバイスを開かずにsysfsとデバイスノードだけを見るので、
// 配信中のカメラに対して呼んでもロックと衝突しない
type LinuxDiscovery struct {
	devGlob  string
	sysfsDir string
}

// NewLinuxDiscovery は新しいLinuxDiscoveryを作成する
func NewLinuxDiscovery() *LinuxDiscovery {
	return &LinuxDiscovery{
		devGlob:  "/dev/video*",
		sysfsDir: "/sys/class/video4linux",
	}
}

// ScanDevices はシステム内の利用可能なカメラデバイスをスキャンする
func (d *LinuxDiscovery) ScanDevices(ctx context.Context) ([]string, error) {
	var devices []string

	matches, err := filepath.Glob(d.devGlob)
	if err != nil {
		return nil, fmt.Errorf("デバイスのスキャンに失敗: %w", err)
	}

	// デバイス番号でソート
	sort.Slice(matches, func(i, j int) bool {
		return extractDeviceNumber(matches[i]) < extractDeviceNumber(matches[j])
	})

	for _, match := range matches {
		// コンテキストのキャンセルをチェック
		select {
		case <-ctx.Done():
			return devices, ctx.Err()
		default:
		}

		if d.IsDeviceAvailable(ctx, match) && d.isCaptureNode(match) {
			devices = append(devices, match)
		}
	}

	return devices, nil
}

// IsDeviceAvailable は指定されたデバイスが存在し、読み書きできるかチェックする
func (d *LinuxDiscovery) IsDeviceAvailable(_ context.Context, device string) bool {
	device = resolveDevice(device)
	if !isV4L2Path(device) {
		return false
	}

	info, err := os.Stat(device)
	if err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return false
	}

	// videoグループに入っていないと開けない
	return unix.Access(device, unix.R_OK|unix.W_OK) == nil
}

// GetDeviceInfo はデバイスの詳細情報を取得する
func (d *LinuxDiscovery) GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error) {
	if !d.IsDeviceAvailable(ctx, device) {
		return nil, fmt.Errorf("デバイスが利用できません: %s", device)
	}

	node := resolveDevice(device)
	info := &DeviceInfo{
		Device: device,
		Index:  extractDeviceNumber(node),
		Name:   d.deviceName(node),
		Driver: d.driverName(node),
	}

	return info, nil
}

// deviceName はsysfsからカメラ名を読む。取れない場合は番号から生成する
func (d *LinuxDiscovery) deviceName(device string) string {
	data, err := os.ReadFile(filepath.Join(d.sysfsDir, filepath.Base(device), "name"))
	if err == nil {
		if name := strings.TrimSpace(string(data)); name != "" {
			return name
		}
	}

	// フォールバック: デバイス番号から生成
	return fmt.Sprintf("カメラ %d", extractDeviceNumber(device))
}

// driverName はsysfsのドライバーへのリンク名を返す
func (d *LinuxDiscovery) driverName(device string) string {
	target, err := os.Readlink(filepath.Join(d.sysfsDir, filepath.Base(device), "device", "driver"))
	if err != nil {
		return ""
	}
	return filepath.Base(target)
}

// isCaptureNode は映像取得用のノードか判定する
// UVCカメラは1台につきメタデータ用のノードも作る。そちらはindexが0以外になる
func (d *LinuxDiscovery) isCaptureNode(device string) bool {
	data, err := os.ReadFile(filepath.Join(d.sysfsDir, filepath.Base(device), "index"))
	if err != nil {
		// sysfsがない環境では判定できないので含める
		return true
	}
	return strings.TrimSpace(string(data)) == "0"
}

var (
	v4l2PathPattern     = regexp.MustCompile(`^/dev/video\d+$`)
	deviceNumberPattern = regexp.MustCompile(`video(\d+)`)
)

// resolveDevice は /dev/v4l/by-id/ 等のリンクを実体のノードに解決する
func resolveDevice(device string) string {
	if resolved, err := filepath.EvalSymlinks(device); err == nil {
		return resolved
	}
	return device
}

// isV4L2Path は /dev/videoN 形式か判定する
func isV4L2Path(device string) bool {
	return v4l2PathPattern.MatchString(device)
}

// extractDeviceNumber はデバイスパスから番号を抽出する
func extractDeviceNumber(device string) int {
	matches := deviceNumberPattern.FindStringSubmatch(device)
	if len(matches) < 2 {
		return 0
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}

	return num
}
