// Package snapshot は撮影画像のディスク上の配置を管理する
//
// 画像ディレクトリには常に上書きされる最新画像が1枚と、
// 撮影時刻で名前を付けた画像が0枚以上置かれる。
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"
)

const (
	timestampPrefix = "snapshot_"
	timestampLayout = "20060102_150405"
	imageExt        = ".jpg"
)

// Artifact は1回の撮影で書き出されたファイル
type Artifact struct {
	LatestPath      string    // 最新画像のパス
	TimestampedPath string    // 時刻付き画像のパス。保存しなかった場合は空
	CapturedAt      time.Time // 撮影時刻
}

// Store は画像ディレクトリへの書き込みを担う
type Store struct {
	dir        string
	latestName string
}

// NewStore は新しいStoreを作成する
func NewStore(dir, latestName string) *Store {
	return &Store{
		dir:        dir,
		latestName: latestName,
	}
}

// EnsureDir は画像ディレクトリを作成する
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("画像ディレクトリの作成に失敗: %w", err)
	}
	return nil
}

// Dir は画像ディレクトリを返す
func (s *Store) Dir() string {
	return s.dir
}

// LatestPath は最新画像のパスを返す
func (s *Store) LatestPath() string {
	return filepath.Join(s.dir, s.latestName)
}

// Exists は最新画像が存在するか返す
func (s *Store) Exists() bool {
	info, err := os.Stat(s.LatestPath())
	return err == nil && info.Mode().IsRegular()
}

// WriteLatest は最新画像を置き換える
// 一時ファイルに書いてからrenameするため、読み手が書きかけの画像を見ることはない
func (s *Store) WriteLatest(data []byte) (string, error) {
	if err := s.EnsureDir(); err != nil {
		return "", err
	}

	path := s.LatestPath()
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("最新画像の書き込みに失敗: %w", err)
	}
	return path, nil
}

// WriteTimestamped は撮影時刻で名前を付けた画像を書き出す
func (s *Store) WriteTimestamped(data []byte, at time.Time) (string, error) {
	if err := s.EnsureDir(); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, TimestampedName(at))
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("時刻付き画像の書き込みに失敗: %w", err)
	}
	return path, nil
}

// TimestampedName は snapshot_YYYYMMDD_HHMMSS.jpg 形式のファイル名を返す
func TimestampedName(at time.Time) string {
	return timestampPrefix + at.Format(timestampLayout) + imageExt
}

// ListTimestamped は時刻付き画像を古い順に返す
func (s *Store) ListTimestamped() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("画像ディレクトリの読み込みに失敗: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == s.latestName {
			continue
		}
		if !isTimestampedName(name) {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, name))
	}

	// 名前に時刻が入っているので辞書順がそのまま時系列になる
	sort.Strings(paths)
	return paths, nil
}

// Prune は時刻付き画像がmax枚を超えた分を古い順に削除し、削除した枚数を返す
// maxが0以下の場合は何もしない
func (s *Store) Prune(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	paths, err := s.ListTimestamped()
	if err != nil {
		return 0, err
	}
	if len(paths) <= max {
		return 0, nil
	}

	removed := 0
	for _, path := range paths[:len(paths)-max] {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("古い画像の削除に失敗 (%s): %w", path, err)
		}
		removed++
	}
	return removed, nil
}

// isTimestampedName は snapshot_YYYYMMDD_HHMMSS.jpg 形式か判定する
func isTimestampedName(name string) bool {
	if !strings.HasPrefix(name, timestampPrefix) || !strings.HasSuffix(name, imageExt) {
		return false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, timestampPrefix), imageExt)
	_, err := time.Parse(timestampLayout, stamp)
	return err == nil
}
