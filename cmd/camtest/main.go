// camtest はサーバーを起動する前にカメラが使えるか確認するコマンド
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"edgecam/internal/app"
	"edgecam/internal/camera"
	"edgecam/internal/config"
	"edgecam/internal/logger"
	"edgecam/internal/snapshot"
)

// newDevice はテストでモックに差し替える
var newDevice = camera.NewDevice

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run は確認を行い、終了コードを返す
func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("camtest", flag.ContinueOnError)
	fs.SetOutput(out)
	var (
		configPath = fs.String("config", "", "設定ファイルのパス (デフォルト: $EDGECAM_CONFIG)")
		list       = fs.Bool("list", false, "検出したカメラデバイスを表示")
		timeout    = fs.Duration("timeout", 30*time.Second, "確認全体の制限時間")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(out, "設定の読み込みに失敗しました: %v\n", err)
		return 1
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(out, "ロガーの作成に失敗しました: %v\n", err)
		return 1
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Fprintln(out, "=== カメラ確認 ===")
	fmt.Fprintf(out, "デバイス: %s (%s)\n", cfg.DevicePath(), cfg.Camera.Backend)

	if *list {
		listDevices(ctx, out)
	}

	dev, err := newDevice(camera.DeviceConfig{
		Backend:     cfg.Camera.Backend,
		Path:        cfg.DevicePath(),
		Index:       cfg.Camera.Index,
		ReadTimeout: cfg.Camera.ReadTimeout,
	}, log)
	if err != nil {
		fmt.Fprintf(out, "カメラデバイスの作成に失敗しました: %v\n", err)
		return 1
	}

	store := snapshot.NewStore(cfg.Storage.ImagesDir, cfg.Storage.LatestName)
	coord := camera.NewCoordinator(dev, store, app.CoordinatorOptions(cfg), log)
	defer func() {
		if err := coord.Close(context.Background()); err != nil {
			log.Warn("カメラの解放に失敗しました", "error", err)
		}
	}()

	fmt.Fprintln(out)
	fmt.Fprintln(out, "[1] 接続確認")
	if !coord.Test(ctx) {
		fmt.Fprintln(out, "失敗: カメラにアクセスできません")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "確認すること:")
		fmt.Fprintf(out, "  1. カメラが接続されているか: ls -l %s\n", cfg.DevicePath())
		fmt.Fprintln(out, "  2. videoグループに所属しているか: sudo usermod -a -G video $USER")
		fmt.Fprintln(out, "  3. 他のプロセスがカメラを使っていないか")
		return 1
	}
	fmt.Fprintln(out, "成功: カメラにアクセスできました")

	fmt.Fprintln(out)
	fmt.Fprintln(out, "[2] 撮影")
	artifact, err := coord.Capture(ctx, true)
	if err != nil {
		fmt.Fprintf(out, "失敗: 撮影できませんでした: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, "成功: 撮影できました")
	fmt.Fprintf(out, "  保存先: %s\n", artifact.TimestampedPath)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "すべての確認に成功しました")
	return 0
}

// listDevices は検出したデバイスを表示する
func listDevices(ctx context.Context, out io.Writer) {
	discovery := camera.NewLinuxDiscovery()
	devices, err := discovery.ScanDevices(ctx)
	if err != nil {
		fmt.Fprintf(out, "デバイスの検出に失敗しました: %v\n", err)
		return
	}

	fmt.Fprintf(out, "検出したデバイス: %d台\n", len(devices))
	for _, device := range devices {
		info, err := discovery.GetDeviceInfo(ctx, device)
		if err != nil {
			fmt.Fprintf(out, "  %s (情報を取得できません: %v)\n", device, err)
			continue
		}
		fmt.Fprintf(out, "  %s: %s [%s] 利用可能=%v\n", device, info.Name, info.Driver,
			discovery.IsDeviceAvailable(ctx, device))
	}
}
