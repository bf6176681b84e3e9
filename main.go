package main

import (
	"context"
	"fmt"
	"os"

	"edgecam/internal/app"
	"edgecam/internal/config"
	"edgecam/internal/logger"
)

func main() {
	// 設定を読み込む（EDGECAM_CONFIG と環境変数）
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "設定の読み込みに失敗しました: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ロガーの作成に失敗しました: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatal("初期化に失敗しました", "error", err)
	}

	if err := a.Run(context.Background()); err != nil {
		log.Fatal("サーバーの実行に失敗しました", "error", err)
	}
}
