// Package camera 1台のUSBカメラへのアクセスを調停する
//
// # 責務
// - カメラデバイスの開閉状態の管理
// - 複数のリクエストからのデバイスアクセスの直列化
// - 静止画撮影（ウォームアップ、撮影、保存）
// - フレームごとにロックを取り直すライブ配信
// - 接続確認（1枚読めるか）
// - V4L2デバイスの検出
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - HTTPハンドラなど複数のゴルーチンから同じカメラを使いたい
// - 配信中にも静止画撮影を割り込ませたい
// - カメラの抜き差しに耐える配信を行いたい
//
// # 仕様
// - Coordinator: 排他ロック（到着順）とデバイスハンドルを持つ
// - Capture: 開く → ウォームアップ → 待機 → 1枚読む → 閉じる。保存はロックの外
// - Stream: iter.Seq による遅延列。読み取りのたびにロックを取り、エンコードはロックの外
// - Test: 開く → 1枚読む → 閉じる
// - V4L2Device: github.com/blackjack/webcam による実装
// - GoCVDevice: OpenCV による実装（-tags gocv）
// - MockDevice: テスト用の実装。呼び出しの重なりを検出する
//
// # 前提要件
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
//   - gocvバックエンドを使う場合はOpenCV 4
package camera
