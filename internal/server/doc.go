// Package server は、カメラをHTTPとWebSocketで公開します。
//
// すべてのデバイス操作はcamera.Coordinatorを通して行い、
// このパッケージはリクエストの解釈とレスポンスの整形だけを担当します。
//
// 責務:
//   - HTTPサーバーの起動とグレースフルシャットダウン
//   - 静止画の撮影・配信、接続確認、状態表示
//   - MJPEG(multipart/x-mixed-replace)とWebSocketでの映像配信
//   - 埋め込みのトップページとOpenAPIドキュメントの配信
//
// 仕様:
//   - ルーティングはgin、WebSocketはgorilla/websocketを使用
//   - / と /status はデバイスに触れず、直近の状態を返す
//   - クライアントが切断するとストリームは止まり、デバイスは閉じられる
//   - シャットダウン時は配信中のストリームを先に止める
package server
