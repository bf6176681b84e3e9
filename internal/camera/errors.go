package camera

import "errors"

// 操作の失敗種別。呼び出し側は errors.Is で判定する
var (
	// ErrDeviceUnavailable はデバイスを開けなかったことを表す（存在しない、使用中、権限なし）
	ErrDeviceUnavailable = errors.New("カメラデバイスを利用できません")

	// ErrCaptureFailed はデバイスは開けたがフレームを読めなかった、または空だったことを表す
	ErrCaptureFailed = errors.New("フレームの取得に失敗しました")

	// ErrEncodeFailed はフレームの圧縮に失敗したことを表す
	ErrEncodeFailed = errors.New("フレームのエンコードに失敗しました")

	// ErrIOFailed は画像ファイルの書き込みに失敗したことを表す
	ErrIOFailed = errors.New("画像の保存に失敗しました")

	// ErrSessionClosed はWithDeviceの外でSessionを使ったことを表す
	ErrSessionClosed = errors.New("セッションは既に終了しています")

	// ErrStreamConsumed はStreamのフレーム列を二度読もうとしたことを表す
	ErrStreamConsumed = errors.New("ストリームは既に消費されています")
)
