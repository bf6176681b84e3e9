package camera

import (
	"context"
	"fmt"

	"edgecam/internal/snapshot"
)

// Capture は静止画を1枚撮影して保存する
//
// ロック内でデバイスを開き直し、ウォームアップ後に1枚読んで必ず閉じる。
// エンコードとファイル書き込みはロックを手放してから行う。
// persistTimestamped が true の場合は時刻付きの画像も残す。
func (c *Coordinator) Capture(ctx context.Context, persistTimestamped bool) (snapshot.Artifact, error) {
	var frame Frame
	err := c.WithDevice(ctx, func(s *Session) error {
		// ストリームが開いたままにしたハンドルは信用しない
		_ = s.Close()
		if err := s.Open(); err != nil {
			return err
		}
		defer s.Close()

		c.log.Debug("ウォームアップ中", "frames", c.opts.WarmupFrames)
		for i := 0; i < c.opts.WarmupFrames; i++ {
			_, _ = s.ReadFrame()
		}

		if err := sleepContext(ctx, c.opts.SettleDelay); err != nil {
			return err
		}

		f, err := s.ReadFrame()
		if err != nil {
			return err
		}
		frame = f
		return nil
	})
	c.observe(err)
	if err != nil {
		c.log.Error("撮影に失敗しました", "error", err)
		return snapshot.Artifact{}, err
	}

	capturedAt := c.now()
	c.log.Debug("フレームを取得しました", "width", frame.Width, "height", frame.Height, "format", frame.Format.String())

	data, err := c.encoder.Encode(frame, c.opts.CaptureQuality)
	if err != nil {
		c.log.Error("撮影画像のエンコードに失敗しました", "error", err)
		return snapshot.Artifact{}, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}

	latest, err := c.store.WriteLatest(data)
	if err != nil {
		c.log.Error("最新画像の保存に失敗しました", "error", err)
		return snapshot.Artifact{}, fmt.Errorf("%w: %w", ErrIOFailed, err)
	}

	artifact := snapshot.Artifact{
		LatestPath: latest,
		CapturedAt: capturedAt,
	}

	if persistTimestamped {
		path, err := c.store.WriteTimestamped(data, capturedAt)
		if err != nil {
			c.log.Error("時刻付き画像の保存に失敗しました", "error", err)
			return snapshot.Artifact{}, fmt.Errorf("%w: %w", ErrIOFailed, err)
		}
		artifact.TimestampedPath = path
	}

	c.log.Info("スナップショットを保存しました",
		"latest", artifact.LatestPath,
		"timestamped", artifact.TimestampedPath,
		"bytes", len(data),
	)
	return artifact, nil
}
