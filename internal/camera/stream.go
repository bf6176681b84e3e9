package camera

import (
	"context"
	"errors"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"edgecam/internal/logger"
)

// reopenBackoffAfter 回続けて読み取りに失敗したら、開き直す前にReopenDelayだけ待つ
const reopenBackoffAfter = 2

// Stream はライブ映像の1セッション
//
// Framesが返す列はフレームごとにロックを取り直すため、
// 配信中でも静止画撮影や接続確認が割り込める。
// 列は一度しか読めない。
type Stream struct {
	c   *Coordinator
	ctx context.Context
	id  string
	log *logger.Logger

	consumed atomic.Bool

	mu  sync.Mutex
	err error
}

// Stream は新しいストリームを作成する
// デバイスは最初のフレームを要求された時点で開く
func (c *Coordinator) Stream(ctx context.Context) *Stream {
	id := uuid.NewString()
	return &Stream{
		c:   c,
		ctx: ctx,
		id:  id,
		log: c.log.With("stream_id", id),
	}
}

// ID はストリームの識別子を返す
func (s *Stream) ID() string {
	return s.id
}

// Err は列が終了した理由を返す
// 利用者がbreakした場合はnil、コンテキストの終了ならそのエラー
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Frames はエンコード済みフレームの遅延列を返す
//
// 読み取りに失敗した場合はデバイスを閉じて次のフレームで開き直す。
// 続けて失敗した場合とデバイスを開けない場合はReopenDelayだけ待って再試行する。
// 利用者が読むのをやめるかコンテキストが終了すると、デバイスを一度だけ閉じて終わる。
func (s *Stream) Frames() iter.Seq[EncodedFrame] {
	return func(yield func(EncodedFrame) bool) {
		if !s.consumed.CompareAndSwap(false, true) {
			s.setErr(ErrStreamConsumed)
			return
		}

		c := s.c
		var seq uint64
		// 連続した読み取り失敗の回数。成功で0に戻る
		var failures int
		s.log.Info("ストリームを開始しました")

		defer func() {
			// 呼び出し元がキャンセル済みでも解放はやり遂げる
			err := c.WithDevice(context.WithoutCancel(s.ctx), func(sess *Session) error {
				return sess.Close()
			})
			if err != nil {
				s.log.Error("ストリーム終了時の解放に失敗しました", "error", err)
			}
			s.log.Info("ストリームを終了しました", "frames", seq)
		}()

		for {
			if err := s.ctx.Err(); err != nil {
				s.setErr(err)
				return
			}

			frame, err := s.readFrame(seq == 0)
			switch {
			case err == nil:
			case errors.Is(err, ErrDeviceUnavailable):
				c.observe(err)
				s.log.Warn("カメラを開けません。再試行します", "error", err, "delay", c.opts.ReopenDelay.String())
				if err := sleepContext(s.ctx, c.opts.ReopenDelay); err != nil {
					s.setErr(err)
					return
				}
				continue
			case errors.Is(err, ErrCaptureFailed):
				c.observe(err)
				failures++
				s.log.Warn("フレームを読めませんでした。開き直します", "error", err, "failures", failures)
				// 1回目はすぐに開き直し、続けて失敗した場合は間を空ける
				if failures >= reopenBackoffAfter {
					if err := sleepContext(s.ctx, c.opts.ReopenDelay); err != nil {
						s.setErr(err)
						return
					}
				}
				continue
			default:
				// ロック待ち中のキャンセル
				s.setErr(err)
				return
			}

			failures = 0

			data, err := c.encoder.Encode(frame, c.opts.StreamQuality)
			if err != nil {
				s.log.Warn("フレームのエンコードに失敗しました", "error", err)
				continue
			}

			seq++
			if seq%100 == 0 {
				s.log.Debug("配信中", "frames", seq)
			}

			if !yield(EncodedFrame{Seq: seq, Timestamp: c.now(), JPEG: data}) {
				return
			}
		}
	}
}

// readFrame はロックを取ってフレームを1枚読む
// warmup が true でデバイスを開いた場合は読み捨てを行う
func (s *Stream) readFrame(warmup bool) (Frame, error) {
	c := s.c
	var frame Frame

	err := c.WithDevice(s.ctx, func(sess *Session) error {
		if !sess.IsOpen() {
			if err := sess.Open(); err != nil {
				return err
			}
			if warmup {
				for i := 0; i < c.opts.StreamWarmupFrames; i++ {
					_, _ = sess.ReadFrame()
				}
			}
		}

		f, err := sess.ReadFrame()
		if err != nil {
			_ = sess.Close()
			return err
		}
		frame = f
		return nil
	})
	if err == nil && c.Status() != StatusOnline {
		c.observe(nil)
	}
	return frame, err
}
