package camera

import "context"

// Test はデバイスを開いて1枚読めるか確認する
// 何も保存せず、戻る時にはデバイスを閉じている
func (c *Coordinator) Test(ctx context.Context) bool {
	c.log.Info("カメラの接続を確認しています")

	err := c.WithDevice(ctx, func(s *Session) error {
		_ = s.Close()
		if err := s.Open(); err != nil {
			return err
		}
		defer s.Close()

		_, err := s.ReadFrame()
		return err
	})
	c.observe(err)

	if err != nil {
		c.log.Warn("カメラの接続確認に失敗しました", "error", err)
		return false
	}
	c.log.Info("カメラの接続確認に成功しました")
	return true
}
