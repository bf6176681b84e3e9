package camera

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelfTest_Idempotent(t *testing.T) {
	dev := NewMockDevice(8, 8)
	c, store := newTestCoordinator(t, dev, testOptions())

	for i := 0; i < 5; i++ {
		assert.True(t, c.Test(context.Background()))
		assert.False(t, dev.IsOpen())
	}

	assert.Equal(t, 5, dev.OpenCount())
	assert.Equal(t, 5, dev.CloseCount())
	assert.Equal(t, 5, dev.ReadCount())
	// 何も保存しない
	assert.False(t, store.Exists())
}

func TestSelfTest_Failures(t *testing.T) {
	testCases := []struct {
		name  string
		setup func(*MockDevice)
	}{
		{"デバイスを開けない", func(d *MockDevice) { d.FailOpen(errors.New("permission denied")) }},
		{"フレームを読めない", func(d *MockDevice) { d.FailAllReads(true) }},
		{"空のフレーム", func(d *MockDevice) {}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dev := NewMockDevice(8, 8)
			if tc.name == "空のフレーム" {
				dev = NewMockDevice(0, 0)
			}
			tc.setup(dev)
			c, _ := newTestCoordinator(t, dev, testOptions())

			assert.False(t, c.Test(context.Background()))
			assert.False(t, dev.IsOpen())
			assert.Equal(t, dev.OpenCount(), dev.CloseCount())
			assert.Equal(t, StatusOffline, c.Status())
		})
	}
}
