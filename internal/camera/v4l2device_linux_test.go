//go:build linux

package camera

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestV4L2Device_TimeoutSeconds(t *testing.T) {
	testCases := []struct {
		name    string
		timeout time.Duration
		want    uint32
	}{
		{"秒の倍数", 5 * time.Second, 5},
		{"1秒未満は1秒", 200 * time.Millisecond, 1},
		{"無制限", 0, uint32((24 * time.Hour).Seconds())},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dev := NewV4L2Device("/dev/video0", tc.timeout, nil)
			assert.Equal(t, tc.want, dev.timeoutSeconds())
		})
	}
}
