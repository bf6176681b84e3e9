package server

import "time"

// ErrorResponse はエラー時のレスポンス
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// CaptureResponse は撮影要求のレスポンス
type CaptureResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message,omitempty"`
	Error     string     `json:"error,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Filepath  string     `json:"filepath,omitempty"`
}

// TestResponse は接続確認のレスポンス
type TestResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusResponse はサーバーとカメラの状態
type StatusResponse struct {
	Status        string         `json:"status"`
	Timestamp     time.Time      `json:"timestamp"`
	CameraIndex   int            `json:"camera_index"`
	Device        string         `json:"device"`
	DeviceName    string         `json:"device_name,omitempty"`
	ImagesDir     string         `json:"images_dir"`
	CameraOnline  bool           `json:"camera_online"`
	CameraStatus  string         `json:"camera_status"`
	LastChecked   *time.Time     `json:"last_checked,omitempty"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Timelapse     *TimelapseInfo `json:"timelapse,omitempty"`
}

// TimelapseInfo は定期撮影の状態
type TimelapseInfo struct {
	Enabled         bool       `json:"enabled"`
	Running         bool       `json:"running"`
	IntervalSeconds float64    `json:"interval_seconds"`
	MaxStored       int        `json:"max_stored"`
	Captures        int        `json:"captures"`
	Failures        int        `json:"failures"`
	LastCapture     *time.Time `json:"last_capture,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
	LastArtifact    string     `json:"last_artifact,omitempty"`
}

// indexData はトップページのテンプレートに渡す値
type indexData struct {
	Online    bool
	Status    string
	Timestamp string
	CacheBust int64
	Host      string
	Port      int
}
