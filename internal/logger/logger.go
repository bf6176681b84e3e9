// Package logger はzapを薄くラップした構造化ログを提供する
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger はzap.Loggerをキー/値形式で扱えるようにラップする
type Logger struct {
	*zap.Logger
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json または console
	Output string `yaml:"output"` // stdout またはファイルパス
}

// New は設定に従ってLoggerを作成する
// 不正なレベルはinfoとして扱う
func New(cfg LogConfig) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format != "json",
		Encoding:         encoding(cfg.Format),
		EncoderConfig:    encoderConfig(cfg.Format),
		OutputPaths:      outputPaths(cfg.Output),
		ErrorOutputPaths: outputPaths(cfg.Output),
	}

	zapLogger, err := config.Build(
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("ロガーの作成に失敗: %w", err)
	}

	return &Logger{zapLogger}, nil
}

// encoding はFormatからzapのエンコーディング名を決める
func encoding(format string) string {
	if format == "json" {
		return "json"
	}
	return "console"
}

// encoderConfig はFormatに応じたエンコーダ設定を返す
// 時刻はISO8601、呼び出し元は短い形式にそろえる
func encoderConfig(format string) zapcore.EncoderConfig {
	ec := zap.NewDevelopmentEncoderConfig()
	if format == "json" {
		ec = zap.NewProductionEncoderConfig()
	}
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeLevel = zapcore.LowercaseLevelEncoder
	ec.EncodeCaller = zapcore.ShortCallerEncoder
	return ec
}

// outputPaths は出力先を決める。空ならstdout
func outputPaths(output string) []string {
	if output == "" {
		return []string{"stdout"}
	}
	return []string{output}
}

// NewNopLogger はテスト用に何も出力しないLoggerを返す
func NewNopLogger() *Logger {
	return &Logger{zap.NewNop()}
}

// Sync はバッファされたログを書き出す
func (l *Logger) Sync() {
	_ = l.Logger.Sync()
}

// With はキー/値を付与した子Loggerを返す
func (l *Logger) With(fields ...interface{}) *Logger {
	return &Logger{l.Logger.With(convertFields(fields...)...)}
}

// Named はコンポーネント用の子Loggerを返す
// ロガー名とcomponentフィールドの両方に名前が入る
func (l *Logger) Named(component string) *Logger {
	return &Logger{l.Logger.Named(component).With(zap.String("component", component))}
}

// Info はinfoレベルのログを出力する
func (l *Logger) Info(msg string, fields ...interface{}) {
	l.Logger.Info(msg, convertFields(fields...)...)
}

// Warn はwarnレベルのログを出力する
func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.Logger.Warn(msg, convertFields(fields...)...)
}

// Error はerrorレベルのログを出力する
func (l *Logger) Error(msg string, fields ...interface{}) {
	l.Logger.Error(msg, convertFields(fields...)...)
}

// Debug はdebugレベルのログを出力する
func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.Logger.Debug(msg, convertFields(fields...)...)
}

// Fatal はfatalレベルのログを出力して終了する
func (l *Logger) Fatal(msg string, fields ...interface{}) {
	l.Logger.Fatal(msg, convertFields(fields...)...)
}

// convertFields はキー/値の並びをzap.Fieldに変換する
// errorはzap.Errorとして扱い、キーが文字列でない組は捨てる
func convertFields(fields ...interface{}) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields)/2)
	for i := 0; i < len(fields)-1; i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		if err, isErr := fields[i+1].(error); isErr {
			zapFields = append(zapFields, zap.NamedError(key, err))
			continue
		}
		zapFields = append(zapFields, zap.Any(key, fields[i+1]))
	}
	return zapFields
}
