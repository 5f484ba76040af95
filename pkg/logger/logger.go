// Package logger 全局 zap logger。未 Init 时是 Nop，测试和库代码可以直接打印。
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log 全局实例，Init 之后替换
var Log = zap.NewNop()

// Init 按环境选择编码: production 为 JSON + ISO8601，其他为彩色 console。
// level 为空时 production 用 info，其他用 debug。
func Init(env, level string) error {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		cfg.Level = lvl
	}
	cfg.InitialFields = map[string]interface{}{"env": env}

	built, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	Log = built
	zap.ReplaceGlobals(Log)
	return nil
}

// Named 组件 logger，直接持有，不经过下面的包装函数
func Named(component string) *zap.Logger {
	return Log.WithOptions(zap.AddCallerSkip(-1)).Named(component)
}

func Sync() {
	_ = Log.Sync()
}

func Debug(msg string, fields ...zap.Field) { Log.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field) { Log.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field) { Log.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { Log.Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { Log.Fatal(msg, fields...) }
