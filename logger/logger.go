package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log 在 Init 之前是一个空日志器，测试中不需要初始化
var Log = zap.NewNop().Sugar()

// Init 按级别初始化生产环境日志器，无法识别的级别按 info 处理
func Init(level string) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		panic("failed to initialize zap logger: " + err.Error())
	}
	Log = logger.Sugar()
}

// Sync flushes buffered entries.
func Sync() {
	_ = Log.Sync()
}
