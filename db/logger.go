package db

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// getLogInterface gorm 日志输出到 zap，level 为空时不打印
func getLogInterface(zapLog *zap.Logger, level string, slow time.Duration) logger.Interface {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return logger.New(zap.NewStdLog(zapLog.Named("gorm")), logger.Config{
		SlowThreshold:             slow,
		LogLevel:                  parseLogLevel(level),
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		return logger.Error
	case "warn", "warning":
		return logger.Warn
	case "info", "debug":
		return logger.Info
	}
	return logger.Silent
}
