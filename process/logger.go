package process

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig 日志配置，file 为空时输出到标准错误
type LogConfig struct {
	Level      string `help:"日志级别[debug|info|warn|error]" devDefault:"debug" default:"info"`
	Encoding   string `help:"日志格式[json|console]" devDefault:"console" default:"json"`
	File       string `help:"日志文件,为空时输出到stderr" default:""`
	MaxSize    int    `help:"单个日志文件最大MB" default:"100"`
	MaxBackups int    `help:"保留的旧日志文件数量" default:"7"`
	MaxAge     int    `help:"旧日志保留天数" default:"30"`
	Compress   bool   `help:"压缩旧日志" default:"true"`
}

// NewLogger 创建 zap 日志，写文件时使用 lumberjack 切割
func NewLogger(conf LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(conf.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if conf.Encoding == "console" {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	var ws zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if conf.File != "" {
		ws = zapcore.AddSync(&lumberjack.Logger{
			Filename:   conf.File,
			MaxSize:    conf.MaxSize,
			MaxBackups: conf.MaxBackups,
			MaxAge:     conf.MaxAge,
			Compress:   conf.Compress,
			LocalTime:  true,
		})
	}
	return zap.New(zapcore.NewCore(encoder, ws, level), zap.AddCaller()), nil
}
