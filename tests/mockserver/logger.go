package main

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/omalloc/limitio/conf"
)

// newRotateCore builds a zap core over a lumberjack rotating file.
func newRotateCore(opt *conf.Logger, level zap.AtomicLevel) zapcore.Core {
	_ = os.MkdirAll(filepath.Dir(opt.Path), 0o755)

	f := &lumberjack.Logger{
		Filename:   opt.Path,
		MaxSize:    defaultInt(opt.MaxSize, 100),
		MaxBackups: defaultInt(opt.MaxBackups, 3),
		MaxAge:     defaultInt(opt.MaxAge, 7),
		LocalTime:  true,
		Compress:   opt.Compress,
	}

	cfg := zap.NewProductionConfig().EncoderConfig

	return zapcore.NewCore(
		zapcore.NewJSONEncoder(cfg),
		zapcore.AddSync(f),
		level,
	)
}

func defaultInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
