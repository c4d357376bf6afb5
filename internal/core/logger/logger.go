package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type FileRotate struct {
	Enable     bool
	Filename   string // 如 logs/natours.log
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Options struct {
	Level       string // debug / info / warn / error
	JSON        bool
	AddCaller   bool
	Development bool
	Rotate      FileRotate
	Out         io.Writer // 默认 stdout

	// App/Env 作为每条日志的固定字段，空则不加
	App string
	Env string
}

// New 命令行工具用：只输出到 stdout
func New(level string, json bool) (*zap.Logger, func()) {
	return Build(Options{Level: level, JSON: json, AddCaller: true, Development: !json})
}

func encoder(json bool) zapcore.Encoder {
	if json {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeCaller = zapcore.ShortCallerEncoder
		return zapcore.NewJSONEncoder(cfg)
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

// Build 按选项构建 logger，返回的函数用于退出前 Sync
func Build(opt Options) (*zap.Logger, func()) {
	lvl, err := zapcore.ParseLevel(opt.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	enc := encoder(opt.JSON)

	out := opt.Out
	if out == nil {
		out = os.Stdout
	}
	cores := []zapcore.Core{zapcore.NewCore(enc, zapcore.AddSync(out), lvl)}
	if r := opt.Rotate; r.Enable && r.Filename != "" {
		// 文件里始终写 JSON，便于采集
		cores = append(cores, zapcore.NewCore(encoder(true), zapcore.AddSync(&lumberjack.Logger{
			Filename:   r.Filename,
			MaxSize:    max(1, r.MaxSizeMB),
			MaxBackups: max(0, r.MaxBackups),
			MaxAge:     max(0, r.MaxAgeDays),
			Compress:   r.Compress,
		}), lvl))
	}
	core := zapcore.NewSamplerWithOptions(zapcore.NewTee(cores...), time.Second, 100, 100)

	var opts []zap.Option
	if opt.AddCaller {
		opts = append(opts, zap.AddCaller())
	}
	if opt.Development {
		opts = append(opts, zap.Development())
	}
	var base []zap.Field
	if opt.App != "" {
		base = append(base, zap.String("app", opt.App))
	}
	if opt.Env != "" {
		base = append(base, zap.String("env", opt.Env))
	}
	if len(base) > 0 {
		opts = append(opts, zap.Fields(base...))
	}
	l := zap.New(core, opts...)
	return l, func() { _ = l.Sync() }
}

type lineWriter struct {
	l     *zap.Logger
	level zapcore.Level
}

func (w *lineWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\r\n"), "\n") {
		if ce := w.l.Check(w.level, strings.TrimSpace(line)); ce != nil {
			ce.Write()
		}
	}
	return len(p), nil
}

// ToWriter 把 io.Writer 风格的输出（gorm logger 之类）按行接到 zap
func ToWriter(l *zap.Logger, level zapcore.Level) io.Writer {
	return &lineWriter{l: l, level: level}
}

func RedirectStdLog(l *zap.Logger, level zapcore.Level) func() {
	undo, err := zap.RedirectStdLogAt(l, level)
	if err != nil {
		return func() {}
	}
	return undo
}
