// Package jobs 基于 cron 的后台周期任务
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Func func(ctx context.Context) error

type Scheduler struct {
	c       *cron.Cron
	l       *zap.Logger
	timeout time.Duration
}

func New(l *zap.Logger, timeout time.Duration) *Scheduler {
	cl := cronLogger{l.Sugar()}
	return &Scheduler{
		c:       cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		l:       l,
		timeout: timeout,
	}
}

// Add 注册任务；spec 支持标准 5 段表达式和 @every
func (s *Scheduler) Add(name, spec string, fn Func) error {
	_, err := s.c.AddFunc(spec, func() { s.run(name, fn) })
	return err
}

func (s *Scheduler) run(name string, fn Func) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	start := time.Now()
	if err := fn(ctx); err != nil {
		s.l.Warn("job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.l.Info("job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

func (s *Scheduler) Start() { s.c.Start() }

// Stop 停止调度并等待运行中的任务结束
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.c.Stop().Done():
	case <-ctx.Done():
	}
}

type cronLogger struct{ s *zap.SugaredLogger }

func (c cronLogger) Info(msg string, kv ...interface{}) { c.s.Debugw(msg, kv...) }
func (c cronLogger) Error(err error, msg string, kv ...interface{}) {
	c.s.Errorw(msg, append(kv, "error", err)...)
}
