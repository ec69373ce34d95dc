package cache

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// Purger 抽象出 Purge 能力，便于 Janitor 在测试中注入假实现。
type Purger interface {
	Purge(ctx context.Context) (PurgeResult, error)
}

// Janitor 以固定间隔触发 Purge，直到 ctx 结束。
type Janitor struct {
	purger   Purger
	interval time.Duration
	logger   logrus.FieldLogger
}

// NewJanitor 构造周期清理器；interval <= 0 时 Run 只执行一次。
func NewJanitor(purger Purger, interval time.Duration, logger logrus.FieldLogger) *Janitor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Janitor{
		purger:   purger,
		interval: interval,
		logger:   logger,
	}
}

// Run 立即执行一次清理，随后每个 interval 再执行一次，ctx 取消时返回 nil。
func (j *Janitor) Run(ctx context.Context) error {
	j.RunOnce(ctx)
	return j.Loop(ctx)
}

// Loop 只按 interval 周期清理，不做首次立即执行；interval <= 0 时直接返回。
func (j *Janitor) Loop(ctx context.Context) error {
	if j.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce 执行一次清理并记录结果；未配置的 Store 只输出一条 debug 日志。
func (j *Janitor) RunOnce(ctx context.Context) PurgeResult {
	result, err := j.purger.Purge(ctx)
	fields := result.Fields()
	fields["action"] = "purge"

	switch {
	case errors.Is(err, ErrNotConfigured):
		j.logger.WithFields(fields).Debug("cache_not_configured")
	case err != nil:
		j.logger.WithError(err).WithFields(fields).Warn("cache_purge_failed")
	case result.Removed > 0 || result.Failed > 0:
		j.logger.WithFields(fields).Info("cache_purge_done")
	default:
		j.logger.WithFields(fields).Debug("cache_within_budget")
	}
	return result
}
