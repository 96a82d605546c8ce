package service

import (
	"context"
	"sync"

	"github.com/dujiao-next/storefront/internal/constants"
	"github.com/dujiao-next/storefront/internal/logger"
)

// Refresher 执行变更后的缓存回填
//
// sync 模式下变更调用在回填结束后才返回；async 模式下回填在后台进行。
// 回填失败只记录日志，缓存保留上一次成功的快照。并发回填按完成顺序覆盖。
type Refresher struct {
	mode string
	wg   sync.WaitGroup
}

// NewRefresher 创建回填器，未知模式按 sync 处理
func NewRefresher(mode string) *Refresher {
	if mode != constants.RefreshModeAsync {
		mode = constants.RefreshModeSync
	}
	return &Refresher{mode: mode}
}

// Mode 当前模式
func (r *Refresher) Mode() string {
	return r.mode
}

// After 在变更成功后回填 collection
func (r *Refresher) After(ctx context.Context, collection string, fetch func(context.Context) error) {
	run := func(ctx context.Context) {
		if err := fetch(ctx); err != nil {
			logger.Warnw("cache_refresh_failed", "collection", collection, "mode", r.mode, "error", err)
			return
		}
		logger.Debugw("cache_refreshed", "collection", collection, "mode", r.mode)
	}
	if r.mode == constants.RefreshModeAsync {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			run(context.WithoutCancel(ctx))
		}()
		return
	}
	run(ctx)
}

// Wait 等待所有后台回填结束
func (r *Refresher) Wait() {
	r.wg.Wait()
}
