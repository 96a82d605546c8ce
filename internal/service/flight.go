package service

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// doShared 合并相同 key 的并发调用
//
// 请求在脱离取消的 ctx 下执行，任一调用方取消不会中断其他调用方共享的请求；
// 调用方各自按自己的 ctx 提前返回。
func doShared(ctx context.Context, group *singleflight.Group, key string, fn func(context.Context) (interface{}, error)) (interface{}, bool, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := group.DoChan(key, func() (interface{}, error) {
		return fn(flightCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}
