package github

import (
	"context"
	"iter"
)

// pageFunc 读取第 page 页 (从 1 开始)
type pageFunc[T any] func(ctx context.Context, page int) ([]T, error)

// pages 惰性翻页: 每次 range 都从第 1 页重新开始。
// 遇到空页、出错或读满 maxPages 页 (0 表示不限) 时结束，出错时最后一次 yield 为 (nil, err)。
// 调用方提前 break 就不会再请求后面的页。
func pages[T any](ctx context.Context, fetch pageFunc[T], maxPages int) iter.Seq2[[]T, error] {
	return func(yield func([]T, error) bool) {
		for page := 1; maxPages <= 0 || page <= maxPages; page++ {
			items, err := fetch(ctx, page)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(items) == 0 {
				return
			}
			if !yield(items, nil) {
				return
			}
		}
	}
}
