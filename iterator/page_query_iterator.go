package iterator

import (
	"context"
	"time"

	"github.com/opdss/tabexport/contracts/iterator"
)

var _ iterator.Iterator[any] = (*PageQueryIterator[any])(nil)

type PageQueryIteratorFn[T any] func(ctx context.Context, offset, limit int) ([]T, error)

type PageQueryIteratorOption[T any] func(it *PageQueryIterator[T])

// WithPageQueryIteratorLimit 数据批量查询数量
func WithPageQueryIteratorLimit[T any](n int) PageQueryIteratorOption[T] {
	return func(it *PageQueryIterator[T]) {
		if n > 0 {
			it.limit = n
		}
	}
}

// WithPageQueryIteratorQueryTimeout 单次查询超时控制
func WithPageQueryIteratorQueryTimeout[T any](t time.Duration) PageQueryIteratorOption[T] {
	return func(it *PageQueryIterator[T]) {
		if t > 0 {
			it.queryTimeout = t
		}
	}
}

// PageQueryIterator 按 offset/limit 分批查询的迭代器
type PageQueryIterator[T any] struct {
	ctx          context.Context
	offset       int
	limit        int
	hasMore      bool
	err          error
	queryTimeout time.Duration
	sliceIter    *SliceIterator[T]
	queryFn      PageQueryIteratorFn[T]
}

// NewPageQueryIterator 分页获取数据，最后一批数量小于 limit 时结束
func NewPageQueryIterator[T any](ctx context.Context, queryFn PageQueryIteratorFn[T], opts ...PageQueryIteratorOption[T]) *PageQueryIterator[T] {
	it := &PageQueryIterator[T]{
		ctx:          ctx,
		limit:        2000,
		hasMore:      true,
		queryTimeout: time.Second * 30,
		sliceIter:    NewSliceIterator(make([]T, 0)),
		queryFn:      queryFn,
	}
	for i := range opts {
		opts[i](it)
	}
	return it
}

func (it *PageQueryIterator[T]) Next() bool {
	if it.sliceIter.Next() {
		return true
	}
	if !it.hasMore {
		return false
	}
	ctx, cancel := context.WithTimeout(it.ctx, it.queryTimeout)
	defer cancel()
	list, err := it.queryFn(ctx, it.offset, it.limit)
	if err != nil {
		it.err = err
		it.hasMore = false
		return false
	}
	if len(list) < it.limit {
		it.hasMore = false
	}
	if len(list) == 0 {
		return false
	}
	it.offset += len(list)
	it.sliceIter = NewSliceIterator(list)
	return it.sliceIter.Next()
}

func (it *PageQueryIterator[T]) Value() T {
	return it.sliceIter.Value()
}

func (it *PageQueryIterator[T]) Err() error {
	return it.err
}
