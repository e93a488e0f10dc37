package iterator

import (
	"context"
	"time"

	"github.com/opdss/tabexport/contracts/iterator"
)

var _ iterator.Iterator[any] = (*FlowQueryIterator[any])(nil)

type FlowQueryIteratorFn[T any] func(ctx context.Context, lastModel T, limit int) ([]T, error)

type FlowQueryIteratorOption[T any] func(it *FlowQueryIterator[T])

// WithFlowQueryIteratorLimit 数据批量查询数量
func WithFlowQueryIteratorLimit[T any](n int) FlowQueryIteratorOption[T] {
	return func(it *FlowQueryIterator[T]) {
		if n > 0 {
			it.limit = n
		}
	}
}

// WithFlowQueryIteratorQueryTimeout 单次查询超时控制
func WithFlowQueryIteratorQueryTimeout[T any](t time.Duration) FlowQueryIteratorOption[T] {
	return func(it *FlowQueryIterator[T]) {
		if t > 0 {
			it.queryTimeout = t
		}
	}
}

// FlowQueryIterator 以上一批最后一条记录为游标的迭代器
type FlowQueryIterator[T any] struct {
	ctx          context.Context
	lastModel    T
	limit        int
	hasMore      bool
	err          error
	queryTimeout time.Duration
	sliceIter    *SliceIterator[T]
	queryFn      FlowQueryIteratorFn[T]
}

// NewFlowQueryIterator 瀑布流式获取记录流水，数据获取一定是按照主键的顺序
func NewFlowQueryIterator[T any](ctx context.Context, queryFn FlowQueryIteratorFn[T], opts ...FlowQueryIteratorOption[T]) *FlowQueryIterator[T] {
	it := &FlowQueryIterator[T]{
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

func (it *FlowQueryIterator[T]) Next() bool {
	if it.sliceIter.Next() {
		return true
	}
	if !it.hasMore {
		return false
	}
	ctx, cancel := context.WithTimeout(it.ctx, it.queryTimeout)
	defer cancel()
	list, err := it.queryFn(ctx, it.lastModel, it.limit)
	if err != nil {
		it.err = err
		it.hasMore = false
		return false
	}
	if len(list) == 0 {
		it.hasMore = false
		return false
	}
	it.sliceIter = NewSliceIterator(list)
	return it.sliceIter.Next()
}

func (it *FlowQueryIterator[T]) Value() T {
	it.lastModel = it.sliceIter.Value()
	return it.lastModel
}

func (it *FlowQueryIterator[T]) Err() error {
	return it.err
}
