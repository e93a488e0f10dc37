package iterator

import "github.com/opdss/tabexport/contracts/iterator"

var _ iterator.Iterator[any] = (*SliceIterator[any])(nil)

// SliceIterator 数组数据迭代器
type SliceIterator[T any] struct {
	index int
	data  []T
}

func NewSliceIterator[T any](data []T) *SliceIterator[T] {
	return &SliceIterator[T]{data: data}
}

func (it *SliceIterator[T]) Next() bool {
	return it.index < len(it.data)
}

func (it *SliceIterator[T]) Value() T {
	defer func() {
		it.index++
	}()
	if it.index < len(it.data) {
		return it.data[it.index]
	}
	var v T
	return v
}

func (it *SliceIterator[T]) Err() error {
	return nil
}

// Collect 读取迭代器中的全部数据
func Collect[T any](it iterator.Iterator[T]) ([]T, error) {
	res := make([]T, 0)
	for it.Next() {
		res = append(res, it.Value())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
