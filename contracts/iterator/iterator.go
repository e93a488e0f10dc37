package iterator

// Iterator 逐条读取数据，CollectRecords 用它把查询结果收集成 Records
type Iterator[T any] interface {
	//Next 是否还有数据，出错时返回 false
	Next() bool
	//Value 获取下一条数据
	Value() T
	//Err 迭代结束后检查是否因为错误而终止
	Err() error
}
