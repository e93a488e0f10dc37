package excel

import (
	"context"
	"io"
)

// FileStorage 导出结果的存储
type FileStorage interface {
	PutStream(ctx context.Context, filename string, rs io.Reader) error
	Url(fileKey string) string
}

// PageHandle 由 Sink.BeginPage 返回，标识一个已打开的页(sheet)
type PageHandle struct {
	Index int
	Name  string
}

// Sink 导出目标，负责把每页的表头和数据行写成最终文件
type Sink interface {
	// BeginPage 开始一个新页，名称在同一次导出中必须唯一
	BeginPage(name string) (PageHandle, error)
	// WriteHeader 按列顺序写入表头
	WriteHeader(page PageHandle, columns []Column) error
	// WriteRow 写入一行数据，values 与表头列一一对应。
	// 调用返回后 values 会被复用，需要保留时自行复制
	WriteRow(page PageHandle, values []any) error
	// EndPage 结束当前页
	EndPage(page PageHandle) error
	// Serialize 所有页结束后生成文件内容，多次调用返回相同内容的副本
	Serialize() ([]byte, error)
	// Suffix 生成文件的后缀，不带点
	Suffix() string
	// Close 释放资源
	Close() error
}
