package export

import (
	"errors"

	"github.com/zeebo/errs"
)

var (
	// ErrSchema 数据结构无法解析出列
	ErrSchema = errs.Class("schema")
	// ErrRowAccess 单元格数据读取失败
	ErrRowAccess = errs.Class("row access")
	// ErrSink 导出目标拒绝了写入
	ErrSink = errs.Class("sink")
	// ErrConfig 导出配置错误
	ErrConfig = errs.Class("config")
)

var (
	// ErrDuplicatePage 同一次导出中页名称重复
	ErrDuplicatePage = errors.New("duplicate page name")
	// ErrPageState 页未打开、已结束或已经序列化
	ErrPageState = errors.New("invalid page state")
)

// Phase 错误所属阶段: schema, row, sink, config
func Phase(err error) string {
	switch {
	case err == nil:
		return ""
	case ErrConfig.Has(err):
		return "config"
	case ErrSchema.Has(err):
		return "schema"
	case ErrRowAccess.Has(err):
		return "row"
	case ErrSink.Has(err):
		return "sink"
	}
	return ""
}
