package export

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Exporter 分页导出
type Exporter struct {
	options *options
}

func NewExporter(opts ...Option) *Exporter {
	return &Exporter{options: newOptions(opts...)}
}

// Resolve 解析数据源的列，WithSchema 指定的结构优先
func (e *Exporter) Resolve(ds Shape) (Columns, error) {
	shape := ds
	if e.options.schema != nil {
		shape = e.options.schema
	}
	return Resolve(shape, e.options.headerFilter)
}

// Export 把数据源按页写入 sink，返回序列化后的结果。
// 任何一个单元格读取失败都会终止导出，不返回部分结果
func (e *Exporter) Export(ctx context.Context, ds DataSource, cols Columns, sink Sink) (*Result, error) {
	if sink == nil {
		return nil, ErrConfig.New("sink is required")
	}
	if ds == nil {
		return nil, ErrConfig.New("data source is required")
	}
	if len(cols) == 0 {
		return nil, ErrSchema.New("no columns to export")
	}

	logger := e.options.logger
	rowCount := ds.Len()
	pages := Paginate(rowCount, e.options.maxRowsPerPage)
	values := make([]any, len(cols))

	for _, page := range pages {
		name := pageName(e.options.sheetNamePrefix, page.Index, len(pages))
		h, err := sink.BeginPage(name)
		if err != nil {
			return nil, ErrSink.Wrap(err)
		}
		if err = sink.WriteHeader(h, cols); err != nil {
			return nil, ErrSink.Wrap(err)
		}
		for row := page.Start; row < page.End; row++ {
			//收到取消导出信号
			if err = ctx.Err(); err != nil {
				return nil, err
			}
			for i, col := range cols {
				v, err := ds.Value(row, col)
				if err != nil {
					return nil, ErrRowAccess.Wrap(fmt.Errorf("row %d column %q: %w", row, col.Name, err))
				}
				if values[i], err = convertCell(col, v); err != nil {
					return nil, ErrRowAccess.Wrap(fmt.Errorf("row %d column %q: convert to %s: %w", row, col.Name, col.Type, err))
				}
			}
			if err = sink.WriteRow(h, values); err != nil {
				return nil, ErrSink.Wrap(err)
			}
		}
		if err = sink.EndPage(h); err != nil {
			return nil, ErrSink.Wrap(err)
		}
		logger.Debug("export page done",
			zap.String("page", name),
			zap.Int("start", page.Start),
			zap.Int("rows", page.Len()))
	}

	data, err := sink.Serialize()
	if err != nil {
		return nil, ErrSink.Wrap(err)
	}
	res := newResult(data, e.options.filename, sink.Suffix(), len(pages), rowCount)
	logger.Info("export done",
		zap.String("filename", res.Filename),
		zap.Int("pages", res.Pages),
		zap.Int("rows", res.Rows),
		zap.Int("bytes", len(res.Data)))
	return res, nil
}

// ExportHeaderOnly 只导出表头
func (e *Exporter) ExportHeaderOnly(cols Columns, sheetName string, sink Sink) (*Result, error) {
	if sink == nil {
		return nil, ErrConfig.New("sink is required")
	}
	if len(cols) == 0 {
		return nil, ErrSchema.New("no columns to export")
	}
	if sheetName == "" {
		sheetName = e.options.sheetNamePrefix
	}
	h, err := sink.BeginPage(sheetName)
	if err != nil {
		return nil, ErrSink.Wrap(err)
	}
	if err = sink.WriteHeader(h, cols); err != nil {
		return nil, ErrSink.Wrap(err)
	}
	if err = sink.EndPage(h); err != nil {
		return nil, ErrSink.Wrap(err)
	}
	data, err := sink.Serialize()
	if err != nil {
		return nil, ErrSink.Wrap(err)
	}
	return newResult(data, e.options.filename, sink.Suffix(), 1, 0), nil
}
