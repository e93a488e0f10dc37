package export

import (
	"context"
)

// ToExcel 导出 xlsx 的快捷方法
func ToExcel(ctx context.Context, ds DataSource, opts ...Option) (*Result, error) {
	return export(ctx, ds, NewExcelSink(), opts...)
}

// ToCsv 导出 csv 的快捷方法，分页时打包成 zip
func ToCsv(ctx context.Context, ds DataSource, opts ...Option) (*Result, error) {
	o := newOptions(opts...)
	return export(ctx, ds, NewCsvSink(o.csvComma), opts...)
}

func export(ctx context.Context, ds DataSource, sink Sink, opts ...Option) (*Result, error) {
	defer func() {
		_ = sink.Close()
	}()
	if ds == nil {
		return nil, ErrConfig.New("data source is required")
	}
	e := NewExporter(opts...)
	cols, err := e.Resolve(ds)
	if err != nil {
		return nil, err
	}
	return e.Export(ctx, ds, cols, sink)
}

// DefaultHeaderSheetName 只导出表头时的默认页名称
const DefaultHeaderSheetName = "导出结果"

// HeaderToExcel 只导出表头，titles 同时作为字段名，sheetName 为空时使用 DefaultHeaderSheetName
func HeaderToExcel(titles []string, sheetName string, opts ...Option) (*Result, error) {
	schema := make(Schema, len(titles))
	for i, t := range titles {
		schema[i] = Field{Name: t, Title: t}
	}
	return ShapeHeaderToExcel(schema, sheetName, opts...)
}

// ShapeHeaderToExcel 导出数据结构的表头
func ShapeHeaderToExcel(shape Shape, sheetName string, opts ...Option) (*Result, error) {
	if sheetName == "" {
		sheetName = DefaultHeaderSheetName
	}
	sink := NewExcelSink()
	defer func() {
		_ = sink.Close()
	}()
	e := NewExporter(opts...)
	cols, err := e.Resolve(shape)
	if err != nil {
		return nil, err
	}
	return e.ExportHeaderOnly(cols, sheetName, sink)
}
