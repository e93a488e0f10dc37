package export

import "go.uber.org/zap"

// DefaultMaxRowsPerPage 单页最大行数
const DefaultMaxRowsPerPage = 1000000

// DefaultSheetNamePrefix 默认页名称
const DefaultSheetNamePrefix = "Sheet"

type Option func(opt *options)

// WithMaxRowsPerPage 单页最大行数，超出会自动分页，小于等于0不分页
func WithMaxRowsPerPage(n int) Option {
	return func(opt *options) {
		opt.maxRowsPerPage = n
	}
}

// WithSheetNamePrefix 页名称，多页时会加上页码
func WithSheetNamePrefix(prefix string) Option {
	return func(opt *options) {
		if prefix != "" {
			opt.sheetNamePrefix = prefix
		}
	}
}

// WithHeaderFilter 列过滤
func WithHeaderFilter(filter HeaderFilter) Option {
	return func(opt *options) {
		opt.headerFilter = filter
	}
}

// WithSchema 使用指定的数据结构代替数据源自身的结构
func WithSchema(shape Shape) Option {
	return func(opt *options) {
		opt.schema = shape
	}
}

// WithFilename 设置导出文件名,后缀会按导出类型自动修正
func WithFilename(filename string) Option {
	return func(opt *options) {
		opt.filename = filename
	}
}

// WithLogger 日志
func WithLogger(logger *zap.Logger) Option {
	return func(opt *options) {
		if logger != nil {
			opt.logger = logger
		}
	}
}

// WithCsvComma csv 分隔符
func WithCsvComma(comma rune) Option {
	return func(opt *options) {
		opt.csvComma = comma
	}
}

type options struct {
	maxRowsPerPage  int          //单页最大行数
	sheetNamePrefix string       //页名称
	headerFilter    HeaderFilter //列过滤
	schema          Shape        //显式数据结构
	filename        string       //文件名
	csvComma        rune         //csv 分隔符
	logger          *zap.Logger
}

func newOptions(opts ...Option) *options {
	o := &options{
		maxRowsPerPage:  DefaultMaxRowsPerPage,
		sheetNamePrefix: DefaultSheetNamePrefix,
		logger:          zap.NewNop(),
	}
	for i := range opts {
		opts[i](o)
	}
	return o
}
