package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/opdss/tabexport/contracts/excel"
	"github.com/xuri/excelize/v2"
)

const (
	// ExcelMaxRows excel 单个 sheet 最大行数
	ExcelMaxRows = 1048576

	defaultDateFormat = "yyyy-mm-dd hh:mm:ss"
)

var _ excel.Sink = (*ExcelSink)(nil)

type excelPage struct {
	name    string
	stream  *excelize.StreamWriter
	columns []Column
	styles  []int
	row     int
	ended   bool
}

// ExcelSink 使用 excelize 写 xlsx，每页一个 sheet
type ExcelSink struct {
	fp          *excelize.File
	pages       []*excelPage
	names       map[string]struct{}
	headerStyle int
	numFmts     map[string]int
	data        []byte
	closed      bool
}

func NewExcelSink() *ExcelSink {
	return &ExcelSink{
		fp:      excelize.NewFile(),
		names:   make(map[string]struct{}),
		numFmts: make(map[string]int),
	}
}

func (s *ExcelSink) Suffix() string {
	return ExcelSuffix
}

func (s *ExcelSink) BeginPage(name string) (excel.PageHandle, error) {
	if s.closed || s.data != nil {
		return excel.PageHandle{}, fmt.Errorf("%w: sink already serialized", ErrPageState)
	}
	if n := len(s.pages); n > 0 && !s.pages[n-1].ended {
		return excel.PageHandle{}, fmt.Errorf("%w: page %q is still open", ErrPageState, s.pages[n-1].name)
	}
	key := strings.ToLower(name)
	if _, ok := s.names[key]; ok {
		return excel.PageHandle{}, fmt.Errorf("%w: %q", ErrDuplicatePage, name)
	}

	if len(s.pages) == 0 {
		if err := s.fp.SetSheetName(s.fp.GetSheetName(0), name); err != nil {
			return excel.PageHandle{}, err
		}
	} else if _, err := s.fp.NewSheet(name); err != nil {
		return excel.PageHandle{}, err
	}
	stream, err := s.fp.NewStreamWriter(name)
	if err != nil {
		return excel.PageHandle{}, err
	}
	s.names[key] = struct{}{}
	s.pages = append(s.pages, &excelPage{name: name, stream: stream})
	return excel.PageHandle{Index: len(s.pages) - 1, Name: name}, nil
}

func (s *ExcelSink) page(h excel.PageHandle) (*excelPage, error) {
	if h.Index < 0 || h.Index >= len(s.pages) || s.pages[h.Index].name != h.Name {
		return nil, fmt.Errorf("%w: unknown page %q", ErrPageState, h.Name)
	}
	p := s.pages[h.Index]
	if p.ended {
		return nil, fmt.Errorf("%w: page %q already ended", ErrPageState, h.Name)
	}
	return p, nil
}

func (s *ExcelSink) WriteHeader(h excel.PageHandle, columns []Column) error {
	p, err := s.page(h)
	if err != nil {
		return err
	}
	if p.columns != nil {
		return fmt.Errorf("%w: header of page %q already written", ErrPageState, h.Name)
	}
	if s.headerStyle == 0 {
		if s.headerStyle, err = s.fp.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
			return err
		}
	}

	//设置列宽度,必须在写入行之前
	for i, c := range columns {
		if c.Width > 0 {
			if err = p.stream.SetColWidth(i+1, i+1, c.Width); err != nil {
				return err
			}
		}
	}
	p.styles = make([]int, len(columns))
	titles := make([]any, len(columns))
	for i, c := range columns {
		if p.styles[i], err = s.columnStyle(c); err != nil {
			return err
		}
		titles[i] = excelize.Cell{StyleID: s.headerStyle, Value: c.Title}
	}
	p.columns = columns
	return s.setRow(p, titles)
}

func (s *ExcelSink) WriteRow(h excel.PageHandle, values []any) error {
	p, err := s.page(h)
	if err != nil {
		return err
	}
	if p.columns == nil {
		return fmt.Errorf("%w: page %q has no header", ErrPageState, h.Name)
	}
	if len(values) != len(p.columns) {
		return fmt.Errorf("row has %d values, header has %d columns", len(values), len(p.columns))
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = excelize.Cell{StyleID: p.styles[i], Value: v}
	}
	return s.setRow(p, cells)
}

func (s *ExcelSink) setRow(p *excelPage, cells []any) error {
	if p.row >= ExcelMaxRows {
		return fmt.Errorf("page %q exceeds %d rows", p.name, ExcelMaxRows)
	}
	p.row++
	cell, err := excelize.CoordinatesToCellName(1, p.row)
	if err != nil {
		return err
	}
	return p.stream.SetRow(cell, cells)
}

func (s *ExcelSink) EndPage(h excel.PageHandle) error {
	p, err := s.page(h)
	if err != nil {
		return err
	}
	p.ended = true
	return p.stream.Flush()
}

func (s *ExcelSink) Serialize() ([]byte, error) {
	if s.data != nil {
		return bytes.Clone(s.data), nil
	}
	if s.closed {
		return nil, fmt.Errorf("%w: sink closed", ErrPageState)
	}
	if len(s.pages) == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrPageState)
	}
	for _, p := range s.pages {
		if !p.ended {
			return nil, fmt.Errorf("%w: page %q is still open", ErrPageState, p.name)
		}
	}
	buf, err := s.fp.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	s.data = buf.Bytes()
	return bytes.Clone(s.data), nil
}

func (s *ExcelSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.fp.Close()
}

// columnStyle 日期和指定格式的数字列使用自定义格式
func (s *ExcelSink) columnStyle(c Column) (int, error) {
	format := c.Format
	if format == "" {
		if c.Type != TypeDate {
			return 0, nil
		}
		format = defaultDateFormat
	}
	if id, ok := s.numFmts[format]; ok {
		return id, nil
	}
	id, err := s.fp.NewStyle(&excelize.Style{CustomNumFmt: &format})
	if err != nil {
		return 0, err
	}
	s.numFmts[format] = id
	return id, nil
}
