package export

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/opdss/tabexport/contracts/excel"
)

var _ excel.Sink = (*CsvSink)(nil)

type csvPage struct {
	name    string
	buf     *bytes.Buffer
	w       *csv.Writer
	columns int
	header  bool
	ended   bool
}

// CsvSink 每页一个 csv，多页时打包成 zip
type CsvSink struct {
	comma   rune
	pages   []*csvPage
	names   map[string]struct{}
	created time.Time
	data    []byte
	closed  bool
}

func NewCsvSink(comma rune) *CsvSink {
	return &CsvSink{
		comma:   comma,
		names:   make(map[string]struct{}),
		created: time.Now(),
	}
}

func (s *CsvSink) Suffix() string {
	if len(s.pages) > 1 {
		return ZipSuffix
	}
	return CsvSuffix
}

func (s *CsvSink) BeginPage(name string) (excel.PageHandle, error) {
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
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	if s.comma != 0 {
		w.Comma = s.comma
	}
	s.names[key] = struct{}{}
	s.pages = append(s.pages, &csvPage{name: name, buf: buf, w: w})
	return excel.PageHandle{Index: len(s.pages) - 1, Name: name}, nil
}

func (s *CsvSink) page(h excel.PageHandle) (*csvPage, error) {
	if h.Index < 0 || h.Index >= len(s.pages) || s.pages[h.Index].name != h.Name {
		return nil, fmt.Errorf("%w: unknown page %q", ErrPageState, h.Name)
	}
	p := s.pages[h.Index]
	if p.ended {
		return nil, fmt.Errorf("%w: page %q already ended", ErrPageState, h.Name)
	}
	return p, nil
}

func (s *CsvSink) WriteHeader(h excel.PageHandle, columns []Column) error {
	p, err := s.page(h)
	if err != nil {
		return err
	}
	if p.header {
		return fmt.Errorf("%w: header of page %q already written", ErrPageState, h.Name)
	}
	titles := make([]string, len(columns))
	for i := range columns {
		titles[i] = columns[i].Title
	}
	p.header = true
	p.columns = len(columns)
	return p.w.Write(titles)
}

func (s *CsvSink) WriteRow(h excel.PageHandle, values []any) error {
	p, err := s.page(h)
	if err != nil {
		return err
	}
	if !p.header {
		return fmt.Errorf("%w: page %q has no header", ErrPageState, h.Name)
	}
	if len(values) != p.columns {
		return fmt.Errorf("row has %d values, header has %d columns", len(values), p.columns)
	}
	record := make([]string, len(values))
	for i, v := range values {
		record[i] = stringify(v)
	}
	return p.w.Write(record)
}

func (s *CsvSink) EndPage(h excel.PageHandle) error {
	p, err := s.page(h)
	if err != nil {
		return err
	}
	p.ended = true
	p.w.Flush()
	return p.w.Error()
}

func (s *CsvSink) Serialize() ([]byte, error) {
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
	if len(s.pages) == 1 {
		s.data = s.pages[0].buf.Bytes()
		return bytes.Clone(s.data), nil
	}

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, p := range s.pages {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.name + "." + CsvSuffix,
			Method:   zip.Deflate,
			Modified: s.created,
		})
		if err != nil {
			return nil, err
		}
		if _, err = w.Write(p.buf.Bytes()); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	s.data = buf.Bytes()
	return bytes.Clone(s.data), nil
}

func (s *CsvSink) Close() error {
	s.closed = true
	s.pages = nil
	return nil
}
