package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/opdss/tabexport/contracts/excel"
)

type user struct {
	ID      int64     `export:"id,title=编号,index=1"`
	Name    string    `export:"name,title=姓名,width=20"`
	Score   float64   `export:"score,title=分数,format=0.00"`
	Created time.Time `export:"created,title=创建时间"`
	Secret  string    `export:"-"`
	note    string
}

func makeUsers(n int) []user {
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	res := make([]user, n)
	for i := range res {
		res[i] = user{
			ID:      int64(i + 1),
			Name:    fmt.Sprintf("user%d", i+1),
			Score:   float64(i) + 0.5,
			Created: base.Add(time.Duration(i) * time.Hour),
			Secret:  "x",
		}
	}
	return res
}

func makeTable(n int) *Table {
	t := NewTable(
		TableColumn{Name: "id", Title: "编号", Type: TypeNumber},
		TableColumn{Name: "name", Title: "姓名"},
		TableColumn{Name: "score", Title: "分数", Type: TypeNumber},
	)
	for i := 0; i < n; i++ {
		_ = t.AddRow(i+1, fmt.Sprintf("user%d", i+1), float64(i)+0.5)
	}
	return t
}

type recordedPage struct {
	name   string
	header []Column
	rows   [][]any
	ended  bool
}

// recordingSink 记录导出过程，供断言使用
type recordingSink struct {
	pages      []*recordedPage
	serialized int
	closed     bool
	failRow    int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{failRow: -1}
}

func (s *recordingSink) BeginPage(name string) (excel.PageHandle, error) {
	for _, p := range s.pages {
		if strings.EqualFold(p.name, name) {
			return excel.PageHandle{}, ErrDuplicatePage
		}
	}
	s.pages = append(s.pages, &recordedPage{name: name})
	return excel.PageHandle{Index: len(s.pages) - 1, Name: name}, nil
}

func (s *recordingSink) WriteHeader(h excel.PageHandle, columns []Column) error {
	s.pages[h.Index].header = append([]Column(nil), columns...)
	return nil
}

func (s *recordingSink) WriteRow(h excel.PageHandle, values []any) error {
	p := s.pages[h.Index]
	if s.failRow >= 0 && len(p.rows) == s.failRow {
		return fmt.Errorf("disk full")
	}
	p.rows = append(p.rows, append([]any(nil), values...))
	return nil
}

func (s *recordingSink) EndPage(h excel.PageHandle) error {
	s.pages[h.Index].ended = true
	return nil
}

func (s *recordingSink) Serialize() ([]byte, error) {
	s.serialized++
	return []byte(fmt.Sprintf("pages=%d", len(s.pages))), nil
}

func (s *recordingSink) Suffix() string {
	return "txt"
}

func (s *recordingSink) Close() error {
	s.closed = true
	return nil
}

// firstColumn 所有页第一列的值
func (s *recordingSink) firstColumn() []any {
	var res []any
	for _, p := range s.pages {
		for _, r := range p.rows {
			res = append(res, r[0])
		}
	}
	return res
}
