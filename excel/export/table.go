package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// TableColumn 通用表格的列
type TableColumn struct {
	Name  string     `json:"name"`
	Title string     `json:"title,omitempty"`
	Type  ColumnType `json:"type"`
}

var _ DataSource = (*Table)(nil)

// Table 通用的命名列表格
type Table struct {
	columns []TableColumn
	rows    [][]any
	index   map[string]int
}

// NewTable 创建表格，列类型默认为 string
func NewTable(columns ...TableColumn) *Table {
	t := &Table{
		columns: columns,
		rows:    make([][]any, 0),
		index:   make(map[string]int, len(columns)),
	}
	for i := range columns {
		t.index[columns[i].Name] = i
	}
	return t
}

// AddRow 追加一行，值的数量必须与列数一致
func (t *Table) AddRow(values ...any) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.columns))
	}
	t.rows = append(t.rows, values)
	return nil
}

// Columns 表格的列
func (t *Table) Columns() []TableColumn {
	return t.columns
}

func (t *Table) Fields() []Field {
	res := make([]Field, len(t.columns))
	for i, c := range t.columns {
		res[i] = Field{Name: c.Name, Title: c.Title, Type: c.Type}
	}
	return res
}

func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) Value(row int, col Column) (any, error) {
	if row < 0 || row >= len(t.rows) {
		return nil, fmt.Errorf("row %d out of range [0,%d)", row, len(t.rows))
	}
	idx, ok := t.index[col.Name]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", col.Name)
	}
	return t.rows[row][idx], nil
}

// TablePayload 表格的 json 表示
//
//	{"columns":[{"name":"id","type":"number"}],"rows":[[1],[2]]}
type TablePayload struct {
	Columns []TableColumn `json:"columns"`
	Rows    [][]any       `json:"rows"`
}

// Table 转换成表格
func (p TablePayload) Table() (*Table, error) {
	if len(p.Columns) == 0 {
		return nil, ErrSchema.New("table has no columns")
	}
	t := NewTable(p.Columns...)
	for i, r := range p.Rows {
		if err := t.AddRow(r...); err != nil {
			return nil, ErrRowAccess.New("row %d: %v", i, err)
		}
	}
	return t, nil
}

// ReadCsvTable 读取 csv，第一行为列名，所有列为 string
func ReadCsvTable(r io.Reader, comma rune) (*Table, error) {
	cr := csv.NewReader(r)
	if comma != 0 {
		cr.Comma = comma
	}
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrSchema.New("csv has no header")
		}
		return nil, ErrRowAccess.Wrap(err)
	}
	columns := make([]TableColumn, len(header))
	for i, h := range header {
		columns[i] = TableColumn{Name: strings.TrimSpace(h)}
	}
	t := NewTable(columns...)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, ErrRowAccess.Wrap(err)
		}
		values := make([]any, len(record))
		for i := range record {
			values[i] = record[i]
		}
		if err = t.AddRow(values...); err != nil {
			return nil, ErrRowAccess.Wrap(err)
		}
	}
	return t, nil
}
