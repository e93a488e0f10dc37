package export

import (
	"os"

	"github.com/opdss/tabexport/contracts/excel"
	"gopkg.in/yaml.v2"
)

type (
	Column     = excel.Column
	ColumnType = excel.ColumnType
	Sink       = excel.Sink
)

const (
	TypeString  = excel.TypeString
	TypeNumber  = excel.TypeNumber
	TypeDate    = excel.TypeDate
	TypeBoolean = excel.TypeBoolean
	TypeOther   = excel.TypeOther
)

// ParseColumnType 解析列类型名称
func ParseColumnType(s string) (ColumnType, error) {
	return excel.ParseColumnType(s)
}

// Columns 按序号排列的列
type Columns []Column

// Titles 表头名称
func (c Columns) Titles() []string {
	res := make([]string, len(c))
	for i := range c {
		res[i] = c[i].Title
	}
	return res
}

// Names 字段名称
func (c Columns) Names() []string {
	res := make([]string, len(c))
	for i := range c {
		res[i] = c[i].Name
	}
	return res
}

// Field 数据结构中声明的字段
type Field struct {
	Name   string     `yaml:"name"`   //字段名
	Title  string     `yaml:"title"`  //列名,为空时使用字段名
	Type   ColumnType `yaml:"type"`   //数据类型
	Index  int        `yaml:"index"`  //指定列序号,0表示按声明顺序
	Format string     `yaml:"format"` //数字格式
	Width  float64    `yaml:"width"`  //列宽度
}

// Shape 可以解析出列的数据结构
type Shape interface {
	Fields() []Field
}

// DataSource 导出数据源
type DataSource interface {
	Shape
	// Len 数据行数
	Len() int
	// Value 读取 row 行 col 列的数据
	Value(row int, col Column) (any, error)
}

// Schema 显式声明的数据结构
type Schema []Field

func (s Schema) Fields() []Field {
	return s
}

type schemaFile struct {
	Fields Schema `yaml:"fields"`
}

// ParseSchema 从 yaml 解析数据结构
//
//	fields:
//	  - name: id
//	    title: 编号
//	    type: number
func ParseSchema(b []byte) (Schema, error) {
	var sf schemaFile
	if err := yaml.UnmarshalStrict(b, &sf); err != nil {
		return nil, ErrSchema.Wrap(err)
	}
	if len(sf.Fields) == 0 {
		return nil, ErrSchema.New("schema has no fields")
	}
	return sf.Fields, nil
}

// LoadSchema 从 yaml 文件读取数据结构
func LoadSchema(path string) (Schema, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrConfig.Wrap(err)
	}
	return ParseSchema(b)
}
