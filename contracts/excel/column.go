package excel

import (
	"fmt"
	"strings"
)

// ColumnType 列数据类型
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeNumber
	TypeDate
	TypeBoolean
	TypeOther
)

var columnTypeNames = map[ColumnType]string{
	TypeString:  "string",
	TypeNumber:  "number",
	TypeDate:    "date",
	TypeBoolean: "boolean",
	TypeOther:   "other",
}

func (t ColumnType) String() string {
	if s, ok := columnTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// ParseColumnType 解析列类型名称，支持常见别名
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string", "str", "text", "varchar", "char":
		return TypeString, nil
	case "number", "numeric", "int", "integer", "int64", "float", "float64", "double", "decimal":
		return TypeNumber, nil
	case "date", "datetime", "time", "timestamp":
		return TypeDate, nil
	case "bool", "boolean":
		return TypeBoolean, nil
	case "other", "any":
		return TypeOther, nil
	}
	return TypeString, fmt.Errorf("unknown column type %q", s)
}

func (t ColumnType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *ColumnType) UnmarshalText(b []byte) error {
	v, err := ParseColumnType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Column 解析后的列描述
type Column struct {
	Ordinal int        //列序号,从1开始
	Name    string     //字段名
	Title   string     //列名
	Type    ColumnType //数据类型
	Format  string     //数字格式,导出excel时支持
	Width   float64    //列宽度,导出excel时支持
}

func (t *ColumnType) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return t.UnmarshalText([]byte(s))
}
