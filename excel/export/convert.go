package export

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// convertCell 按列类型转换单元格数据，保留数字、日期、布尔的原生类型
func convertCell(col Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch col.Type {
	case TypeString:
		return toString(v), nil
	case TypeNumber:
		switch n := v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return cast.ToInt64E(n)
		case string:
			if n == "" {
				return nil, nil
			}
		}
		return cast.ToFloat64E(v)
	case TypeDate:
		if t, ok := v.(time.Time); ok {
			return t, nil
		}
		if s, ok := v.(string); ok && s == "" {
			return nil, nil
		}
		return cast.ToTimeE(v)
	case TypeBoolean:
		if s, ok := v.(string); ok && s == "" {
			return nil, nil
		}
		return cast.ToBoolE(v)
	}
	switch v.(type) {
	case bool, string, time.Time,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return v, nil
	}
	return toString(v), nil
}

func toString(v any) string {
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

// stringify 单元格转文本，csv 使用
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format(time.DateTime)
	}
	return toString(v)
}
