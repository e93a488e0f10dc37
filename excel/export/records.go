package export

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/opdss/tabexport/contracts/iterator"
	iter "github.com/opdss/tabexport/iterator"
)

// TagName export 导出字段的tag
//
//	Name  string    `export:"name,title=姓名,width=20"`
//	Score float64   `export:"score,type=number,format=0.00,index=1"`
//	Token string    `export:"-"`
const TagName = "export"

// Accessor 读取记录中某个字段的值
type Accessor[T any] func(item T) (any, error)

// RecordField 类型化记录的字段声明
type RecordField[T any] struct {
	Field
	Get Accessor[T]
}

// FieldOf 声明一个字段，get 不会返回错误
func FieldOf[T any](name, title string, typ ColumnType, get func(item T) any) RecordField[T] {
	return RecordField[T]{
		Field: Field{Name: name, Title: title, Type: typ},
		Get: func(item T) (any, error) {
			return get(item), nil
		},
	}
}

// At 指定列序号
func (f RecordField[T]) At(index int) RecordField[T] {
	f.Index = index
	return f
}

// WithFormat 指定数字格式
func (f RecordField[T]) WithFormat(format string) RecordField[T] {
	f.Format = format
	return f
}

// WithWidth 指定列宽度
func (f RecordField[T]) WithWidth(width float64) RecordField[T] {
	f.Width = width
	return f
}

var _ DataSource = (*Records[any])(nil)

// Records 类型化记录集合
type Records[T any] struct {
	items  []T
	fields []RecordField[T]
	index  map[string]int
}

// NewRecords 使用显式声明的字段创建数据源
func NewRecords[T any](items []T, fields ...RecordField[T]) *Records[T] {
	r := &Records[T]{
		items:  items,
		fields: fields,
		index:  make(map[string]int, len(fields)),
	}
	for i := range fields {
		r.index[fields[i].Name] = i
	}
	return r
}

// NewStructRecords 使用 struct tag 声明的字段创建数据源
func NewStructRecords[T any](items []T) (*Records[T], error) {
	fields, err := StructFields[T]()
	if err != nil {
		return nil, err
	}
	return NewRecords(items, fields...), nil
}

// CollectRecords 读取迭代器中的全部记录
func CollectRecords[T any](it iterator.Iterator[T], fields ...RecordField[T]) (*Records[T], error) {
	items, err := iter.Collect(it)
	if err != nil {
		return nil, ErrRowAccess.Wrap(err)
	}
	if len(fields) == 0 {
		return NewStructRecords(items)
	}
	return NewRecords(items, fields...), nil
}

func (r *Records[T]) Fields() []Field {
	res := make([]Field, len(r.fields))
	for i := range r.fields {
		res[i] = r.fields[i].Field
	}
	return res
}

func (r *Records[T]) Len() int {
	return len(r.items)
}

func (r *Records[T]) Value(row int, col Column) (any, error) {
	if row < 0 || row >= len(r.items) {
		return nil, fmt.Errorf("row %d out of range [0,%d)", row, len(r.items))
	}
	idx, ok := r.index[col.Name]
	if !ok {
		return nil, fmt.Errorf("unknown field %q", col.Name)
	}
	get := r.fields[idx].Get
	if get == nil {
		return nil, fmt.Errorf("field %q has no accessor", col.Name)
	}
	return get(r.items[row])
}

var structFieldsCache sync.Map

var timeType = reflect.TypeOf(time.Time{})

// StructFields 根据 struct tag 生成字段声明，结果按类型缓存
func StructFields[T any]() ([]RecordField[T], error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if cached, ok := structFieldsCache.Load(typ); ok {
		return cached.([]RecordField[T]), nil
	}

	st := typ
	if st.Kind() == reflect.Ptr {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil, ErrSchema.New("%s is not a struct", typ)
	}

	fields := make([]RecordField[T], 0, st.NumField())
	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, hasTag := sf.Tag.Lookup(TagName)
		if tag == "-" {
			continue
		}
		f := Field{Name: sf.Name, Type: inferType(sf.Type)}
		if hasTag {
			if err := parseTag(tag, &f); err != nil {
				return nil, ErrSchema.New("%s.%s: %v", st.Name(), sf.Name, err)
			}
		}
		fields = append(fields, RecordField[T]{Field: f, Get: structAccessor[T](sf.Index)})
	}
	if len(fields) == 0 {
		return nil, ErrSchema.New("%s has no exported fields", typ)
	}
	structFieldsCache.Store(typ, fields)
	return fields, nil
}

func parseTag(tag string, f *Field) error {
	parts := strings.Split(tag, ",")
	if name := strings.TrimSpace(parts[0]); name != "" {
		f.Name = name
	}
	for _, opt := range parts[1:] {
		k, v, _ := strings.Cut(strings.TrimSpace(opt), "=")
		switch k {
		case "title":
			f.Title = v
		case "type":
			t, err := ParseColumnType(v)
			if err != nil {
				return err
			}
			f.Type = t
		case "index":
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("bad index %q", v)
			}
			f.Index = n
		case "format":
			f.Format = v
		case "width":
			w, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("bad width %q", v)
			}
			f.Width = w
		case "":
		default:
			return fmt.Errorf("unknown tag option %q", k)
		}
	}
	return nil
}

func inferType(t reflect.Type) ColumnType {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType {
		return TypeDate
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return TypeNumber
	case reflect.Bool:
		return TypeBoolean
	case reflect.String:
		return TypeString
	}
	return TypeOther
}

func structAccessor[T any](index []int) Accessor[T] {
	return func(item T) (any, error) {
		v := reflect.ValueOf(item)
		for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
			if v.IsNil() {
				return nil, fmt.Errorf("nil record")
			}
			v = v.Elem()
		}
		fv := v.FieldByIndex(index)
		for fv.Kind() == reflect.Ptr {
			if fv.IsNil() {
				return nil, nil
			}
			fv = fv.Elem()
		}
		return fv.Interface(), nil
	}
}
