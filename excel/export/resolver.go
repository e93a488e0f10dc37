package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// HeaderFilter 决定列是否导出，返回 false 的列会被移除，返回错误时解析失败
type HeaderFilter func(col Column) (bool, error)

// Resolve 从数据结构解析出有序的列
func Resolve(shape Shape, filter HeaderFilter) (Columns, error) {
	if shape == nil {
		return nil, ErrSchema.New("nil shape")
	}
	fields := shape.Fields()
	if len(fields) == 0 {
		return nil, ErrSchema.New("shape has no fields")
	}

	type keyed struct {
		field Field
		key   int
	}
	items := make([]keyed, len(fields))
	names := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			return nil, ErrSchema.New("field %d has no name", i+1)
		}
		//数据源按字段名读取数据，名称必须唯一
		if _, ok := names[f.Name]; ok {
			return nil, ErrSchema.New("duplicate field name %q", f.Name)
		}
		names[f.Name] = struct{}{}
		key := i + 1
		if f.Index > 0 {
			key = f.Index
		}
		items[i] = keyed{field: f, key: key}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].key < items[j].key
	})

	cols := make(Columns, 0, len(items))
	titles := make(map[string]string, len(items))
	for _, it := range items {
		title := strings.TrimSpace(it.field.Title)
		if title == "" {
			title = it.field.Name
		}
		if other, ok := titles[title]; ok {
			return nil, ErrSchema.New("fields %q and %q share the title %q", other, it.field.Name, title)
		}
		titles[title] = it.field.Name
		cols = append(cols, Column{
			Name:   it.field.Name,
			Title:  title,
			Type:   it.field.Type,
			Format: it.field.Format,
			Width:  it.field.Width,
		})
	}
	renumber(cols)

	if filter == nil {
		return cols, nil
	}
	kept := make(Columns, 0, len(cols))
	for _, c := range cols {
		keep, err := filter(c)
		if err != nil {
			return nil, ErrConfig.Wrap(fmt.Errorf("header filter on column %q: %w", c.Name, err))
		}
		if keep {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return nil, ErrSchema.New("header filter removed every column")
	}
	renumber(kept)
	return kept, nil
}

func renumber(cols Columns) {
	for i := range cols {
		cols[i].Ordinal = i + 1
	}
}

// ExcludeNames 移除指定字段
func ExcludeNames(names ...string) HeaderFilter {
	set := toSet(names)
	return func(col Column) (bool, error) {
		_, ok := set[col.Name]
		return !ok, nil
	}
}

// IncludeNames 只保留指定字段
func IncludeNames(names ...string) HeaderFilter {
	set := toSet(names)
	return func(col Column) (bool, error) {
		_, ok := set[col.Name]
		return ok, nil
	}
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func filterEnv(col Column) map[string]any {
	return map[string]any{
		"name":    col.Name,
		"title":   col.Title,
		"type":    col.Type.String(),
		"ordinal": col.Ordinal,
	}
}

// ExprFilter 用表达式过滤列，可用变量: name, title, type, ordinal
//
//	name != "password" && type != "date"
func ExprFilter(expression string) (HeaderFilter, error) {
	program, err := expr.Compile(expression, expr.Env(filterEnv(Column{})), expr.AsBool())
	if err != nil {
		return nil, ErrConfig.Wrap(err)
	}
	return exprFilter(program), nil
}

func exprFilter(program *vm.Program) HeaderFilter {
	return func(col Column) (bool, error) {
		out, err := expr.Run(program, filterEnv(col))
		if err != nil {
			return false, err
		}
		keep, ok := out.(bool)
		if !ok {
			return false, fmt.Errorf("expression returned %T, want bool", out)
		}
		return keep, nil
	}
}
