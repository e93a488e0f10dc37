package export

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	records, err := NewStructRecords(makeUsers(1))
	require.NoError(t, err)

	cols, err := Resolve(records, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "score", "created"}, cols.Names())
	assert.Equal(t, []string{"编号", "姓名", "分数", "创建时间"}, cols.Titles())
	for i, c := range cols {
		assert.Equal(t, i+1, c.Ordinal)
	}
	assert.Equal(t, TypeNumber, cols[0].Type)
	assert.Equal(t, TypeDate, cols[3].Type)
	assert.Equal(t, "0.00", cols[2].Format)
	assert.Equal(t, 20.0, cols[1].Width)
}

func TestResolveExplicitIndex(t *testing.T) {
	schema := Schema{
		{Name: "a"},
		{Name: "b"},
		{Name: "c", Index: 1},
		{Name: "d", Index: 2},
	}
	cols, err := Resolve(schema, nil)
	require.NoError(t, err)
	// 显式序号与声明位置共享排序键，相同时按声明顺序
	assert.Equal(t, []string{"a", "c", "b", "d"}, cols.Names())
	assert.Equal(t, []string{"a", "c", "b", "d"}, cols.Titles())
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name   string
		shape  Shape
		filter HeaderFilter
	}{
		{name: "nil shape", shape: nil},
		{name: "no fields", shape: Schema{}},
		{name: "empty name", shape: Schema{{Name: "a"}, {Name: " "}}},
		{name: "duplicate title", shape: Schema{{Name: "a", Title: "姓名"}, {Name: "b", Title: "姓名"}}},
		{name: "title equals other name", shape: Schema{{Name: "a"}, {Name: "b", Title: "a"}}},
		{name: "duplicate name", shape: Schema{{Name: "x", Title: "第一"}, {Name: "x", Title: "第二"}}},
		{name: "filter removes all", shape: Schema{{Name: "a"}}, filter: ExcludeNames("a")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.shape, tt.filter)
			require.Error(t, err)
			assert.True(t, ErrSchema.Has(err))
			assert.Equal(t, "schema", Phase(err))
		})
	}
}

func TestResolveDuplicateFieldName(t *testing.T) {
	type row struct{ A, B string }
	records := NewRecords([]row{{A: "a", B: "b"}},
		FieldOf("x", "First", TypeString, func(r row) any { return r.A }),
		FieldOf("x", "Second", TypeString, func(r row) any { return r.B }),
	)
	_, err := Resolve(records, nil)
	require.Error(t, err)
	assert.True(t, ErrSchema.Has(err))
	assert.Contains(t, err.Error(), `"x"`)

	res, err := ToExcel(context.Background(), records)
	assert.Nil(t, res)
	assert.Equal(t, "schema", Phase(err))
}

func TestResolveFilter(t *testing.T) {
	schema := Schema{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	cols, err := Resolve(schema, ExcludeNames("b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, cols.Names())
	assert.Equal(t, 2, cols[1].Ordinal)

	cols, err = Resolve(schema, IncludeNames("c", "zz"))
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, cols.Names())
	assert.Equal(t, 1, cols[0].Ordinal)
}

func TestExprFilter(t *testing.T) {
	records, err := NewStructRecords(makeUsers(1))
	require.NoError(t, err)

	filter, err := ExprFilter(`name != "score" && type != "date"`)
	require.NoError(t, err)
	cols, err := Resolve(records, filter)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, cols.Names())

	filter, err = ExprFilter(`ordinal <= 2`)
	require.NoError(t, err)
	cols, err = Resolve(records, filter)
	require.NoError(t, err)
	assert.Equal(t, []string{"编号", "姓名"}, cols.Titles())

	_, err = ExprFilter(`name +`)
	require.Error(t, err)
	assert.Equal(t, "config", Phase(err))

	_, err = ExprFilter(`ordinal + 1`)
	require.Error(t, err)
	assert.True(t, ErrConfig.Has(err))
}

func TestExprFilterRuntimeError(t *testing.T) {
	filter, err := ExprFilter(`name == "a" || int(title) > 0`)
	require.NoError(t, err)

	schema := Schema{{Name: "a"}, {Name: "b", Title: "bee"}}
	cols, err := Resolve(schema, filter)
	require.Error(t, err)
	assert.Nil(t, cols)
	assert.True(t, ErrConfig.Has(err))
	assert.Contains(t, err.Error(), `"b"`)

	custom := func(col Column) (bool, error) {
		if col.Name == "b" {
			return false, errors.New("lookup failed")
		}
		return true, nil
	}
	_, err = Resolve(schema, custom)
	assert.Equal(t, "config", Phase(err))
}
