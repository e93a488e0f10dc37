package export

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sources(t *testing.T, n int) map[string]DataSource {
	records, err := NewStructRecords(makeUsers(n))
	require.NoError(t, err)
	return map[string]DataSource{
		"records": records,
		"table":   makeTable(n),
	}
}

func TestExportPaging(t *testing.T) {
	for name, ds := range sources(t, 2500) {
		t.Run(name, func(t *testing.T) {
			e := NewExporter(WithMaxRowsPerPage(1000))
			cols, err := e.Resolve(ds)
			require.NoError(t, err)

			sink := newRecordingSink()
			res, err := e.Export(context.Background(), ds, cols, sink)
			require.NoError(t, err)
			assert.Equal(t, 3, res.Pages)
			assert.Equal(t, 2500, res.Rows)
			assert.Equal(t, 1, sink.serialized)

			require.Len(t, sink.pages, 3)
			for i, p := range sink.pages {
				assert.Equal(t, fmt.Sprintf("Sheet%d", i+1), p.name)
				assert.Equal(t, []Column(cols), p.header)
				assert.True(t, p.ended)
			}
			assert.Len(t, sink.pages[0].rows, 1000)
			assert.Len(t, sink.pages[1].rows, 1000)
			assert.Len(t, sink.pages[2].rows, 500)

			// 所有页拼起来就是原始数据，顺序不变
			ids := sink.firstColumn()
			require.Len(t, ids, 2500)
			for i, id := range ids {
				assert.EqualValues(t, i+1, id)
			}
		})
	}
}

func TestExportWithoutPagination(t *testing.T) {
	for name, ds := range sources(t, 2500) {
		t.Run(name, func(t *testing.T) {
			e := NewExporter(WithMaxRowsPerPage(0), WithSheetNamePrefix("用户"))
			cols, err := e.Resolve(ds)
			require.NoError(t, err)

			sink := newRecordingSink()
			res, err := e.Export(context.Background(), ds, cols, sink)
			require.NoError(t, err)
			assert.Equal(t, 1, res.Pages)
			require.Len(t, sink.pages, 1)
			assert.Equal(t, "用户", sink.pages[0].name)
			assert.Len(t, sink.pages[0].rows, 2500)
		})
	}
}

func TestExportEmpty(t *testing.T) {
	for name, ds := range sources(t, 0) {
		t.Run(name, func(t *testing.T) {
			e := NewExporter()
			cols, err := e.Resolve(ds)
			require.NoError(t, err)

			sink := newRecordingSink()
			res, err := e.Export(context.Background(), ds, cols, sink)
			require.NoError(t, err)
			assert.Equal(t, 1, res.Pages)
			assert.Equal(t, 0, res.Rows)
			require.Len(t, sink.pages, 1)
			assert.Equal(t, "Sheet", sink.pages[0].name)
			assert.Len(t, sink.pages[0].header, len(cols))
			assert.Empty(t, sink.pages[0].rows)
		})
	}
}

func TestExportHeaderFilter(t *testing.T) {
	for name, ds := range sources(t, 10) {
		t.Run(name, func(t *testing.T) {
			e := NewExporter(WithHeaderFilter(ExcludeNames("score")))
			cols, err := e.Resolve(ds)
			require.NoError(t, err)
			assert.NotContains(t, cols.Names(), "score")

			sink := newRecordingSink()
			_, err = e.Export(context.Background(), ds, cols, sink)
			require.NoError(t, err)
			for _, p := range sink.pages {
				for _, c := range p.header {
					assert.NotEqual(t, "score", c.Name)
				}
				for _, r := range p.rows {
					assert.Len(t, r, len(cols))
				}
			}
		})
	}
}

func TestExportRowAccessError(t *testing.T) {
	fail := errors.New("broken record")
	fields := []RecordField[user]{
		FieldOf("id", "编号", TypeNumber, func(u user) any { return u.ID }),
		{
			Field: Field{Name: "name", Title: "姓名"},
			Get: func(u user) (any, error) {
				if u.ID == 43 {
					return nil, fail
				}
				return u.Name, nil
			},
		},
	}
	records := NewRecords(makeUsers(100), fields...)
	table := makeTable(100)
	table.rows[42][0] = "not a number"

	for name, ds := range map[string]DataSource{"records": records, "table": table} {
		t.Run(name, func(t *testing.T) {
			e := NewExporter(WithMaxRowsPerPage(30))
			cols, err := e.Resolve(ds)
			require.NoError(t, err)

			sink := newRecordingSink()
			res, err := e.Export(context.Background(), ds, cols, sink)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, ErrRowAccess.Has(err))
			assert.Equal(t, "row", Phase(err))
			assert.Contains(t, err.Error(), "row 42")
			assert.Equal(t, 0, sink.serialized)
			if name == "records" {
				assert.ErrorIs(t, err, fail)
			}
		})
	}
}

func TestExportDuplicateTitle(t *testing.T) {
	sink := newRecordingSink()
	ds := NewTable(
		TableColumn{Name: "a", Title: "名称"},
		TableColumn{Name: "b", Title: "名称"},
	)
	res, err := export(context.Background(), ds, sink)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, ErrSchema.Has(err))
	assert.Empty(t, sink.pages)
	assert.True(t, sink.closed)
}

func TestExportSinkError(t *testing.T) {
	ds := makeTable(5)
	e := NewExporter()
	cols, err := e.Resolve(ds)
	require.NoError(t, err)

	sink := newRecordingSink()
	sink.failRow = 2
	_, err = e.Export(context.Background(), ds, cols, sink)
	require.Error(t, err)
	assert.Equal(t, "sink", Phase(err))

	// 单页时页名称就是前缀，重复会被 sink 拒绝
	sink = newRecordingSink()
	_, err = sink.BeginPage("sheet")
	require.NoError(t, err)
	_, err = e.Export(context.Background(), ds, cols, sink)
	require.Error(t, err)
	assert.True(t, ErrSink.Has(err))
	assert.ErrorIs(t, err, ErrDuplicatePage)
}

func TestExportConfigError(t *testing.T) {
	ds := makeTable(1)
	e := NewExporter()
	cols, err := e.Resolve(ds)
	require.NoError(t, err)

	_, err = e.Export(context.Background(), ds, cols, nil)
	assert.Equal(t, "config", Phase(err))
	_, err = e.Export(context.Background(), nil, cols, newRecordingSink())
	assert.Equal(t, "config", Phase(err))
	_, err = e.Export(context.Background(), ds, nil, newRecordingSink())
	assert.Equal(t, "schema", Phase(err))
}

func TestExportCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ds := makeTable(3)
	e := NewExporter()
	cols, err := e.Resolve(ds)
	require.NoError(t, err)
	res, err := e.Export(ctx, ds, cols, newRecordingSink())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExportWithSchema(t *testing.T) {
	schema, err := ParseSchema([]byte(`
fields:
  - name: score
    title: 得分
    type: number
  - name: id
    title: ID
    type: string
`))
	require.NoError(t, err)

	ds := makeTable(2)
	e := NewExporter(WithSchema(schema))
	cols, err := e.Resolve(ds)
	require.NoError(t, err)
	assert.Equal(t, []string{"得分", "ID"}, cols.Titles())

	sink := newRecordingSink()
	_, err = e.Export(context.Background(), ds, cols, sink)
	require.NoError(t, err)
	assert.Equal(t, []any{1.5, "2"}, sink.pages[0].rows[1])
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		rows, max int
		want      []Page
	}{
		{rows: 0, max: 10, want: []Page{{0, 0, 0}}},
		{rows: 5, max: 0, want: []Page{{0, 0, 5}}},
		{rows: 5, max: 10, want: []Page{{0, 0, 5}}},
		{rows: 10, max: 5, want: []Page{{0, 0, 5}, {1, 5, 10}}},
		{rows: 11, max: 5, want: []Page{{0, 0, 5}, {1, 5, 10}, {2, 10, 11}}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Paginate(tt.rows, tt.max), "rows=%d max=%d", tt.rows, tt.max)
	}
	assert.Equal(t, "Sheet", pageName("Sheet", 0, 1))
	assert.Equal(t, "Sheet2", pageName("Sheet", 1, 3))
}
