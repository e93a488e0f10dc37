package export

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestToExcel(t *testing.T) {
	records, err := NewStructRecords(makeUsers(3))
	require.NoError(t, err)

	res, err := ToExcel(context.Background(), records,
		WithMaxRowsPerPage(2),
		WithSheetNamePrefix("用户"),
		WithFilename("users.csv"))
	require.NoError(t, err)
	assert.Equal(t, "users.xlsx", res.Filename)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 3, res.Rows)
	assert.NotEmpty(t, res.ContentType)

	fp, err := excelize.OpenReader(bytes.NewReader(res.Data))
	require.NoError(t, err)
	defer func() {
		_ = fp.Close()
	}()
	assert.Equal(t, []string{"用户1", "用户2"}, fp.GetSheetList())

	rows, err := fp.GetRows("用户1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"编号", "姓名", "分数", "创建时间"}, rows[0])
	assert.Equal(t, "user2", rows[2][1])

	rows, err = fp.GetRows("用户2")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "user3", rows[1][1])

	// 数字按原生类型写入
	v, err := fp.GetCellValue("用户2", "A2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "3", v)
	v, err = fp.GetCellValue("用户2", "C2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "2.5", v)
	v, err = fp.GetCellValue("用户2", "C2")
	require.NoError(t, err)
	assert.Equal(t, "2.50", v)
}

func TestExcelSinkSerializeIdempotent(t *testing.T) {
	ds := makeTable(5)
	e := NewExporter(WithMaxRowsPerPage(2))
	cols, err := e.Resolve(ds)
	require.NoError(t, err)

	sink := NewExcelSink()
	defer func() {
		_ = sink.Close()
	}()
	res, err := e.Export(context.Background(), ds, cols, sink)
	require.NoError(t, err)

	again, err := sink.Serialize()
	require.NoError(t, err)
	assert.Equal(t, res.Data, again)

	//修改返回的内容不影响缓存
	want := bytes.Clone(again)
	res.Data[0], again[1] = 'x', 'y'
	third, err := sink.Serialize()
	require.NoError(t, err)
	assert.Equal(t, want, third)

	_, err = sink.BeginPage("late")
	assert.ErrorIs(t, err, ErrPageState)
}

func TestExcelSinkPageState(t *testing.T) {
	sink := NewExcelSink()
	defer func() {
		_ = sink.Close()
	}()
	cols := []Column{{Ordinal: 1, Name: "a", Title: "a"}}

	_, err := sink.Serialize()
	assert.ErrorIs(t, err, ErrPageState)

	h, err := sink.BeginPage("Data")
	require.NoError(t, err)
	_, err = sink.BeginPage("Other")
	assert.ErrorIs(t, err, ErrPageState)

	assert.ErrorIs(t, sink.WriteRow(h, []any{1}), ErrPageState)
	require.NoError(t, sink.WriteHeader(h, cols))
	assert.Error(t, sink.WriteRow(h, []any{1, 2}))
	require.NoError(t, sink.WriteRow(h, []any{1}))

	_, err = sink.Serialize()
	assert.ErrorIs(t, err, ErrPageState)
	require.NoError(t, sink.EndPage(h))
	assert.ErrorIs(t, sink.WriteRow(h, []any{1}), ErrPageState)

	_, err = sink.BeginPage("data")
	assert.ErrorIs(t, err, ErrDuplicatePage)

	data, err := sink.Serialize()
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestToCsv(t *testing.T) {
	res, err := ToCsv(context.Background(), makeTable(2), WithFilename("users"))
	require.NoError(t, err)
	assert.Equal(t, "users.csv", res.Filename)
	assert.Equal(t, "编号,姓名,分数\n1,user1,0.5\n2,user2,1.5\n", string(res.Data))

	res, err = ToCsv(context.Background(), makeTable(1), WithCsvComma(';'))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Filename, ".csv"))
	assert.Equal(t, "编号;姓名;分数\n1;user1;0.5\n", string(res.Data))
}

func TestToCsvZip(t *testing.T) {
	res, err := ToCsv(context.Background(), makeTable(3), WithMaxRowsPerPage(2), WithFilename("users.csv"))
	require.NoError(t, err)
	assert.Equal(t, "users.zip", res.Filename)
	assert.Equal(t, 2, res.Pages)

	zr, err := zip.NewReader(bytes.NewReader(res.Data), int64(len(res.Data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	want := map[string]string{
		"Sheet1.csv": "编号,姓名,分数\n1,user1,0.5\n2,user2,1.5\n",
		"Sheet2.csv": "编号,姓名,分数\n3,user3,2.5\n",
	}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		assert.Equal(t, want[f.Name], string(b), f.Name)
	}
}

func TestCsvSinkDates(t *testing.T) {
	records, err := NewStructRecords(makeUsers(1))
	require.NoError(t, err)
	res, err := ToCsv(context.Background(), records, WithHeaderFilter(IncludeNames("id", "created")))
	require.NoError(t, err)
	assert.Equal(t, "编号,创建时间\n1,2024-01-01 08:00:00\n", string(res.Data))
}

func TestCsvSinkSerializeCopy(t *testing.T) {
	for _, rows := range []int{3, 10} {
		ds := makeTable(rows)
		e := NewExporter(WithMaxRowsPerPage(4))
		cols, err := e.Resolve(ds)
		require.NoError(t, err)

		sink := NewCsvSink(',')
		res, err := e.Export(context.Background(), ds, cols, sink)
		require.NoError(t, err)
		want := bytes.Clone(res.Data)
		res.Data[0] = 'x'

		again, err := sink.Serialize()
		require.NoError(t, err)
		assert.Equal(t, want, again)
		require.NoError(t, sink.Close())
	}
}

func TestHeaderToExcelDefaultSheet(t *testing.T) {
	res, err := HeaderToExcel([]string{"编号"}, "")
	require.NoError(t, err)

	fp, err := excelize.OpenReader(bytes.NewReader(res.Data))
	require.NoError(t, err)
	defer func() {
		_ = fp.Close()
	}()
	assert.Equal(t, []string{DefaultHeaderSheetName}, fp.GetSheetList())
}

func TestHeaderToExcel(t *testing.T) {
	res, err := HeaderToExcel([]string{"编号", "姓名"}, "模板", WithFilename("template.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "template.xlsx", res.Filename)
	assert.Equal(t, 0, res.Rows)

	fp, err := excelize.OpenReader(bytes.NewReader(res.Data))
	require.NoError(t, err)
	defer func() {
		_ = fp.Close()
	}()
	assert.Equal(t, []string{"模板"}, fp.GetSheetList())
	rows, err := fp.GetRows("模板")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"编号", "姓名"}}, rows)

	_, err = HeaderToExcel([]string{"a", "a"}, "")
	assert.Equal(t, "schema", Phase(err))
}

func TestShapeHeaderToExcel(t *testing.T) {
	records, err := NewStructRecords[user](nil)
	require.NoError(t, err)
	res, err := ShapeHeaderToExcel(records, "", WithHeaderFilter(ExcludeNames("created")))
	require.NoError(t, err)

	fp, err := excelize.OpenReader(bytes.NewReader(res.Data))
	require.NoError(t, err)
	defer func() {
		_ = fp.Close()
	}()
	assert.Equal(t, []string{DefaultHeaderSheetName}, fp.GetSheetList())
	rows, err := fp.GetRows(DefaultHeaderSheetName)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"编号", "姓名", "分数"}}, rows)
}
