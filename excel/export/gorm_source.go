package export

import (
	"context"
	"strings"

	iter "github.com/opdss/tabexport/iterator"
	"gorm.io/gorm"
)

// QueryTable 执行查询并把结果读成表格，列类型来自数据库的字段类型
//
//	QueryTable(ctx, db.Raw("select id, name from users where status = ?", 1))
//	QueryTable(ctx, db.Table("users").Select("id", "name"))
func QueryTable(ctx context.Context, tx *gorm.DB) (*Table, error) {
	rows, err := tx.WithContext(ctx).Rows()
	if err != nil {
		return nil, ErrRowAccess.Wrap(err)
	}
	defer func() {
		_ = rows.Close()
	}()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, ErrSchema.Wrap(err)
	}
	columns := make([]TableColumn, len(types))
	for i, ct := range types {
		columns[i] = TableColumn{Name: ct.Name(), Type: databaseType(ct.DatabaseTypeName())}
	}
	t := NewTable(columns...)

	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err = rows.Scan(ptrs...); err != nil {
			return nil, ErrRowAccess.Wrap(err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		if err = t.AddRow(values...); err != nil {
			return nil, ErrRowAccess.Wrap(err)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, ErrRowAccess.Wrap(err)
	}
	return t, nil
}

func databaseType(name string) ColumnType {
	name = strings.ToUpper(name)
	switch {
	case name == "":
		return TypeString
	case strings.Contains(name, "BOOL"):
		return TypeBoolean
	case strings.Contains(name, "DATE"), strings.Contains(name, "TIME"):
		return TypeDate
	case strings.Contains(name, "INT"), strings.Contains(name, "REAL"),
		strings.Contains(name, "FLOA"), strings.Contains(name, "DOUB"),
		strings.Contains(name, "DEC"), strings.Contains(name, "NUM"):
		return TypeNumber
	}
	return TypeString
}

// GormRecords 分批查询 gorm 模型，T 不能是指针。fields 为空时使用 struct tag
func GormRecords[T any](ctx context.Context, tx *gorm.DB, batch int, fields ...RecordField[T]) (*Records[T], error) {
	it := iter.NewPageQueryIterator(ctx, func(ctx context.Context, offset, limit int) ([]T, error) {
		res := make([]T, 0, limit)
		err := tx.WithContext(ctx).Offset(offset).Limit(limit).Find(&res).Error
		return res, err
	}, iter.WithPageQueryIteratorLimit[T](batch))
	return CollectRecords[T](it, fields...)
}
