package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opdss/tabexport/db"
	"github.com/opdss/tabexport/excel/export"
	"github.com/opdss/tabexport/process"
	"github.com/opdss/tabexport/redis"
	"github.com/opdss/tabexport/storage"
	"github.com/spf13/cobra"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

// exportConfig export 命令的参数
type exportConfig struct {
	Input          string        `help:"输入文件(.csv 或 .json)" default:""`
	Query          string        `help:"从数据库读取数据的 sql" default:""`
	Format         string        `help:"导出格式[xlsx|csv]" default:"xlsx"`
	Schema         string        `help:"列定义 yaml 文件,为空时使用数据源的列" default:""`
	HeaderFilter   string        `help:"列过滤表达式,如 name != \"password\"" default:""`
	MaxRowsPerPage int           `help:"单页最大行数,小于等于0不分页" default:"1000000"`
	SheetPrefix    string        `help:"页名称前缀" default:"Sheet"`
	Comma          string        `help:"csv 分隔符,同时用于读取 csv 输入" default:","`
	Filename       string        `help:"导出文件名,为空时随机生成" default:""`
	Output         string        `help:"保存目录" default:"."`
	Upload         bool          `help:"上传到存储而不是保存到本地" default:"false"`
	UploadKey      string        `help:"上传的对象路径,为空时使用文件名" default:""`
	UploadLock     bool          `help:"上传时使用 redis 锁" default:"false"`
	LockWait       time.Duration `help:"等待锁的时间" default:"30s"`

	Db      db.Config
	Storage storage.Config
	Redis   redis.Config
}

// headerConfig header 命令的参数
type headerConfig struct {
	Titles    []string `help:"表头,逗号分隔" default:""`
	Schema    string   `help:"列定义 yaml 文件,设置后忽略 titles" default:""`
	SheetName string   `help:"页名称" default:"导出结果"`
	Filename  string   `help:"导出文件名" default:"header"`
	Output    string   `help:"保存目录" default:"."`
}

var (
	exportConf exportConfig
	headerConf headerConfig

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "export a csv/json file or a sql query to xlsx or csv",
		RunE:  cmdExport,
	}
	headerCmd = &cobra.Command{
		Use:   "header",
		Short: "export an xlsx file containing only the header row",
		RunE:  cmdHeader,
	}
)

func cmdExport(cmd *cobra.Command, args []string) (err error) {
	ctx, _ := process.Ctx(cmd)
	logger := zap.L()

	comma, err := parseComma(exportConf.Comma)
	if err != nil {
		return err
	}
	ds, closeSource, err := openSource(ctx, logger, comma)
	if err != nil {
		return err
	}
	defer func() { err = errs.Combine(err, closeSource()) }()

	opts := []export.Option{
		export.WithMaxRowsPerPage(exportConf.MaxRowsPerPage),
		export.WithSheetNamePrefix(exportConf.SheetPrefix),
		export.WithFilename(exportConf.Filename),
		export.WithCsvComma(comma),
		export.WithLogger(logger),
	}
	if exportConf.Schema != "" {
		schema, err := export.LoadSchema(exportConf.Schema)
		if err != nil {
			return err
		}
		opts = append(opts, export.WithSchema(schema))
	}
	if exportConf.HeaderFilter != "" {
		filter, err := export.ExprFilter(exportConf.HeaderFilter)
		if err != nil {
			return err
		}
		opts = append(opts, export.WithHeaderFilter(filter))
	}

	var res *export.Result
	switch strings.ToLower(exportConf.Format) {
	case "", export.ExcelSuffix:
		res, err = export.ToExcel(ctx, ds, opts...)
	case export.CsvSuffix:
		res, err = export.ToCsv(ctx, ds, opts...)
	default:
		return export.ErrConfig.New("unsupported format %q", exportConf.Format)
	}
	if err != nil {
		return err
	}

	if !exportConf.Upload {
		path, err := res.SaveTo(exportConf.Output)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	}
	url, err := upload(ctx, res)
	if err != nil {
		return err
	}
	fmt.Println(url)
	return nil
}

// openSource 按参数打开数据源，query 优先
func openSource(ctx context.Context, logger *zap.Logger, comma rune) (export.DataSource, func() error, error) {
	noop := func() error { return nil }
	switch {
	case exportConf.Query != "":
		gdb, err := db.NewDB(logger, exportConf.Db)
		if err != nil {
			return nil, nil, err
		}
		t, err := export.QueryTable(ctx, gdb.Raw(exportConf.Query))
		if err != nil {
			return nil, nil, errs.Combine(err, db.Close(gdb))
		}
		return t, func() error { return db.Close(gdb) }, nil
	case exportConf.Input != "":
		f, err := os.Open(exportConf.Input)
		if err != nil {
			return nil, nil, export.ErrConfig.Wrap(err)
		}
		defer func() { _ = f.Close() }()
		switch strings.ToLower(filepath.Ext(exportConf.Input)) {
		case ".json":
			var payload export.TablePayload
			if err = json.NewDecoder(f).Decode(&payload); err != nil {
				return nil, nil, export.ErrConfig.Wrap(err)
			}
			t, err := payload.Table()
			return t, noop, err
		default:
			t, err := export.ReadCsvTable(f, comma)
			return t, noop, err
		}
	}
	return nil, nil, export.ErrConfig.New("either --input or --query is required")
}

func upload(ctx context.Context, res *export.Result) (_ string, err error) {
	fs, err := storage.New(exportConf.Storage)
	if err != nil {
		return "", err
	}
	key := exportConf.UploadKey
	if key == "" {
		key = res.Filename
	}
	opts := []export.UploadOption{export.WithUploadKey(key)}
	if exportConf.UploadLock {
		client, rerr := redis.NewRedis(exportConf.Redis)
		if rerr != nil {
			return "", rerr
		}
		defer func() { err = errs.Combine(err, client.Close()) }()
		opts = append(opts, export.WithUploadLocker(redis.NewLocker(key, client), exportConf.LockWait))
	}
	return res.Upload(ctx, fs, opts...)
}

func cmdHeader(cmd *cobra.Command, args []string) error {
	opts := []export.Option{
		export.WithFilename(headerConf.Filename),
		export.WithLogger(zap.L()),
	}

	var (
		res    *export.Result
		schema export.Schema
		err    error
	)
	if headerConf.Schema != "" {
		if schema, err = export.LoadSchema(headerConf.Schema); err != nil {
			return err
		}
		res, err = export.ShapeHeaderToExcel(schema, headerConf.SheetName, opts...)
	} else {
		res, err = export.HeaderToExcel(headerConf.Titles, headerConf.SheetName, opts...)
	}
	if err != nil {
		return err
	}
	path, err := res.SaveTo(headerConf.Output)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
