package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/opdss/tabexport/contracts/excel"
	"github.com/opdss/tabexport/contracts/locker"
	"github.com/zeebo/errs"
	"golang.org/x/exp/rand"
)

// ExcelSuffix CsvSuffix ZipSuffix 导出文件后缀
const (
	ExcelSuffix = "xlsx"
	CsvSuffix   = "csv"
	ZipSuffix   = "zip"
)

var knownSuffixes = map[string]struct{}{
	ExcelSuffix: {}, "xls": {}, CsvSuffix: {}, ZipSuffix: {},
}

// Result 导出结果
type Result struct {
	Filename    string //建议文件名
	ContentType string
	Data        []byte
	Pages       int //页数
	Rows        int //数据行数
}

func newResult(data []byte, filename, suffix string, pages, rows int) *Result {
	return &Result{
		Filename:    CheckFilename(filename, suffix),
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
		Pages:       pages,
		Rows:        rows,
	}
}

// WriteTo 写入 io.Writer
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Data)
	return int64(n), err
}

// SaveTo 保存到本地目录，先写临时文件再重命名，返回文件路径
func (r *Result) SaveTo(dir string) (_ string, err error) {
	if err = os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", errs.Wrap(err)
	}
	target := filepath.Join(dir, r.Filename)
	fh, err := os.CreateTemp(dir, r.Filename+".*.tmp")
	if err != nil {
		return "", errs.Wrap(err)
	}
	needsClose, needsRemove := true, true
	defer func() {
		if needsClose {
			err = errs.Combine(err, errs.Wrap(fh.Close()))
		}
		if needsRemove {
			err = errs.Combine(err, errs.Wrap(os.Remove(fh.Name())))
		}
	}()

	if _, err = fh.Write(r.Data); err != nil {
		return "", errs.Wrap(err)
	}
	needsClose = false
	if err = fh.Close(); err != nil {
		return "", errs.Wrap(err)
	}
	if err = os.Rename(fh.Name(), target); err != nil {
		return "", errs.Wrap(err)
	}
	needsRemove = false
	return target, nil
}

type uploadOptions struct {
	key     string
	locker  locker.Locker
	lockTTL time.Duration
}

type UploadOption func(opt *uploadOptions)

// WithUploadKey 存储的文件key，默认使用文件名
func WithUploadKey(key string) UploadOption {
	return func(opt *uploadOptions) {
		opt.key = key
	}
}

// WithUploadLocker 上传前加锁，防止多个进程同时写同一个文件
func WithUploadLocker(l locker.Locker, wait time.Duration) UploadOption {
	return func(opt *uploadOptions) {
		opt.locker = l
		opt.lockTTL = wait
	}
}

// Upload 上传到文件存储，返回下载地址
func (r *Result) Upload(ctx context.Context, fs excel.FileStorage, opts ...UploadOption) (_ string, err error) {
	o := &uploadOptions{key: r.Filename, lockTTL: time.Minute}
	for i := range opts {
		opts[i](o)
	}
	if o.locker != nil {
		if err = o.locker.TryLock(o.lockTTL); err != nil {
			return "", errs.Wrap(err)
		}
		defer func() {
			err = errs.Combine(err, o.locker.Unlock())
		}()
	}
	if err = fs.PutStream(ctx, o.key, bytes.NewReader(r.Data)); err != nil {
		return "", errs.Wrap(err)
	}
	return fs.Url(o.key), nil
}

// CheckFilename 修正文件后缀，文件名为空时自动生成
func CheckFilename(filename, suffix string) string {
	filename = strings.TrimSpace(filename)
	//只保留文件名部分，目录由 SaveTo 和上传的 key 决定
	if i := strings.LastIndexAny(filename, `/\`); i >= 0 {
		filename = strings.TrimSpace(filename[i+1:])
	}
	if filename == "" || filename == "." || filename == ".." {
		return fmt.Sprintf("export_%s_%d.%s",
			time.Now().Format("20060102_150405"),
			randInt(1000, 9999),
			suffix)
	}
	ext := filepath.Ext(filename)
	if _, ok := knownSuffixes[strings.ToLower(strings.TrimPrefix(ext, "."))]; ok {
		filename = strings.TrimSuffix(filename, ext)
	}
	return filename + "." + suffix
}

func randInt(min, max int) int {
	return rand.Intn(max-min) + min
}
