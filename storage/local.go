package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opdss/tabexport/contracts/storage"
	"github.com/zeebo/errs"
)

var ErrLocal = errs.Class("storage.local")

type LocalConfig struct {
	Endpoint string `help:"访问地址" default:"http://localhost:8080/files" json:"endpoint"`
	Root     string `help:"根目录" default:"$ROOT/files" json:"root"`
}

var _ storage.FileSystem = (*Local)(nil)

// Local 本地目录存储，通过 http 服务的 /files 访问
type Local struct {
	root     string
	endpoint string
}

func NewLocal(config LocalConfig) (*Local, error) {
	if config.Root == "" {
		return nil, ErrLocal.New("please set root")
	}
	if err := os.MkdirAll(config.Root, os.ModePerm); err != nil {
		return nil, ErrLocal.Wrap(err)
	}
	return &Local{
		root:     config.Root,
		endpoint: strings.TrimSuffix(config.Endpoint, "/"),
	}, nil
}

// Root 根目录
func (r *Local) Root() string {
	return r.root
}

func (r *Local) Delete(ctx context.Context, files ...string) error {
	for _, file := range files {
		fileInfo, err := os.Stat(r.fullPath(file))
		if err != nil {
			return ErrLocal.Wrap(err)
		}
		if fileInfo.IsDir() {
			return ErrLocal.New("can't delete directory %s", file)
		}
	}
	for _, file := range files {
		if err := os.Remove(r.fullPath(file)); err != nil {
			return ErrLocal.Wrap(err)
		}
	}
	return nil
}

func (r *Local) Exists(ctx context.Context, file string) bool {
	_, err := os.Stat(r.fullPath(file))
	return err == nil
}

func (r *Local) Get(ctx context.Context, file string) ([]byte, error) {
	rs, err := r.GetStream(ctx, file)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rs.Close()
	}()
	b, err := io.ReadAll(rs)
	return b, ErrLocal.Wrap(err)
}

func (r *Local) GetStream(ctx context.Context, file string) (io.ReadCloser, error) {
	fh, err := os.Open(r.fullPath(file))
	if err != nil {
		return nil, ErrLocal.Wrap(err)
	}
	return fh, nil
}

func (r *Local) Put(ctx context.Context, file string, content []byte) error {
	return r.PutStream(ctx, file, bytes.NewReader(content))
}

// PutStream 先写临时文件再重命名，读到一半失败不会留下残缺文件
func (r *Local) PutStream(ctx context.Context, file string, rs io.Reader) (err error) {
	target := r.fullPath(file)
	dir := filepath.Dir(target)
	if err = os.MkdirAll(dir, os.ModePerm); err != nil {
		return ErrLocal.Wrap(err)
	}
	fh, err := os.CreateTemp(dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return ErrLocal.Wrap(err)
	}
	defer func() {
		if err != nil {
			_ = fh.Close()
			_ = os.Remove(fh.Name())
		}
	}()
	if _, err = io.Copy(fh, rs); err != nil {
		return ErrLocal.Wrap(err)
	}
	if err = fh.Close(); err != nil {
		return ErrLocal.Wrap(err)
	}
	if err = os.Rename(fh.Name(), target); err != nil {
		return ErrLocal.Wrap(err)
	}
	return nil
}

func (r *Local) Url(file string) string {
	return r.endpoint + "/" + strings.TrimPrefix(filepath.ToSlash(file), "/")
}

// fullPath 文件路径限制在根目录内
func (r *Local) fullPath(path string) string {
	realPath := filepath.Clean("/" + path)
	if realPath == "/" {
		return r.root
	}
	return filepath.Join(r.root, realPath)
}
