package storage

import (
	"github.com/opdss/tabexport/contracts/storage"
	"github.com/zeebo/errs"
)

const (
	DriverLocal = "local"
	DriverS3    = "s3"
	DriverOss   = "oss"
	DriverCos   = "cos"
)

var ErrStorage = errs.Class("storage")

// Config 导出文件上传的存储
type Config struct {
	Driver string      `help:"存储驱动[local|s3|oss|cos]" default:"local"`
	Local  LocalConfig `help:"本地存储"`
	S3     S3Config    `help:"s3兼容存储"`
	Oss    OssConfig   `help:"阿里云oss"`
	Cos    CosConfig   `help:"腾讯云cos"`
}

// New 按驱动创建存储
func New(conf Config) (storage.FileSystem, error) {
	switch conf.Driver {
	case DriverLocal, "":
		return NewLocal(conf.Local)
	case DriverS3:
		return NewS3(conf.S3)
	case DriverOss:
		return NewOss(conf.Oss)
	case DriverCos:
		return NewCos(conf.Cos)
	}
	return nil, ErrStorage.New("unsupported driver %q", conf.Driver)
}
