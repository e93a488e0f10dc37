package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/opdss/tabexport/contracts/storage"
	"github.com/tencentyun/cos-go-sdk-v5"
	"github.com/zeebo/errs"
)

/*
* Cos 腾讯云对象存储
* Document: https://cloud.tencent.com/document/product/436/31215
 */
var ErrCos = errs.Class("storage.cos")

type CosConfig struct {
	AccessKeyId     string `help:"accessKeyId" default:"" json:"access_key_id"`
	AccessKeySecret string `help:"accessKeySecret" default:"" json:"access_key_secret"`
	Url             string `help:"访问地址" default:"" json:"url"`
	Endpoint        string `help:"存储桶地址,https://<bucket>.cos.<region>.myqcloud.com" default:"" json:"endpoint"`
}

var _ storage.FileSystem = (*Cos)(nil)

type Cos struct {
	config   CosConfig
	instance *cos.Client
}

func NewCos(config CosConfig) (*Cos, error) {
	if config.AccessKeyId == "" || config.AccessKeySecret == "" || config.Endpoint == "" {
		return nil, ErrCos.New("please set configuration")
	}

	u, err := url.Parse(config.Endpoint)
	if err != nil {
		return nil, ErrCos.Wrap(err)
	}
	client := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  config.AccessKeyId,
			SecretKey: config.AccessKeySecret,
		},
	})

	config.Url = strings.TrimSuffix(config.Url, "/")
	return &Cos{
		config:   config,
		instance: client,
	}, nil
}

func (r *Cos) Delete(ctx context.Context, files ...string) error {
	obs := make([]cos.Object, 0, len(files))
	for _, v := range files {
		obs = append(obs, cos.Object{Key: objectKey(v)})
	}
	_, _, err := r.instance.Object.DeleteMulti(ctx, &cos.ObjectDeleteMultiOptions{
		Objects: obs,
		Quiet:   true,
	})
	return ErrCos.Wrap(err)
}

func (r *Cos) Exists(ctx context.Context, file string) bool {
	ok, err := r.instance.Object.IsExist(ctx, objectKey(file))
	if err != nil {
		return false
	}
	return ok
}

func (r *Cos) Get(ctx context.Context, file string) ([]byte, error) {
	rs, err := r.GetStream(ctx, file)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rs.Close()
	}()
	b, err := io.ReadAll(rs)
	return b, ErrCos.Wrap(err)
}

func (r *Cos) GetStream(ctx context.Context, file string) (io.ReadCloser, error) {
	resp, err := r.instance.Object.Get(ctx, objectKey(file), nil)
	if err != nil {
		return nil, ErrCos.Wrap(err)
	}
	return resp.Body, nil
}

func (r *Cos) Put(ctx context.Context, file string, content []byte) error {
	return r.PutStream(ctx, file, bytes.NewReader(content))
}

func (r *Cos) PutStream(ctx context.Context, file string, rs io.Reader) error {
	contentType, body, err := sniff(file, rs)
	if err != nil {
		return ErrCos.Wrap(err)
	}
	_, err = r.instance.Object.Put(ctx, objectKey(file), body, &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType: contentType,
		},
	})
	return ErrCos.Wrap(err)
}

// Url 配置了加速域名时使用加速域名
func (r *Cos) Url(file string) string {
	if r.config.Url != "" {
		return r.config.Url + "/" + objectKey(file)
	}
	return r.instance.Object.GetObjectURL(objectKey(file)).String()
}
