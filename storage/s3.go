package storage

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/opdss/tabexport/contracts/storage"
	"github.com/zeebo/errs"
)

/*
* S3 兼容存储(aws, r2, minio)
* Document: https://github.com/awsdocs/aws-doc-sdk-examples/blob/main/gov2/s3
 */

var ErrS3 = errs.Class("storage.s3")

type S3Config struct {
	AccessKeyId     string `help:"accessKeyId" default:""`
	AccessKeySecret string `help:"accessKeySecret" default:""`
	Bucket          string `help:"存储桶" default:""`
	Region          string `help:"地区" default:"auto"`
	Url             string `help:"访问地址" default:""`
	Endpoint        string `help:"api入口" default:""`
	PathStyle       bool   `help:"使用路径风格访问存储桶,minio需要开启" default:"false"`
}

var _ storage.FileSystem = (*S3)(nil)

type S3 struct {
	config   S3Config
	instance *s3.Client
}

func NewS3(config S3Config) (*S3, error) {
	if config.AccessKeyId == "" || config.AccessKeySecret == "" || config.Endpoint == "" || config.Bucket == "" {
		return nil, ErrS3.New("please set configuration")
	}

	cfg, err := awsConfig.LoadDefaultConfig(context.Background(),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(config.AccessKeyId, config.AccessKeySecret, "")),
		awsConfig.WithRegion(config.Region),
	)
	if err != nil {
		return nil, ErrS3.Wrap(err)
	}

	if config.Url == "" {
		config.Url = strings.TrimSuffix(config.Endpoint, "/") + "/" + config.Bucket
	}
	config.Url = strings.TrimSuffix(config.Url, "/")

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(config.Endpoint)
		o.UsePathStyle = config.PathStyle
	})
	return &S3{
		config:   config,
		instance: client,
	}, nil
}

func (r *S3) Delete(ctx context.Context, files ...string) error {
	objects := make([]types.ObjectIdentifier, 0, len(files))
	for _, file := range files {
		objects = append(objects, types.ObjectIdentifier{Key: aws.String(objectKey(file))})
	}
	_, err := r.instance.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(r.config.Bucket),
		Delete: &types.Delete{
			Objects: objects,
			Quiet:   aws.Bool(true),
		},
	})
	return ErrS3.Wrap(err)
}

func (r *S3) Exists(ctx context.Context, file string) bool {
	_, err := r.instance.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.config.Bucket),
		Key:    aws.String(objectKey(file)),
	})
	return err == nil
}

func (r *S3) Get(ctx context.Context, file string) ([]byte, error) {
	rs, err := r.GetStream(ctx, file)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rs.Close()
	}()
	b, err := io.ReadAll(rs)
	return b, ErrS3.Wrap(err)
}

func (r *S3) GetStream(ctx context.Context, file string) (io.ReadCloser, error) {
	resp, err := r.instance.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.config.Bucket),
		Key:    aws.String(objectKey(file)),
	})
	if err != nil {
		return nil, ErrS3.Wrap(err)
	}
	return resp.Body, nil
}

func (r *S3) Put(ctx context.Context, file string, content []byte) error {
	return r.PutStream(ctx, file, bytes.NewReader(content))
}

// PutStream PutObject 需要知道长度，先整体读入内存
func (r *S3) PutStream(ctx context.Context, file string, rs io.Reader) error {
	content, err := io.ReadAll(rs)
	if err != nil {
		return ErrS3.Wrap(err)
	}
	head := content
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	_, err = r.instance.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.config.Bucket),
		Key:           aws.String(objectKey(file)),
		Body:          bytes.NewReader(content),
		ContentLength: aws.Int64(int64(len(content))),
		ContentType:   aws.String(ContentType(file, head)),
	})
	return ErrS3.Wrap(err)
}

func (r *S3) Url(file string) string {
	return r.config.Url + "/" + objectKey(file)
}
