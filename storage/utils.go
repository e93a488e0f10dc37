package storage

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen 与 mimetype 默认读取长度一致
const sniffLen = 3072

// exportTypes 导出文件按后缀确定类型，xlsx 的前几 KB 可能只能识别成 zip
var exportTypes = map[string]string{
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".csv":  "text/csv; charset=utf-8",
	".zip":  "application/zip",
}

// ContentType 先按后缀，再按内容判断文件类型
func ContentType(file string, head []byte) string {
	if t, ok := exportTypes[strings.ToLower(filepath.Ext(file))]; ok {
		return t
	}
	return mimetype.Detect(head).String()
}

// sniff 读取文件头判断类型，返回的 reader 包含完整内容
func sniff(file string, rs io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rs, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, err
	}
	head = head[:n]
	return ContentType(file, head), io.MultiReader(bytes.NewReader(head), rs), nil
}

func validPath(path string) string {
	realPath := strings.TrimPrefix(path, "./")
	realPath = strings.TrimPrefix(realPath, "/")
	realPath = strings.TrimPrefix(realPath, ".")
	if realPath != "" && !strings.HasSuffix(realPath, "/") {
		realPath += "/"
	}
	return realPath
}

// objectKey 对象存储的 key 不以 / 开头
func objectKey(file string) string {
	return strings.TrimPrefix(filepath.ToSlash(file), "/")
}
