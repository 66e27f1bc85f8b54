// Package storage 保存用户上传的图片，并返回可公开访问的URL。
package storage

import (
	"context"
	"io"
	"mime/multipart"
	"path"

	"socialspark-backend/internal/util"
)

// Object 是一个待上传的文件
type Object struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Storage 是媒体存储后端
type Storage interface {
	// Upload 将对象保存到 key 下并返回公开URL
	Upload(ctx context.Context, obj Object, key string) (string, error)
}

// Key 为上传文件生成存储路径，例如 posts/<user>/<name>_<ts>.jpg
func Key(dir, ownerID, filename string) string {
	return path.Join(dir, ownerID, util.GenerateUniqueFilename(filename))
}

// OpenMultipart 打开表单文件，调用方负责关闭返回的 Closer
func OpenMultipart(fh *multipart.FileHeader) (Object, io.Closer, error) {
	f, err := fh.Open()
	if err != nil {
		return Object{}, nil, err
	}
	return Object{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}, f, nil
}
