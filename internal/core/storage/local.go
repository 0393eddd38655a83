package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"lostfound-api/pkg/utils"
)

var (
	ErrTooLarge    = errors.New("file too large")
	ErrUnsupported = errors.New("unsupported image type")
)

var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Local 上传文件落本地目录，通过 URLPrefix 静态暴露
type Local struct {
	Dir       string
	URLPrefix string
	MaxBytes  int64
}

func NewLocal(dir, urlPrefix string, maxBytes int64) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}
	return &Local{Dir: dir, URLPrefix: urlPrefix, MaxBytes: maxBytes}, nil
}

// SaveImage 按内容嗅探类型，返回可访问的 URL 路径
func (s *Local) SaveImage(fh *multipart.FileHeader) (string, error) {
	if s.MaxBytes > 0 && fh.Size > s.MaxBytes {
		return "", ErrTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	ext, ok := allowed[http.DetectContentType(head[:n])]
	if !ok {
		return "", ErrUnsupported
	}

	name := utils.NewID() + ext
	dst, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	if _, err = dst.Write(head[:n]); err == nil {
		_, err = io.Copy(dst, src)
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.Dir, name))
		return "", err
	}
	return path.Join(s.URLPrefix, name), nil
}

// Remove 删除 URL 对应文件；不属于本存储的 URL 忽略
func (s *Local) Remove(url string) error {
	dir, name := path.Split(url)
	if url == "" || path.Clean(dir) != path.Clean(s.URLPrefix) {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, filepath.Base(name)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
