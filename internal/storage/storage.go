package storage

import "context"

// BlobStore 媒体文件存储的抽象，业务层只依赖这个接口
type BlobStore interface {
	Upload(ctx context.Context, data []byte, userID, filename string) (url string, err error)
	Delete(ctx context.Context, url string) error
}
