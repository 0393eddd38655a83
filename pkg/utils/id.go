package utils

import "github.com/google/uuid"

// NewID 生成主键：UUIDv7，同一进程内按字典序严格递增，可作同时间戳记录的次序键
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
