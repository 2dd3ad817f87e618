package cache

import (
	"errors"
	"fmt"
)

// ErrNoSuchContent 在当前内容树中找不到请求的节点
var ErrNoSuchContent = errors.New("no such content")

// NotFoundError 记录失败的查找条件，errors.Is(err, ErrNoSuchContent) 成立
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no such %s: %s", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNoSuchContent
}

func notFound(kind string, key interface{}) error {
	return &NotFoundError{Kind: kind, Key: fmt.Sprint(key)}
}
