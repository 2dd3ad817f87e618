package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const (
	formatJSON byte = 'j'
	formatZstd byte = 'z'
)

var errUnknownFormat = errors.New("unknown blob format")

// Codec 把缓存实体编码为 blob；首字节标记格式，
// 因此切换压缩配置后旧数据仍可读取
type Codec struct {
	compress bool

	once    sync.Once
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	err     error
}

func NewCodec(compress bool) *Codec {
	return &Codec{compress: compress}
}

func (c *Codec) zstd() error {
	c.once.Do(func() {
		c.encoder, c.err = zstd.NewWriter(nil)
		if c.err != nil {
			return
		}
		c.decoder, c.err = zstd.NewReader(nil)
	})
	return c.err
}

func (c *Codec) Encode(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if !c.compress {
		return append([]byte{formatJSON}, raw...), nil
	}
	if err := c.zstd(); err != nil {
		return nil, fmt.Errorf("init zstd: %w", err)
	}
	return c.encoder.EncodeAll(raw, []byte{formatZstd}), nil
}

func (c *Codec) Decode(blob []byte, v interface{}) error {
	if len(blob) == 0 {
		return errUnknownFormat
	}
	raw := blob[1:]
	switch blob[0] {
	case formatJSON:
	case formatZstd:
		if err := c.zstd(); err != nil {
			return fmt.Errorf("init zstd: %w", err)
		}
		var err error
		raw, err = c.decoder.DecodeAll(raw, nil)
		if err != nil {
			return fmt.Errorf("zstd decode: %w", err)
		}
	default:
		return errUnknownFormat
	}
	return json.Unmarshal(raw, v)
}
