package idgen

import (
	"fmt"
	"strconv"
	"strings"
)

// Codec ID 与文本之间的双向编码
type Codec interface {
	// Name 编码名称，与 Config.Codec 的取值对应
	Name() string
	Encode(id uint64) string
	Decode(s string) (uint64, error)
}

const (
	CodecDecimal = "decimal"
	CodecHex     = "hex"
)

type radixCodec struct {
	name string
	base int
}

// DecimalCodec 十进制编码，默认编码
func DecimalCodec() Codec {
	return radixCodec{name: CodecDecimal, base: 10}
}

// HexCodec 小写十六进制编码，不补零
func HexCodec() Codec {
	return radixCodec{name: CodecHex, base: 16}
}

// CodecByName 按名称查找编码，空串返回 DecimalCodec
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", CodecDecimal:
		return DecimalCodec(), nil
	case CodecHex:
		return HexCodec(), nil
	default:
		return nil, fmt.Errorf("%w: unknown codec %q", ErrInvalidInput, name)
	}
}

func (c radixCodec) Name() string {
	return c.name
}

func (c radixCodec) Encode(id uint64) string {
	return strconv.FormatUint(id, c.base)
}

// Decode 只接受本编码输出的字符集，不接受前缀和符号
func (c radixCodec) Decode(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty %s id", ErrInvalidInput, c.name)
	}
	if c.base == 16 && strings.ToLower(s) != s {
		return 0, fmt.Errorf("%w: %s id %q must be lower case", ErrInvalidInput, c.name, s)
	}
	id, err := strconv.ParseUint(s, c.base, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s id %q: %w", ErrInvalidInput, c.name, s, err)
	}
	return id, nil
}
