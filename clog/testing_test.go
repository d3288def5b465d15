package clog

import "bytes"

// withBuffer 让 Output: "buffer" 写入 buf，仅供测试
func withBuffer(buf *bytes.Buffer) Option {
	return func(o *options) {
		o.buffer = buf
	}
}
