// Package xerrors 提供 shorturl 各组件共用的错误处理工具。
//
// 约定：
//   - 组件在自己的 errors.go 中用 New 定义哨兵错误，如 idgen.ErrClockRegressed
//   - 需要机器可读分类时用 WithCode 附加 snake_case 错误码
//   - 调用方用 Is / As / GetCode 判断，不做字符串匹配
package xerrors

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidInput 输入参数非法，各组件的配置错误和 HTTP 400 都以它为根
var ErrInvalidInput = errors.New("invalid input")

// Wrap 在 err 前加上 msg，err 为 nil 时返回 nil
func Wrap(err error, msg string) error {
	return Wrapf(err, "%s", msg)
}

// Wrapf 同 Wrap，msg 由 format 与 args 生成
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(slices.Clip(args), err)...)
}

// CodedError 在错误链上附加 snake_case 错误码
type CodedError struct {
	Code  string
	Cause error
}

// WithCode 返回带错误码 code 的 err，err 为 nil 时返回 nil
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Cause: err}
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return "[" + e.Code + "]"
	}
	return "[" + e.Code + "] " + e.Cause.Error()
}

func (e *CodedError) Unwrap() error { return e.Cause }

// GetCode 返回错误链上最外层的错误码，没有时返回空串
func GetCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// Must 用于初始化阶段，err 不为 nil 时 panic
func Must[T any](v T, err error) T {
	if err != nil {
		panic("must: " + err.Error())
	}
	return v
}

// MultiError 保存 Combine 合并的全部错误，Is/As 会逐个匹配
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	switch len(m.Errors) {
	case 0:
		return "no errors"
	case 1:
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%v (and %d more errors)", m.Errors[0], len(m.Errors)-1)
}

func (m *MultiError) Unwrap() []error { return m.Errors }

// Combine 丢弃 nil 后合并 errs：没有错误返回 nil，只有一个时原样返回
//
//	return xerrors.Combine(gen.Close(), limiter.Close(), conn.Close())
func Combine(errs ...error) error {
	nonNil := slices.DeleteFunc(slices.Clone(errs), func(err error) bool { return err == nil })
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}
	return &MultiError{Errors: nonNil}
}

// 标准库函数再导出
var (
	New    = errors.New
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)
