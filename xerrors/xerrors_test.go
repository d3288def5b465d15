package xerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrap(t *testing.T) {
	// nil 错误应返回 nil
	if err := Wrap(nil, "context"); err != nil {
		t.Errorf("Wrap(nil) = %v，期望 nil", err)
	}

	base := errors.New("base error")
	wrapped := Wrap(base, "context")
	if wrapped.Error() != "context: base error" {
		t.Errorf("Wrap(err).Error() = %q，期望 %q", wrapped.Error(), "context: base error")
	}
	if !errors.Is(wrapped, base) {
		t.Error("errors.Is(wrapped, base) = false，期望 true")
	}
}

func TestWrapf(t *testing.T) {
	if err := Wrapf(nil, "worker %d", 3); err != nil {
		t.Errorf("Wrapf(nil) = %v，期望 nil", err)
	}

	base := errors.New("clock moved backwards")
	wrapped := Wrapf(base, "worker %d", 3)
	if wrapped.Error() != "worker 3: clock moved backwards" {
		t.Errorf("Wrapf(err).Error() = %q", wrapped.Error())
	}
}

func TestWithCode(t *testing.T) {
	if err := WithCode(nil, "CODE"); err != nil {
		t.Errorf("WithCode(nil) = %v，期望 nil", err)
	}

	coded := WithCode(ErrInvalidInput, "worker_id_out_of_range")
	if coded.Error() != "[worker_id_out_of_range] invalid input" {
		t.Errorf("WithCode(err).Error() = %q", coded.Error())
	}
	if code := GetCode(coded); code != "worker_id_out_of_range" {
		t.Errorf("GetCode(coded) = %q", code)
	}

	// 外层包装后依然能取到错误码，并保留哨兵
	wrapped := Wrap(coded, "new generator")
	if code := GetCode(wrapped); code != "worker_id_out_of_range" {
		t.Errorf("GetCode(wrapped) = %q", code)
	}
	if !errors.Is(wrapped, ErrInvalidInput) {
		t.Error("errors.Is(wrapped, ErrInvalidInput) = false，期望 true")
	}

	if code := GetCode(errors.New("plain")); code != "" {
		t.Errorf("GetCode(plain) = %q，期望空串", code)
	}
}

func TestMust(t *testing.T) {
	if v := Must(42, nil); v != 42 {
		t.Errorf("Must(42, nil) = %d，期望 42", v)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("Must(_, err) 未触发 panic")
		}
	}()
	Must(0, errors.New("error"))
}

func TestCombine(t *testing.T) {
	if err := Combine(); err != nil {
		t.Errorf("Combine() = %v，期望 nil", err)
	}
	if err := Combine(nil, nil); err != nil {
		t.Errorf("Combine(nil, nil) = %v，期望 nil", err)
	}

	err1 := errors.New("error 1")
	if err := Combine(nil, err1, nil); err != err1 {
		t.Errorf("Combine(nil, err1, nil) = %v，期望 %v", err, err1)
	}

	err2 := errors.New("error 2")
	combined := Combine(err1, err2)
	multi, ok := combined.(*MultiError)
	if !ok {
		t.Fatalf("Combine(err1, err2) 类型 = %T，期望 *MultiError", combined)
	}
	if len(multi.Errors) != 2 {
		t.Errorf("multi.Errors 长度 = %d，期望 2", len(multi.Errors))
	}
	if multi.Error() != "error 1 (and 1 more errors)" {
		t.Errorf("multi.Error() = %q", multi.Error())
	}
	if !errors.Is(combined, err1) || !errors.Is(combined, err2) {
		t.Error("errors.Is 应能匹配 MultiError 中的每个错误")
	}
}

func TestSentinelErrors(t *testing.T) {
	idgenInvalid := fmt.Errorf("idgen: %w", ErrInvalidInput)
	err := Wrapf(idgenInvalid, "decode id %q", "zz")
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("errors.Is(wrapped, ErrInvalidInput) = false，期望 true")
	}
	if err.Error() != `decode id "zz": idgen: invalid input` {
		t.Errorf("err.Error() = %q", err.Error())
	}
	if errors.Is(errors.New("invalid input"), ErrInvalidInput) {
		t.Error("同文本的新错误不应匹配哨兵")
	}
}
