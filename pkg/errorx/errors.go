package errorx

import "fmt"

type withCode struct {
	msg   string
	code  int
	cause error
}

// WithCode returns an error carrying code and a formatted message.
func WithCode(code int, format string, args ...any) error {
	return &withCode{
		msg:  fmt.Sprintf(format, args...),
		code: code,
	}
}

// WrapC annotates err with code and a formatted message. A nil err yields nil.
func WrapC(err error, code int, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &withCode{
		msg:   fmt.Sprintf(format, args...),
		code:  code,
		cause: err,
	}
}

func (w *withCode) Error() string {
	if w.cause == nil {
		return w.msg
	}
	return w.msg + ": " + w.cause.Error()
}

func (w *withCode) Unwrap() error { return w.cause }

// Code returns the code attached to the error.
func (w *withCode) Code() int { return w.code }
