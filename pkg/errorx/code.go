package errorx

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// Coder defines an interface for an error code detail information.
type Coder interface {
	// HTTPStatus is the http status that should be used for the associated error code.
	HTTPStatus() int

	// String is the external (user) facing error text.
	String() string

	// Reference returns the detail documents for user.
	Reference() string

	// Code returns the code of the coder.
	Code() int
}

// UnknownCode is the code of errors that carry no registered code.
const UnknownCode = 1

type defaultCoder struct {
	code int
	http int
	msg  string
}

func (c defaultCoder) Code() int         { return c.code }
func (c defaultCoder) HTTPStatus() int   { return c.http }
func (c defaultCoder) String() string    { return c.msg }
func (c defaultCoder) Reference() string { return "" }

var (
	unknownCoder = defaultCoder{code: UnknownCode, http: http.StatusInternalServerError, msg: "An internal server error occurred"}

	codes   = map[int]Coder{}
	codeMux = &sync.Mutex{}
)

// Register registers a user defined error code.
// It will override the existing code.
func Register(coder Coder) {
	if coder.Code() == UnknownCode {
		panic(fmt.Sprintf("code %d is reserved as unknown error code", UnknownCode))
	}
	codeMux.Lock()
	defer codeMux.Unlock()
	codes[coder.Code()] = coder
}

// MustRegister registers a user defined error code.
// It will panic when the same code already exist.
func MustRegister(coder Coder) {
	if coder.Code() == UnknownCode {
		panic(fmt.Sprintf("code %d is reserved as unknown error code", UnknownCode))
	}
	codeMux.Lock()
	defer codeMux.Unlock()
	if _, ok := codes[coder.Code()]; ok {
		panic(fmt.Sprintf("code: %d already exist", coder.Code()))
	}
	codes[coder.Code()] = coder
}

// ParseCoder returns the Coder of the outermost coded error in err's chain.
// Errors without a code, and codes nobody registered, parse as unknown.
func ParseCoder(err error) Coder {
	var w *withCode
	if !errors.As(err, &w) {
		return unknownCoder
	}
	codeMux.Lock()
	defer codeMux.Unlock()
	if coder, ok := codes[w.code]; ok {
		return coder
	}
	return unknownCoder
}

// IsCode reports whether any error in err's chain contains the given error code.
func IsCode(err error, code int) bool {
	for err != nil {
		var w *withCode
		if !errors.As(err, &w) {
			return false
		}
		if w.code == code {
			return true
		}
		err = w.cause
	}
	return false
}
