package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误种类（与 HTTP 状态一一对应，由统一上报阶段渲染）
type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindBadRequest
	KindUnauthenticated
	KindInvalidCredential
	KindExpiredCredential
	KindStaleCredential
	KindUnknownSubject
	KindForbidden
	KindNotFound
	KindConflict
	KindTooManyRequests
	KindUnavailable
	KindTimeout
)

var kindNames = map[Kind]string{
	KindUnexpected:        "Unexpected",
	KindValidation:        "ValidationError",
	KindBadRequest:        "BadRequest",
	KindUnauthenticated:   "Unauthenticated",
	KindInvalidCredential: "InvalidCredential",
	KindExpiredCredential: "ExpiredCredential",
	KindStaleCredential:   "StaleCredential",
	KindUnknownSubject:    "UnknownSubject",
	KindForbidden:         "Forbidden",
	KindNotFound:          "NotFound",
	KindConflict:          "Conflict",
	KindTooManyRequests:   "TooManyRequests",
	KindUnavailable:       "Unavailable",
	KindTimeout:           "Timeout",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unexpected"
}

// Status HTTP 状态码
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindBadRequest, KindConflict:
		return http.StatusBadRequest
	case KindUnauthenticated, KindInvalidCredential, KindExpiredCredential,
		KindStaleCredential, KindUnknownSubject:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Operational 可以原样展示给调用方的错误
func (k Kind) Operational() bool { return k != KindUnexpected }

// Error 统一错误对象
type Error struct {
	Kind   Kind
	Msg    string
	Fields map[string]string // 仅 Validation 使用：字段 -> 提示
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

func Wrap(kind Kind, msg string, err error) *Error { return &Error{Kind: kind, Msg: msg, Err: err} }

func BadRequest(msg string) error { return New(KindBadRequest, msg) }
func Forbidden(msg string) error  { return New(KindForbidden, msg) }
func NotFound(msg string) error   { return New(KindNotFound, msg) }
func Conflict(msg string) error   { return New(KindConflict, msg) }

func Unauthenticated(msg string) error { return New(KindUnauthenticated, msg) }

func Internal(msg string, err error) error { return Wrap(KindUnexpected, msg, err) }

// Validation 带字段明细的校验错误
func Validation(msg string, fields map[string]string) error {
	return &Error{Kind: KindValidation, Msg: msg, Fields: fields}
}

// KindOf 提取错误种类；非 *Error 统一视为 Unexpected
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
