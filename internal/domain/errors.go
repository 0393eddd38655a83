package domain

import "errors"

// 仓储层哨兵错误
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthentication
	KindForbidden
	KindNotFound
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	}
	return "internal"
}

// Error 业务错误；Msg 面向调用方，Err 只进日志
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error     { return &Error{Kind: KindValidation, Msg: msg} }
func Authentication(msg string) error { return &Error{Kind: KindAuthentication, Msg: msg} }
func Forbidden(msg string) error      { return &Error{Kind: KindForbidden, Msg: msg} }
func NotFound(msg string) error       { return &Error{Kind: KindNotFound, Msg: msg} }
func InvalidState(msg string) error   { return &Error{Kind: KindInvalidState, Msg: msg} }
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf 非 *Error 一律视为内部错误
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
