package service

import "errors"

// ErrorKind классифицирует ошибки ввода пользователя
type ErrorKind int

const (
	FormatError ErrorKind = iota + 1
	RangeError
	CategoryError
	NotFoundError
	UnknownCommandError
)

func (k ErrorKind) String() string {
	switch k {
	case FormatError:
		return "format"
	case RangeError:
		return "range"
	case CategoryError:
		return "category"
	case NotFoundError:
		return "not_found"
	case UnknownCommandError:
		return "unknown_command"
	default:
		return "unknown"
	}
}

// ReplyError ошибка, которая целиком превращается в ответ пользователю.
// Msg уже готов к отправке.
type ReplyError struct {
	Kind ErrorKind
	Msg  string
}

func (e *ReplyError) Error() string {
	return e.Msg
}

// NewReplyError создает ошибку ввода с готовым текстом ответа
func NewReplyError(kind ErrorKind, msg string) error {
	return &ReplyError{Kind: kind, Msg: msg}
}

// AsReplyError извлекает ReplyError из цепочки ошибок
func AsReplyError(err error) (*ReplyError, bool) {
	var re *ReplyError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsKind сообщает, является ли err ошибкой ввода вида kind
func IsKind(err error, kind ErrorKind) bool {
	re, ok := AsReplyError(err)
	return ok && re.Kind == kind
}
