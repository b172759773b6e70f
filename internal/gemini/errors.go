package gemini

import "errors"

type Kind int

const (
	KindUnknown Kind = iota
	KindServiceUnavailable
	KindAccessDenied
	KindRateLimited
	KindMalformedResponse
	KindConnectivity
	KindAPIError
)

// Error — типизированная ошибка генерации. Message уже пригоден для показа
// пользователю, Kind позволяет вызывающему коду различать классы сбоев.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf возвращает класс ошибки генерации, KindUnknown для посторонних ошибок
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindUnknown
}
