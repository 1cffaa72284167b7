package util

import "fmt"

// MyResponseError carries an HTTP status and a client-safe message.
// Fields, when set, are rendered as {"errors": {field: [messages]}}.
type MyResponseError struct {
	Msg    string
	Status int
	Fields map[string][]string
}

func (e MyResponseError) Error() string { return e.Msg }

func NewResponseError(status int, format string, args ...interface{}) error {
	return MyResponseError{
		Msg:    fmt.Sprintf(format, args...),
		Status: status,
	}
}

func NewValidationError(status int, fields map[string][]string) error {
	return MyResponseError{
		Msg:    "validation failed",
		Status: status,
		Fields: fields,
	}
}
