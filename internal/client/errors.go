package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies every failure the client surfaces.
type Kind uint8

const (
	KindServer Kind = iota
	KindNetworkUnreachable
	KindInvalidCredentials
	KindSessionExpired
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNetworkUnreachable:
		return "network unreachable"
	case KindInvalidCredentials:
		return "invalid credentials"
	case KindSessionExpired:
		return "session expired"
	case KindValidation:
		return "validation error"
	default:
		return "server error"
	}
}

const (
	MsgNetworkUnreachable = "Network unreachable: unable to reach the server"
	MsgSessionExpired     = "Session expired, please log in again"
)

// Sentinels for errors.Is; they match any *Error of the same Kind.
var (
	ErrNetworkUnreachable error = kindSentinel(KindNetworkUnreachable)
	ErrInvalidCredentials error = kindSentinel(KindInvalidCredentials)
	ErrSessionExpired     error = kindSentinel(KindSessionExpired)
	ErrValidation         error = kindSentinel(KindValidation)
	ErrServer             error = kindSentinel(KindServer)
)

type kindSentinel Kind

func (k kindSentinel) Error() string { return Kind(k).String() }

// Error is the single normalized error returned by every Client call.
// StatusCode is 0 when no response was received.
type Error struct {
	Kind        Kind
	StatusCode  int
	Message     string
	FieldErrors map[string][]string
	Err         error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	k, ok := target.(kindSentinel)
	return ok && Kind(k) == e.Kind
}

// AsError extracts the normalized error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func networkError(err error) *Error {
	return &Error{
		Kind:    KindNetworkUnreachable,
		Message: MsgNetworkUnreachable,
		Err:     err,
	}
}

func sessionExpiredError() *Error {
	return &Error{
		Kind:       KindSessionExpired,
		StatusCode: http.StatusUnauthorized,
		Message:    MsgSessionExpired,
	}
}

// newResponseError maps a non-2xx response body into an *Error. Bodies that
// are not JSON objects fall back to "Server error (<status>)".
func newResponseError(status int, body []byte) *Error {
	e := &Error{
		Kind:       KindServer,
		StatusCode: status,
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, key := range []string{"message", "detail", "error"} {
			if msg := rawString(fields[key]); msg != "" {
				e.Message = msg
				break
			}
		}
		if raw, ok := fields["errors"]; ok {
			msg, fieldErrors := parseErrorsField(raw)
			e.FieldErrors = fieldErrors
			if e.Message == "" {
				e.Message = msg
			}
		}
	}

	if e.Message == "" {
		e.Message = fmt.Sprintf("Server error (%d)", status)
	}
	if len(e.FieldErrors) > 0 && status >= 400 && status < 500 {
		e.Kind = KindValidation
	}
	return e
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// parseErrorsField accepts the shapes seen for "errors": a field map with
// list or string values, a list of strings, or a single string.
func parseErrorsField(raw json.RawMessage) (string, map[string][]string) {
	var byField map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byField); err == nil {
		out := make(map[string][]string, len(byField))
		for field, v := range byField {
			var list []string
			if err := json.Unmarshal(v, &list); err == nil {
				if len(list) > 0 {
					out[field] = list
				}
				continue
			}
			if s := rawString(v); s != "" {
				out[field] = []string{s}
			}
		}
		if len(out) == 0 {
			return "", nil
		}
		return "", out
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; "), nil
	}

	return rawString(raw), nil
}

// FieldSummary renders field errors as "field: msg" lines in field order.
func (e *Error) FieldSummary() string {
	if len(e.FieldErrors) == 0 {
		return ""
	}
	names := make([]string, 0, len(e.FieldErrors))
	for name := range e.FieldErrors {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(strings.Join(e.FieldErrors[name], "; "))
	}
	return b.String()
}
