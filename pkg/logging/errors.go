// midimap/pkg/logging/errors.go

package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

type ErrorType string

const (
	ErrorTypeParse     ErrorType = "PARSE"
	ErrorTypeCompile   ErrorType = "COMPILE"
	ErrorTypeConfig    ErrorType = "CONFIG"
	ErrorTypeTransport ErrorType = "TRANSPORT"
	ErrorTypeRuntime   ErrorType = "RUNTIME"
)

type MapError struct {
	Type    ErrorType
	Message string
	Err     error
	Fields  map[string]interface{}
}

func (e *MapError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *MapError) Unwrap() error {
	return e.Err
}

func NewError(errType ErrorType, message string, err error, fields map[string]interface{}) *MapError {
	return &MapError{
		Type:    errType,
		Message: message,
		Err:     err,
		Fields:  fields,
	}
}

func LogError(logger zerolog.Logger, err error) {
	logAt(logger.Error(), err)
}

func LogWarning(logger zerolog.Logger, err error) {
	logAt(logger.Warn(), err)
}

func logAt(event *zerolog.Event, err error) {
	mapErr, ok := err.(*MapError)
	if !ok {
		event.Err(err).Msg(err.Error())
		return
	}

	event = event.Err(mapErr.Err).
		Str("error_type", string(mapErr.Type)).
		Str("message", mapErr.Message)

	for k, v := range mapErr.Fields {
		event = event.Interface(k, v)
	}

	event.Msg(mapErr.Message)
}
