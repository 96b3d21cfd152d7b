// Package logger builds the process-wide zerolog logger.
package logger

import (
	"os"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	zpkgerrors "github.com/rs/zerolog/pkgerrors"
)

// New returns a JSON logger writing to stdout, tagged with the service
// name. Error events logged with .Stack() carry a stack trace even when
// the error value is a plain stdlib error.
func New(serviceName string) zerolog.Logger {
	type stackTracer interface{ StackTrace() pkgerrors.StackTrace }

	zerolog.ErrorStackMarshaler = func(err error) interface{} {
		if _, ok := err.(stackTracer); !ok {
			err = pkgerrors.WithStack(err)
		}
		return zpkgerrors.MarshalStack(err)
	}
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		// Keep an existing pkg/errors stack; otherwise attach one here
		// so the marshaler above has something to render.
		if _, ok := err.(stackTracer); ok {
			return err
		}
		return pkgerrors.WithStack(err)
	}

	return zerolog.New(os.Stdout).With().
		Str("service", serviceName).
		Timestamp().
		Logger()
}
