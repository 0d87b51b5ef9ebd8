package gamecatalog

import "github.com/rs/zerolog"

// DefaultOptions returns the recommended set of options for production use:
// panic recovery, request ids and access logging through log.
func DefaultOptions(log zerolog.Logger) []Option {
	return []Option{
		WithLogger(log),
		WithRecovery(),
		WithRequestID(),
		WithLogging(),
	}
}
